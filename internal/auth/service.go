// Package auth implements account signup, login and token refresh on top of
// the persistence gateway.
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/apperror"
	"github.com/garnizeh/built/internal/config"
	"github.com/garnizeh/built/internal/metrics"
	"github.com/garnizeh/built/internal/repository/sqlite"
	"github.com/garnizeh/built/pkg/models"
)

type SignupInput struct {
	Username string
	Name     string
	Email    string
	Password string
}

type Service struct {
	gw      *sqlite.Gateway
	issuer  *Issuer
	lockout Lockout
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(gw *sqlite.Gateway, cfg config.AuthConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gw:      gw,
		issuer:  NewIssuer(cfg),
		lockout: NewLockout(cfg.MaxLoginAttempts, cfg.LockoutCooldown),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) Issuer() *Issuer { return s.issuer }

// Signup creates the user and its credential, then issues tokens. When the
// credential cannot be stored the new user is removed again.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, TokenPair, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, TokenPair{}, apperror.Internal(err, "Error hashing password")
	}

	username := in.Username
	user, err := sqlite.Create(ctx, s.gw, &models.User{
		Username: &username,
		Name:     in.Name,
		Email:    in.Email,
		IsActive: true,
	})
	if err != nil {
		return nil, TokenPair{}, err
	}

	cred, err := sqlite.Create(ctx, s.gw, &models.Credential{UserID: user.ID, PasswordHash: hash})
	if err != nil {
		if _, derr := sqlite.Delete[models.User](ctx, s.gw, user.ID); derr != nil {
			s.logger.Error("signup cleanup failed", slog.String("user_id", user.ID.String()), slog.Any("err", derr))
		}
		return nil, TokenPair{}, err
	}

	pair, err := s.issue(ctx, user, cred)
	if err != nil {
		return nil, TokenPair{}, err
	}

	metrics.RecordAuthAttempt("signup", true)
	return user, pair, nil
}

// Login checks username and password. Unknown users and wrong passwords get
// the same 401; inactive accounts get 403.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, TokenPair, error) {
	user, err := sqlite.FindOne[models.User](ctx, s.gw, sqlite.NewFilter(sqlite.FilterFirst).Match("username", username))
	if err != nil {
		return nil, TokenPair{}, err
	}
	if user == nil {
		metrics.RecordAuthAttempt("login", false)
		return nil, TokenPair{}, apperror.Unauthorized("Invalid credentials")
	}

	cred, err := s.credentialFor(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if cred == nil {
		metrics.RecordAuthAttempt("login", false)
		return nil, TokenPair{}, apperror.Unauthorized("No credential associated with user `%s`", username)
	}

	now := s.now()
	if err := s.lockout.Check(cred, now); err != nil {
		metrics.RecordAuthAttempt("login", false)
		return nil, TokenPair{}, err
	}

	if !VerifyPassword(password, cred.PasswordHash) {
		s.lockout.RecordFailure(cred, now)
		if _, err := sqlite.Save(ctx, s.gw, cred); err != nil {
			s.logger.Warn("failed to record login failure", slog.String("user_id", user.ID.String()), slog.Any("err", err))
		}
		metrics.RecordAuthAttempt("login", false)
		return nil, TokenPair{}, apperror.Unauthorized("Invalid credentials")
	}

	if !user.IsActive {
		metrics.RecordAuthAttempt("login", false)
		return nil, TokenPair{}, apperror.Forbidden("Account is not active")
	}

	s.lockout.Reset(cred)
	pair, err := s.issue(ctx, user, cred)
	if err != nil {
		return nil, TokenPair{}, err
	}

	metrics.RecordAuthAttempt("login", true)
	return user, pair, nil
}

// Refresh exchanges a stored, unexpired refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.User, TokenPair, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		metrics.RecordAuthAttempt("refresh", false)
		return nil, TokenPair{}, apperror.Unauthorized("Invalid refresh token")
	}

	user, err := sqlite.Read[models.User](ctx, s.gw, claims.UserUUID(), false)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if user == nil {
		return nil, TokenPair{}, apperror.Unauthorized("Invalid refresh token")
	}

	cred, err := s.credentialFor(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if cred == nil || cred.RefreshToken == nil || *cred.RefreshToken != refreshToken {
		metrics.RecordAuthAttempt("refresh", false)
		return nil, TokenPair{}, apperror.Unauthorized("Invalid refresh token")
	}
	if cred.RefreshTokenExpires != nil && !s.now().Before(cred.RefreshTokenExpires.Time) {
		return nil, TokenPair{}, apperror.Unauthorized("Refresh token expired")
	}
	if !user.IsActive {
		return nil, TokenPair{}, apperror.Forbidden("Account is not active")
	}

	pair, err := s.issue(ctx, user, cred)
	if err != nil {
		return nil, TokenPair{}, err
	}

	metrics.RecordAuthAttempt("refresh", true)
	return user, pair, nil
}

// Signout forgets the user's refresh token. Access tokens stay valid until
// they expire.
func (s *Service) Signout(ctx context.Context, userID uuid.UUID) error {
	cred, err := s.credentialFor(ctx, userID)
	if err != nil || cred == nil {
		return err
	}

	cred.RefreshToken = nil
	cred.RefreshTokenExpires = nil
	_, err = sqlite.Save(ctx, s.gw, cred)
	return err
}

func (s *Service) credentialFor(ctx context.Context, userID uuid.UUID) (*models.Credential, error) {
	return sqlite.FindOne[models.Credential](ctx, s.gw, sqlite.NewFilter(sqlite.FilterFirst).Match("user_id", userID))
}

// issue signs a pair and stores the refresh token on the credential.
func (s *Service) issue(ctx context.Context, user *models.User, cred *models.Credential) (TokenPair, error) {
	var username string
	if user.Username != nil {
		username = *user.Username
	}

	pair, err := s.issuer.Issue(user.ID, username, user.Email)
	if err != nil {
		return TokenPair{}, apperror.Internal(err, "Error signing token")
	}

	expires := models.NewTimestamp(pair.RefreshExpires)
	cred.RefreshToken = &pair.RefreshToken
	cred.RefreshTokenExpires = &expires
	if _, err := sqlite.Save(ctx, s.gw, cred); err != nil {
		return TokenPair{}, err
	}

	return pair, nil
}
