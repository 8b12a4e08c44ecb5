package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/config"
)

// Claims is the payload of both access and refresh tokens.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken    string
	RefreshToken   string
	RefreshExpires time.Time
}

// Issuer signs and parses HS256 tokens. Refresh tokens use their own secret.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(cfg config.AuthConfig) *Issuer {
	return &Issuer{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}
}

// Issue creates a fresh access/refresh pair for the given identity.
func (i *Issuer) Issue(userID uuid.UUID, username, email string) (TokenPair, error) {
	now := i.now()

	access, err := i.sign(i.accessSecret, userID, username, email, now, now.Add(i.accessTTL))
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshExp := now.Add(i.refreshTTL)
	refresh, err := i.sign(i.refreshSecret, userID, username, email, now, refreshExp)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh, RefreshExpires: refreshExp}, nil
}

func (i *Issuer) sign(secret []byte, userID uuid.UUID, username, email string, iat, exp time.Time) (string, error) {
	claims := Claims{
		UserID:   userID.String(),
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (i *Issuer) ParseAccess(token string) (*Claims, error) {
	return i.parse(i.accessSecret, token)
}

func (i *Issuer) ParseRefresh(token string) (*Claims, error) {
	return i.parse(i.refreshSecret, token)
}

func (i *Issuer) parse(secret []byte, token string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("invalid user_id claim: %w", err)
	}

	return claims, nil
}

// UserUUID returns the user id carried by the claims.
func (c *Claims) UserUUID() uuid.UUID {
	id, _ := uuid.Parse(c.UserID)
	return id
}
