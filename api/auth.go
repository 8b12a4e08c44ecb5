package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/garnizeh/built/internal/apperror"
	"github.com/garnizeh/built/internal/audit"
	"github.com/garnizeh/built/internal/auth"
	"github.com/garnizeh/built/pkg/models"
)

const refreshCookie = "refresh_token"

type signupRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(r, "signup", &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, pair, err := h.auth.Signup(r.Context(), auth.SignupInput{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondTokens(w, r, "SIGNUP", fmt.Sprintf("Created account with id %s", user.ID), user, pair)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, "login", &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, pair, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondTokens(w, r, "LOGIN", fmt.Sprintf("Logged onto the account with id %s", user.ID), user, pair)
}

// Refresh accepts the refresh token from the body or from the refresh cookie.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, "refresh", &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	if req.RefreshToken == "" {
		if c, err := r.Cookie(refreshCookie); err == nil {
			req.RefreshToken = c.Value
		}
	}
	if req.RefreshToken == "" {
		h.fail(w, r, apperror.Unauthorized("Missing refresh token"))
		return
	}

	user, pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondTokens(w, r, "REFRESH", fmt.Sprintf("Refreshed tokens for account with id %s", user.ID), user, pair)
}

func (h *Handlers) Signout(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())
	if uid == nil {
		h.fail(w, r, apperror.Unauthorized("Not authenticated"))
		return
	}

	if err := h.auth.Signout(r.Context(), *uid); err != nil {
		h.fail(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.cfg.Debug,
		SameSite: http.SameSiteLaxMode,
	})

	h.record(r, "SIGNOUT", fmt.Sprintf("Signed out of the account with id %s", *uid), nil, http.StatusOK)
	writeJSON(w, okResponse(), http.StatusOK)
}

// respondTokens audits the auth action and writes the token pair. With
// ?use_cookie=true the refresh token goes into an HttpOnly cookie instead of
// the body.
func (h *Handlers) respondTokens(w http.ResponseWriter, r *http.Request, action, message string, user *models.User, pair auth.TokenPair) {
	h.audit.Log(r.Context(), audit.Entry{Action: action, Message: message, UserID: &user.ID})

	resp := tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, TokenType: "bearer"}
	if r.URL.Query().Get("use_cookie") == "true" {
		http.SetCookie(w, &http.Cookie{
			Name:     refreshCookie,
			Value:    pair.RefreshToken,
			Path:     "/",
			Expires:  pair.RefreshExpires,
			MaxAge:   int(time.Until(pair.RefreshExpires).Seconds()),
			HttpOnly: true,
			Secure:   !h.cfg.Debug,
			SameSite: http.SameSiteLaxMode,
		})
		resp.RefreshToken = ""
	}

	writeJSON(w, entity(resp), http.StatusOK)
}
