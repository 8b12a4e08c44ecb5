package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbfs "github.com/garnizeh/built/db"
	"github.com/garnizeh/built/api"
	"github.com/garnizeh/built/internal/audit"
	"github.com/garnizeh/built/internal/auth"
	"github.com/garnizeh/built/internal/db"
	"github.com/garnizeh/built/internal/repository/sqlite"
)

func newHandlers(t *testing.T) (*api.Handlers, *auth.Service) {
	t.Helper()
	ctx := context.Background()

	d, err := db.New(ctx, filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, db.Migrate(ctx, d, dbfs.Migrations))

	cfg := testConfig()
	gw := sqlite.New(d, nil)
	svc := auth.NewService(gw, cfg.Auth, nil)
	return api.NewHandlers(cfg, gw, audit.New(gw, nil), svc, nil), svc
}

func TestLoggingMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})

	w := httptest.NewRecorder()
	api.LoggingMiddleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/log", nil))

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusTeapot, res.StatusCode)
	b, _ := io.ReadAll(res.Body)
	assert.Equal(t, "ok", string(b))
}

func TestMetricsMiddleware_PassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	w := httptest.NewRecorder()
	api.MetricsMiddleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/m", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	t.Run("wildcard", func(t *testing.T) {
		handler := api.CORSMiddleware([]string{"*"})(next)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/cors", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.False(t, called)

		w = httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cors", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
		assert.True(t, called)
	})

	t.Run("listed origin", func(t *testing.T) {
		handler := api.CORSMiddleware([]string{"http://localhost:3000"})(next)

		req := httptest.NewRequest(http.MethodGet, "/cors", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

		req = httptest.NewRequest(http.MethodGet, "/cors", nil)
		req.Header.Set("Origin", "http://evil.example")
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORSPreflightThroughRouter(t *testing.T) {
	e := newEnv(t, nil)

	req := httptest.NewRequest(http.MethodOptions, prefix+"/project/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h, _ := newHandlers(t)
	handler := h.RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "error", out.Result)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "Internal Server Error", out.Errors[0].Title)
	assert.Equal(t, "An unhandled critical error occurred.", out.Errors[0].Detail)
}

func TestRecoveryMiddleware_AbortHandler(t *testing.T) {
	h, _ := newHandlers(t)
	handler := h.RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	})
}

func TestAuthMiddleware(t *testing.T) {
	h, svc := newHandlers(t)
	_, pair, err := svc.Signup(context.Background(), auth.SignupInput{
		Username: "ana",
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		required bool
		header   string
		want     int
	}{
		{"anonymous optional", false, "", http.StatusOK},
		{"anonymous required", true, "", http.StatusUnauthorized},
		{"wrong scheme", false, "Basic abc", http.StatusUnauthorized},
		{"empty bearer", true, "Bearer ", http.StatusUnauthorized},
		{"garbage token", true, "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"refresh token", true, "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"valid token", true, "Bearer " + pair.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := h.AuthMiddleware(svc.Issuer(), tt.required)(next)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
