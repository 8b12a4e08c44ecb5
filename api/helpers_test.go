package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	dbfs "github.com/garnizeh/built/db"
	"github.com/garnizeh/built/api"
	"github.com/garnizeh/built/internal/config"
	"github.com/garnizeh/built/internal/db"
)

const prefix = "/api/v1"

func init() {
	api.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type env struct {
	router *mux.Router
	db     *db.DB
	cfg    *config.Config
	jobs   *fakeJobs
}

// fakeJobs records enqueued jobs instead of running them.
type fakeJobs struct {
	mu   sync.Mutex
	jobs []string
}

func (f *fakeJobs) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, typ)
	return int64(len(f.jobs)), nil
}

func (f *fakeJobs) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.jobs...)
}

func testConfig() *config.Config {
	return &config.Config{
		Addr:          ":0",
		APIPrefix:     prefix,
		DatabasePath:  "unused",
		CORSOrigins:   []string{"*"},
		Debug:         true,
		MetricsEnable: true,
		Auth: config.AuthConfig{
			JWTSecret:        "test-access-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenTTL:   time.Minute,
			RefreshTokenTTL:  time.Hour,
			MaxLoginAttempts: 3,
			LockoutCooldown:  time.Minute,
		},
		Projects: config.ProjectConfig{SweepOrphans: true},
	}
}

func newEnv(t *testing.T, mutate func(*config.Config)) *env {
	t.Helper()
	ctx := context.Background()

	d, err := db.New(ctx, filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, db.Migrate(ctx, d, dbfs.Migrations))

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	jobs := &fakeJobs{}
	return &env{router: api.SetupRoutes(cfg, "1.2.3", "now", d, jobs), db: d, cfg: cfg, jobs: jobs}
}

type envelope struct {
	Result   string          `json:"result"`
	Response string          `json:"response"`
	Data     json.RawMessage `json:"data"`
	Errors   []struct {
		ID     string `json:"id"`
		Status int    `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (e *env) do(t *testing.T, method, path string, body any, header ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func decodeData[T any](t *testing.T, out envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(out.Data, &v))
	return v
}

type idOnly struct {
	ID string `json:"id"`
}

func (e *env) createUser(t *testing.T, name, email string) string {
	t.Helper()
	rec, out := e.do(t, http.MethodPost, prefix+"/user/", map[string]any{"name": name, "email": email})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeData[idOnly](t, out).ID
}

func (e *env) createProject(t *testing.T, userID, name string, budget float64) string {
	t.Helper()
	rec, out := e.do(t, http.MethodPost, prefix+"/project/", map[string]any{
		"user_id":      userID,
		"name":         name,
		"start_date":   "2024-01-01",
		"end_date":     "2024-12-31",
		"status":       "pending",
		"total_budget": budget,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeData[idOnly](t, out).ID
}
