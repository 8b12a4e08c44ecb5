package jobs_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbfs "github.com/garnizeh/built/db"
	"github.com/garnizeh/built/internal/db"
	"github.com/garnizeh/built/internal/jobs"
	"github.com/garnizeh/built/internal/repository/sqlite"
	"github.com/garnizeh/built/pkg/models"
)

func setupDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()

	d, err := db.New(ctx, filepath.Join(t.TempDir(), "test.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, db.Migrate(ctx, d, dbfs.Migrations))
	return d
}

func TestBackoffDuration(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{8, 256 * time.Second},
		{9, 5 * time.Minute},
		{64, 5 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, jobs.BackoffDuration(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRepository_FetchNextClaims(t *testing.T) {
	ctx := context.Background()
	repo := jobs.NewRepository(setupDB(t))

	low, err := repo.Enqueue(ctx, &jobs.Job{Type: "a", Payload: []byte(`{}`), Priority: 50})
	require.NoError(t, err)
	high, err := repo.Enqueue(ctx, &jobs.Job{Type: "b", Payload: []byte(`{}`), Priority: 10})
	require.NoError(t, err)

	j, err := repo.FetchNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, high, j.ID)
	assert.Equal(t, jobs.StatusRunning, j.Status)
	assert.Equal(t, jobs.DefaultMaxAttempts, j.MaxAttempts)

	j, err = repo.FetchNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, low, j.ID)

	j, err = repo.FetchNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestRepository_FutureJobNotDue(t *testing.T) {
	ctx := context.Background()
	repo := jobs.NewRepository(setupDB(t))

	_, err := repo.Enqueue(ctx, &jobs.Job{Type: "later", ScheduledAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	j, err := repo.FetchNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestEnqueueAndProcess(t *testing.T) {
	ctx := context.Background()
	repo := jobs.NewRepository(setupDB(t))

	handled := make(chan string, 1)
	handlers := map[string]jobs.Handler{
		"test": func(ctx context.Context, j *jobs.Job) error {
			handled <- string(j.Payload)
			return nil
		},
	}
	pool := jobs.NewWorkerPool(repo, handlers, nil, 1, 10*time.Millisecond)
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "test", map[string]string{"foo": "bar"}, 10, 3)
	require.NoError(t, err)

	select {
	case got := <-handled:
		assert.JSONEq(t, `{"foo":"bar"}`, got)
	case <-time.After(3 * time.Second):
		t.Fatalf("handler was not called")
	}

	require.Eventually(t, func() bool {
		j, err := repo.Get(ctx, id)
		return err == nil && j != nil && j.Status == jobs.StatusDone
	}, 3*time.Second, 10*time.Millisecond)
}

func TestFailingJobGoesToDeadLetter(t *testing.T) {
	ctx := context.Background()
	repo := jobs.NewRepository(setupDB(t))

	var calls atomic.Int32
	handlers := map[string]jobs.Handler{
		"boom": func(ctx context.Context, j *jobs.Job) error {
			calls.Add(1)
			return errors.New("boom")
		},
	}
	pool := jobs.NewWorkerPool(repo, handlers, nil, 1, 10*time.Millisecond)
	pool.Start(ctx)
	defer pool.Stop()

	_, err := pool.Enqueue(ctx, "boom", nil, 0, 1)
	require.NoError(t, err)
	_, err = pool.Enqueue(ctx, "unknown", nil, 0, 3)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		a, _ := repo.CountDeadLetters(ctx, "boom")
		b, _ := repo.CountDeadLetters(ctx, "unknown")
		return a == 1 && b == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
}

func TestRetryIsRescheduled(t *testing.T) {
	ctx := context.Background()
	repo := jobs.NewRepository(setupDB(t))

	handlers := map[string]jobs.Handler{
		"flaky": func(ctx context.Context, j *jobs.Job) error { return errors.New("not yet") },
	}
	pool := jobs.NewWorkerPool(repo, handlers, nil, 1, 10*time.Millisecond)
	pool.Start(ctx)

	id, err := pool.Enqueue(ctx, "flaky", nil, 0, 3)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		j, err := repo.Get(ctx, id)
		return err == nil && j != nil && j.Status == jobs.StatusRetry
	}, 3*time.Second, 10*time.Millisecond)
	pool.Stop()

	j, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, j.Attempts)
	assert.Equal(t, "not yet", j.LastError)
	require.NotNil(t, j.NextTryAt)
	assert.True(t, j.NextTryAt.After(time.Now()))
}

func TestStopWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := jobs.NewWorkerPool(jobs.NewRepository(setupDB(t)), nil, nil, 2, time.Hour)
	pool.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop")
	}
	pool.Stop()
}

func TestSweepHandler(t *testing.T) {
	ctx := context.Background()
	d := setupDB(t)
	gw := sqlite.New(d, nil)
	repo := jobs.NewRepository(d)

	project := uuid.New()
	keep := uuid.New()
	for _, pid := range []uuid.UUID{project, keep} {
		_, err := sqlite.Create(ctx, gw, &models.Task{ProjectID: pid, Name: "t", DueDate: models.NewDate(2024, 1, 2), Status: models.StatusPending})
		require.NoError(t, err)
		_, err = sqlite.Create(ctx, gw, &models.Material{ProjectID: pid, Name: "m", Unit: "kg"})
		require.NoError(t, err)
		_, err = sqlite.Create(ctx, gw, &models.Budget{ProjectID: pid, Category: models.CategoryLabor})
		require.NoError(t, err)
		_, err = sqlite.Create(ctx, gw, &models.CostEntry{ProjectID: pid, Category: models.CategoryLabor, Amount: 10, DateIncurred: models.Today(), VendorName: "Unknown"})
		require.NoError(t, err)
	}

	pool := jobs.NewWorkerPool(repo, map[string]jobs.Handler{
		jobs.TypeSweepOrphans: jobs.NewSweepHandler(gw, nil),
	}, nil, 1, 10*time.Millisecond)
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, jobs.TypeSweepOrphans, jobs.SweepPayload{ProjectID: project}, 100, 3)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		j, err := repo.Get(ctx, id)
		return err == nil && j != nil && j.Status == jobs.StatusDone
	}, 3*time.Second, 10*time.Millisecond)

	byProject := sqlite.NewFilter(sqlite.FilterAll).Match("project_id", project)
	tasks, err := sqlite.ListFiltered[models.Task](ctx, gw, byProject)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	costs, err := sqlite.ListFiltered[models.CostEntry](ctx, gw, byProject)
	require.NoError(t, err)
	assert.Empty(t, costs)

	kept, err := sqlite.ListFiltered[models.Material](ctx, gw, sqlite.NewFilter(sqlite.FilterAll).Match("project_id", keep))
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestSweepHandler_BadPayload(t *testing.T) {
	h := jobs.NewSweepHandler(sqlite.New(setupDB(t), nil), nil)
	assert.Error(t, h(context.Background(), &jobs.Job{Payload: []byte(`{}`)}))
	assert.Error(t, h(context.Background(), &jobs.Job{Payload: []byte(`nope`)}))
}
