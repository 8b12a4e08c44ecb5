package db_test

import (
	"context"
	"testing"
	"testing/fstest"

	dbfs "github.com/garnizeh/built/db"
	"github.com/garnizeh/built/internal/db"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, tempDSN(t), nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	// Run again to ensure idempotency
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count < 2 {
		t.Fatalf("expected at least 2 migrations recorded, got %d", count)
	}

	for _, table := range []string{"users", "credentials", "projects", "tasks", "materials", "budgets", "cost_entries", "activity_logs", "jobs", "dead_letter_jobs"} {
		var name string
		row := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table)
		if err := row.Scan(&name); err != nil {
			t.Fatalf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestMigrate_FailingScriptIsNotRecorded(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, tempDSN(t), nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer d.Close()

	fsys := fstest.MapFS{
		"migrations/0001_ok.sql":  {Data: []byte(`CREATE TABLE a (id TEXT);`)},
		"migrations/0002_bad.sql": {Data: []byte(`CREATE TABLE oops (`)},
		"migrations/README.md":    {Data: []byte(`ignored`)},
	}

	if err := db.Migrate(ctx, d, fsys); err == nil {
		t.Fatalf("expected migrate to fail on a broken script")
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = '0002_bad'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed migration must not be recorded")
	}

	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = '0001_ok'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected first migration recorded, got %d", count)
	}
}
