// Package audit records activity log entries. Writing an entry never fails
// the caller: store errors are logged and counted, then dropped.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/metrics"
	"github.com/garnizeh/built/internal/repository/sqlite"
	"github.com/garnizeh/built/pkg/models"
)

// MaxMessageLen is the longest action description stored, in characters.
const MaxMessageLen = 255

// Entry is one auditable event. A zero StatusCode means 200.
type Entry struct {
	Action     string
	Message    string
	UserID     *uuid.UUID
	ProjectID  *uuid.UUID
	StatusCode int
	Details    map[string]any
}

type Logger struct {
	gw     *sqlite.Gateway
	logger *slog.Logger
}

func New(gw *sqlite.Gateway, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{gw: gw, logger: logger}
}

// Log persists e as an ActivityLog row.
func (l *Logger) Log(ctx context.Context, e Entry) {
	status := e.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	rec := &models.ActivityLog{
		UserID:     e.UserID,
		ProjectID:  e.ProjectID,
		ActionType: e.Action,
		ActionDesc: Truncate(e.Message, MaxMessageLen),
		StatusCode: status,
		Timestamp:  models.Now(),
	}

	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			l.logger.Warn("audit details not serializable", slog.String("action", e.Action), slog.Any("err", err))
		} else {
			s := string(b)
			rec.Details = &s
		}
	}

	if _, err := sqlite.Create(ctx, l.gw, rec); err != nil {
		metrics.RecordAuditFailure()
		l.logger.Error("critical logging error",
			slog.String("action", e.Action),
			slog.Int("status_code", status),
			slog.Any("err", err),
		)
	}
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
