package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/repository/sqlite"
	"github.com/garnizeh/built/pkg/models"
)

// TypeSweepOrphans removes the children left behind by a deleted project.
const TypeSweepOrphans = "project.sweep_orphans"

type SweepPayload struct {
	ProjectID uuid.UUID `json:"project_id"`
}

// SweepResult counts the rows removed per table.
type SweepResult struct {
	Tasks       int64
	Materials   int64
	Budgets     int64
	CostEntries int64
}

// SweepProject deletes every task, material, budget and cost entry that
// references projectID.
func SweepProject(ctx context.Context, gw *sqlite.Gateway, projectID uuid.UUID) (SweepResult, error) {
	var (
		res SweepResult
		err error
	)
	if res.Tasks, err = sqlite.DeleteWhere[models.Task](ctx, gw, "project_id", projectID); err != nil {
		return res, fmt.Errorf("sweep tasks: %w", err)
	}
	if res.Materials, err = sqlite.DeleteWhere[models.Material](ctx, gw, "project_id", projectID); err != nil {
		return res, fmt.Errorf("sweep materials: %w", err)
	}
	if res.Budgets, err = sqlite.DeleteWhere[models.Budget](ctx, gw, "project_id", projectID); err != nil {
		return res, fmt.Errorf("sweep budgets: %w", err)
	}
	if res.CostEntries, err = sqlite.DeleteWhere[models.CostEntry](ctx, gw, "project_id", projectID); err != nil {
		return res, fmt.Errorf("sweep cost entries: %w", err)
	}
	return res, nil
}

// NewSweepHandler returns the Handler for TypeSweepOrphans jobs.
func NewSweepHandler(gw *sqlite.Gateway, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, j *Job) error {
		var p SweepPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return fmt.Errorf("decode sweep payload: %w", err)
		}
		if p.ProjectID == uuid.Nil {
			return fmt.Errorf("sweep payload has no project_id")
		}

		res, err := SweepProject(ctx, gw, p.ProjectID)
		if err != nil {
			return err
		}
		logger.Info("project orphans swept",
			slog.String("project_id", p.ProjectID.String()),
			slog.Int64("tasks", res.Tasks),
			slog.Int64("materials", res.Materials),
			slog.Int64("budgets", res.Budgets),
			slog.Int64("cost_entries", res.CostEntries),
		)
		return nil
	}
}
