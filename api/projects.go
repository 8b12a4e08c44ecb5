package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/apperror"
	"github.com/garnizeh/built/internal/jobs"
	"github.com/garnizeh/built/internal/repository/sqlite"
	"github.com/garnizeh/built/pkg/models"
)

type createProjectRequest struct {
	ID          *uuid.UUID    `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	StartDate   models.Date   `json:"start_date"`
	EndDate     models.Date   `json:"end_date"`
	Status      models.Status `json:"status"`
	TotalBudget float64       `json:"total_budget"`
}

type addCostRequest struct {
	Category    models.Category `json:"category"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	VendorName  string          `json:"vendor_name"`
}

type userSummary struct {
	ID       uuid.UUID `json:"id"`
	Username *string   `json:"username,omitempty"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
}

type projectView struct {
	*models.Project
	Owner *userSummary `json:"owner,omitempty"`
}

type costLine struct {
	Category    models.Category `json:"category"`
	Amount      float64         `json:"amount"`
	Vendor      string          `json:"vendor"`
	Description string          `json:"description"`
	Date        models.Date     `json:"date"`
}

type financialSummary struct {
	ProjectName     string     `json:"project_name"`
	TotalBudget     float64    `json:"total_budget"`
	TotalActual     float64    `json:"total_actual"`
	BudgetRemaining float64    `json:"budget_remaining"`
	CostBreakdown   []costLine `json:"cost_breakdown"`
}

func projectRef(p *models.Project) *uuid.UUID { return &p.ID }

// view attaches the owner summary. A missing owner is left out.
func (h *Handlers) view(ctx context.Context, p *models.Project) (projectView, error) {
	owner, err := sqlite.Read[models.User](ctx, h.gw, p.UserID, false)
	if err != nil {
		return projectView{}, err
	}
	v := projectView{Project: p}
	if owner != nil {
		v.Owner = &userSummary{ID: owner.ID, Username: owner.Username, Name: owner.Name, Email: owner.Email}
	}
	return v, nil
}

func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeBody(r, "project_create", &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if _, err := sqlite.Read[models.User](ctx, h.gw, req.UserID, true); err != nil {
		h.fail(w, r, err)
		return
	}

	p := &models.Project{
		UserID:      req.UserID,
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
		TotalBudget: req.TotalBudget,
	}
	if req.ID != nil {
		p.ID = *req.ID
	}

	created, err := sqlite.Create(ctx, h.gw, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v, err := h.view(ctx, created)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "CREATE_PROJECT", fmt.Sprintf("Created project with id of %s", created.ID), &created.ID, http.StatusOK)
	writeJSON(w, entity(v), http.StatusOK)
}

func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := sqlite.Read[models.Project](r.Context(), h.gw, id, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v, err := h.view(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "GET_PROJECT", fmt.Sprintf("Got project info for %s", id), &id, http.StatusOK)
	writeJSON(w, entity(v), http.StatusOK)
}

func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	listByParent[models.Project](h, w, r, "project", "user_id")
}

func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var patch models.ProjectPatch
	if err := decodeBody(r, "project_update", &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if patch.UserID != nil {
		if _, err := sqlite.Read[models.User](ctx, h.gw, *patch.UserID, true); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	p, err := sqlite.Update[models.Project](ctx, h.gw, id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v, err := h.view(ctx, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "UPDATE_PROJECT", fmt.Sprintf("Updated project with id %s", id), &id, http.StatusOK)
	writeJSON(w, entity(v), http.StatusOK)
}

// DeleteProject removes the project only. Its tasks, materials, budgets and
// cost entries are swept by a background job when enabled.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if _, err := sqlite.Delete[models.Project](r.Context(), h.gw, id); err != nil {
		h.fail(w, r, err)
		return
	}

	if h.cfg.Projects.SweepOrphans && h.jobs != nil {
		if _, err := h.jobs.Enqueue(r.Context(), jobs.TypeSweepOrphans, jobs.SweepPayload{ProjectID: id}, 100, 3); err != nil {
			logger.Warn("failed to enqueue orphan sweep", slog.String("project_id", id.String()), slog.Any("err", err))
		}
	}

	h.record(r, "DELETE_PROJECT", fmt.Sprintf("Deleted project with id %s", id), &id, http.StatusOK)
	writeJSON(w, okResponse(), http.StatusOK)
}

func (h *Handlers) GetProjectFinancials(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	p, err := sqlite.Read[models.Project](ctx, h.gw, id, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	costs, err := h.projectCosts(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	summary := financialSummary{
		ProjectName:   p.Name,
		TotalBudget:   p.TotalBudget,
		CostBreakdown: make([]costLine, 0, len(costs)),
	}
	for _, c := range costs {
		summary.TotalActual += c.Amount
		summary.CostBreakdown = append(summary.CostBreakdown, costLine{
			Category:    c.Category,
			Amount:      c.Amount,
			Vendor:      c.VendorName,
			Description: c.Description,
			Date:        c.DateIncurred,
		})
	}
	summary.BudgetRemaining = p.TotalBudget - summary.TotalActual

	h.record(r, "GET_PROJECT_FINANCIALS", fmt.Sprintf("Retrieved financials for project %s", id), &id, http.StatusOK)
	writeJSON(w, entity(summary), http.StatusOK)
}

// projectCosts pages through every cost entry of a project.
func (h *Handlers) projectCosts(ctx context.Context, projectID uuid.UUID) ([]*models.CostEntry, error) {
	var out []*models.CostEntry
	for offset := 0; ; offset += sqlite.MaxLimit {
		page, err := sqlite.ListFiltered[models.CostEntry](ctx, h.gw, sqlite.NewFilter(sqlite.FilterAll).Match("project_id", projectID).Page(sqlite.MaxLimit, offset))
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < sqlite.MaxLimit {
			return out, nil
		}
	}
}

func (h *Handlers) AddProjectCost(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req addCostRequest
	if err := decodeBody(r, "project_cost", &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if _, err := sqlite.Read[models.Project](ctx, h.gw, id, true); err != nil {
		h.fail(w, r, err)
		return
	}

	if req.VendorName == "" {
		req.VendorName = models.DefaultVendor
	}
	c, err := sqlite.Create(ctx, h.gw, &models.CostEntry{
		ProjectID:    id,
		Category:     req.Category,
		Description:  req.Description,
		Amount:       req.Amount,
		DateIncurred: models.Today(),
		VendorName:   req.VendorName,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "ADD_PROJECT_COST", fmt.Sprintf("Added cost $%.2f for %s to project %s", req.Amount, req.Description, id), &id, http.StatusOK)
	writeJSON(w, entity(c), http.StatusOK)
}

// requireProject checks that the referenced project exists.
func (h *Handlers) requireProject(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperror.NotFound("Project with id %s not found", id)
	}
	_, err := sqlite.Read[models.Project](ctx, h.gw, id, true)
	return err
}
