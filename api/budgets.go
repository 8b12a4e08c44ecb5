package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/repository/sqlite"
	"github.com/garnizeh/built/pkg/models"
)

type createBudgetRequest struct {
	ProjectID       uuid.UUID       `json:"project_id"`
	Category        models.Category `json:"category"`
	AllocatedAmount float64         `json:"allocated_amount"`
	SpentAmount     float64         `json:"spent_amount"`
}

func budgetProject(b *models.Budget) *uuid.UUID { return &b.ProjectID }

func (h *Handlers) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := decodeBody(r, "budget_create", &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if err := h.requireProject(ctx, req.ProjectID); err != nil {
		h.fail(w, r, err)
		return
	}

	b, err := sqlite.Create(ctx, h.gw, &models.Budget{
		ProjectID:       req.ProjectID,
		Category:        req.Category,
		AllocatedAmount: req.AllocatedAmount,
		SpentAmount:     req.SpentAmount,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "CREATE_BUDGET", fmt.Sprintf("Created budget with id %s", b.ID), &b.ProjectID, http.StatusOK)
	writeJSON(w, entity(b), http.StatusOK)
}

func (h *Handlers) GetBudget(w http.ResponseWriter, r *http.Request) {
	getOne(h, w, r, "budget", budgetProject)
}

func (h *Handlers) ListBudgets(w http.ResponseWriter, r *http.Request) {
	listByParent[models.Budget](h, w, r, "budget", "project_id")
}

func (h *Handlers) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var patch models.BudgetPatch
	if err := decodeBody(r, "budget_update", &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	b, err := sqlite.Update[models.Budget](r.Context(), h.gw, id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "UPDATE_BUDGET", fmt.Sprintf("Updated budget with id %s", id), &b.ProjectID, http.StatusOK)
	writeJSON(w, entity(b), http.StatusOK)
}

func (h *Handlers) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, w, r, "budget", budgetProject)
}
