package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/repository/sqlite"
	"github.com/garnizeh/built/pkg/models"
)

type createCostRequest struct {
	ProjectID    uuid.UUID       `json:"project_id"`
	Category     models.Category `json:"category"`
	Description  string          `json:"description"`
	Amount       float64         `json:"amount"`
	DateIncurred *models.Date    `json:"date_incurred"`
	VendorName   string          `json:"vendor_name"`
}

func costProject(c *models.CostEntry) *uuid.UUID { return &c.ProjectID }

func (h *Handlers) CreateCost(w http.ResponseWriter, r *http.Request) {
	var req createCostRequest
	if err := decodeBody(r, "cost_create", &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if err := h.requireProject(ctx, req.ProjectID); err != nil {
		h.fail(w, r, err)
		return
	}

	c := &models.CostEntry{
		ProjectID:    req.ProjectID,
		Category:     req.Category,
		Description:  req.Description,
		Amount:       req.Amount,
		DateIncurred: models.Today(),
		VendorName:   req.VendorName,
	}
	if req.DateIncurred != nil {
		c.DateIncurred = *req.DateIncurred
	}
	if c.VendorName == "" {
		c.VendorName = models.DefaultVendor
	}

	created, err := sqlite.Create(ctx, h.gw, c)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "CREATE_COST", fmt.Sprintf("Created cost entry with id %s", created.ID), &created.ProjectID, http.StatusOK)
	writeJSON(w, entity(created), http.StatusOK)
}

func (h *Handlers) GetCost(w http.ResponseWriter, r *http.Request) {
	getOne(h, w, r, "cost", costProject)
}

func (h *Handlers) ListCosts(w http.ResponseWriter, r *http.Request) {
	listByParent[models.CostEntry](h, w, r, "cost", "project_id")
}

func (h *Handlers) UpdateCost(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var patch models.CostEntryPatch
	if err := decodeBody(r, "cost_update", &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := sqlite.Update[models.CostEntry](r.Context(), h.gw, id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "UPDATE_COST", fmt.Sprintf("Updated cost entry with id %s", id), &c.ProjectID, http.StatusOK)
	writeJSON(w, entity(c), http.StatusOK)
}

func (h *Handlers) DeleteCost(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, w, r, "cost", costProject)
}
