package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/repository/sqlite"
	"github.com/garnizeh/built/pkg/models"
)

type createMaterialRequest struct {
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"`
	QtyNeeded   int       `json:"qty_needed"`
	QtyAcquired int       `json:"qty_acquired"`
	Unit        string    `json:"unit"`
	UnitCost    float64   `json:"unit_cost"`
	TotalCost   *float64  `json:"total_cost"`
}

func materialProject(m *models.Material) *uuid.UUID { return &m.ProjectID }

func (h *Handlers) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req createMaterialRequest
	if err := decodeBody(r, "material_create", &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if err := h.requireProject(ctx, req.ProjectID); err != nil {
		h.fail(w, r, err)
		return
	}

	m := &models.Material{
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		QtyNeeded:   req.QtyNeeded,
		QtyAcquired: req.QtyAcquired,
		Unit:        req.Unit,
		UnitCost:    req.UnitCost,
		TotalCost:   float64(req.QtyNeeded) * req.UnitCost,
	}
	if req.TotalCost != nil {
		m.TotalCost = *req.TotalCost
	}

	created, err := sqlite.Create(ctx, h.gw, m)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "CREATE_MATERIAL", fmt.Sprintf("Created material with id %s", created.ID), &created.ProjectID, http.StatusOK)
	writeJSON(w, entity(created), http.StatusOK)
}

func (h *Handlers) GetMaterial(w http.ResponseWriter, r *http.Request) {
	getOne(h, w, r, "material", materialProject)
}

func (h *Handlers) ListMaterials(w http.ResponseWriter, r *http.Request) {
	listByParent[models.Material](h, w, r, "material", "project_id")
}

func (h *Handlers) UpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var patch models.MaterialPatch
	if err := decodeBody(r, "material_update", &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if patch.ProjectID != nil {
		if err := h.requireProject(ctx, *patch.ProjectID); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	m, err := sqlite.Update[models.Material](ctx, h.gw, id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "UPDATE_MATERIAL", fmt.Sprintf("Updated material with id %s", id), &m.ProjectID, http.StatusOK)
	writeJSON(w, entity(m), http.StatusOK)
}

func (h *Handlers) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, w, r, "material", materialProject)
}
