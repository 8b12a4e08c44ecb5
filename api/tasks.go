package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/repository/sqlite"
	"github.com/garnizeh/built/pkg/models"
)

type createTaskRequest struct {
	ProjectID   uuid.UUID     `json:"project_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	DueDate     models.Date   `json:"due_date"`
	Status      models.Status `json:"status"`
}

func taskProject(t *models.Task) *uuid.UUID { return &t.ProjectID }

func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeBody(r, "task_create", &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if err := h.requireProject(ctx, req.ProjectID); err != nil {
		h.fail(w, r, err)
		return
	}

	if req.Status == "" {
		req.Status = models.StatusPending
	}
	t, err := sqlite.Create(ctx, h.gw, &models.Task{
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "CREATE_TASK", fmt.Sprintf("Created task with id %s", t.ID), &t.ProjectID, http.StatusOK)
	writeJSON(w, entity(t), http.StatusOK)
}

func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	getOne(h, w, r, "task", taskProject)
}

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	listByParent[models.Task](h, w, r, "task", "project_id")
}

func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var patch models.TaskPatch
	if err := decodeBody(r, "task_update", &patch); err != nil {
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

	t, err := sqlite.Update[models.Task](ctx, h.gw, id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "UPDATE_TASK", fmt.Sprintf("Updated task with id %s", id), &t.ProjectID, http.StatusOK)
	writeJSON(w, entity(t), http.StatusOK)
}

func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, w, r, "task", taskProject)
}
