package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/repository/sqlite"
	"github.com/garnizeh/built/pkg/models"
)

type createUserRequest struct {
	ID       *uuid.UUID `json:"id"`
	Username *string    `json:"username"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	IsActive *bool      `json:"is_active"`
}

type userView struct {
	*models.User
	Projects []*models.Project `json:"projects"`
}

func noProject[P any](P) *uuid.UUID { return nil }

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, "user_create", &req); err != nil {
		h.fail(w, r, err)
		return
	}

	u := &models.User{Username: req.Username, Name: req.Name, Email: req.Email, IsActive: true}
	if req.ID != nil {
		u.ID = *req.ID
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}

	created, err := sqlite.Create(r.Context(), h.gw, u)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "CREATE_USER", fmt.Sprintf("Created user with id %s", created.ID), nil, http.StatusOK)
	writeJSON(w, entity(userView{User: created, Projects: []*models.Project{}}), http.StatusOK)
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := sqlite.Read[models.User](r.Context(), h.gw, id, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	projects, err := sqlite.ListFiltered[models.Project](r.Context(), h.gw, sqlite.NewFilter(sqlite.FilterAll).Match("user_id", id).Page(sqlite.MaxLimit, 0))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "GET_USER", fmt.Sprintf("Got user info for %s", id), nil, http.StatusOK)
	writeJSON(w, entity(userView{User: u, Projects: projects}), http.StatusOK)
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var patch models.UserPatch
	if err := decodeBody(r, "user_update", &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := sqlite.Update[models.User](r.Context(), h.gw, id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "UPDATE_USER", fmt.Sprintf("Updated user with id %s", id), nil, http.StatusOK)
	writeJSON(w, entity(userView{User: u, Projects: []*models.Project{}}), http.StatusOK)
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, w, r, "user", noProject[*models.User])
}
