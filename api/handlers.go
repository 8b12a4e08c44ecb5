package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/apperror"
	"github.com/garnizeh/built/internal/audit"
	"github.com/garnizeh/built/internal/auth"
	"github.com/garnizeh/built/internal/config"
	"github.com/garnizeh/built/internal/repository/sqlite"
)

// Enqueuer schedules background jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

// Handlers holds the dependencies shared by every route handler.
type Handlers struct {
	cfg   *config.Config
	gw    *sqlite.Gateway
	audit *audit.Logger
	auth  *auth.Service
	jobs  Enqueuer
}

// NewHandlers wires the route handlers. jobs may be nil, in which case no
// background work is scheduled.
func NewHandlers(cfg *config.Config, gw *sqlite.Gateway, auditLogger *audit.Logger, authSvc *auth.Service, jobs Enqueuer) *Handlers {
	return &Handlers{cfg: cfg, gw: gw, audit: auditLogger, auth: authSvc, jobs: jobs}
}

// record writes a best-effort audit entry for the current request.
func (h *Handlers) record(r *http.Request, action, message string, projectID *uuid.UUID, status int) {
	h.audit.Log(r.Context(), audit.Entry{
		Action:     action,
		Message:    message,
		UserID:     userIDFrom(r.Context()),
		ProjectID:  projectID,
		StatusCode: status,
	})
}

// getOne serves GET /{kind}/{id}.
func getOne[T any, P sqlite.Record[T]](h *Handlers, w http.ResponseWriter, r *http.Request, kind string, projectOf func(P) *uuid.UUID) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	obj, err := sqlite.Read[T, P](r.Context(), h.gw, id, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "GET_"+strings.ToUpper(kind), fmt.Sprintf("Got %s info for %s", kind, id), projectOf(obj), http.StatusOK)
	writeJSON(w, entity(obj), http.StatusOK)
}

// deleteOne serves DELETE /{kind}/{id}.
func deleteOne[T any, P sqlite.Record[T]](h *Handlers, w http.ResponseWriter, r *http.Request, kind string, projectOf func(P) *uuid.UUID) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	obj, err := sqlite.Read[T, P](r.Context(), h.gw, id, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if _, err := sqlite.Delete[T, P](r.Context(), h.gw, id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, "DELETE_"+strings.ToUpper(kind), fmt.Sprintf("Deleted %s with id %s", kind, id), projectOf(obj), http.StatusOK)
	writeJSON(w, okResponse(), http.StatusOK)
}

// listByParent serves GET /{kind}/?{field}=&limit=&offset=. An empty page is
// still a 200 with an empty collection; the audit entry records it as 404.
func listByParent[T any, P sqlite.Record[T]](h *Handlers, w http.ResponseWriter, r *http.Request, kind, field string) {
	verr := &apperror.RequestValidationError{}
	parent := queryUUID(r, field, true, verr)
	limit, offset := pageParams(r, verr)
	if err := verr.Err(); err != nil {
		h.fail(w, r, err)
		return
	}

	items, err := sqlite.ListFiltered[T, P](r.Context(), h.gw, sqlite.NewFilter(sqlite.FilterAll).Match(field, parent).Page(limit, offset))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	status := http.StatusOK
	if len(items) == 0 {
		status = http.StatusNotFound
	}
	owner := strings.TrimSuffix(field, "_id")
	var projectID *uuid.UUID
	if field == "project_id" {
		projectID = &parent
	}
	h.record(r, "LIST_"+strings.ToUpper(kind)+"S", fmt.Sprintf("Listed %ss from %s %s", kind, owner, parent), projectID, status)

	writeJSON(w, collection(items), http.StatusOK)
}
