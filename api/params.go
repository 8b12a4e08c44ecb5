package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/garnizeh/built/internal/apperror"
	"github.com/garnizeh/built/internal/repository/sqlite"
)

// pathUUID parses the mux path variable name as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		verr := &apperror.RequestValidationError{}
		verr.Add("path."+name, "Input should be a valid UUID")
		return uuid.Nil, verr
	}
	return id, nil
}

// queryUUID parses a query parameter as a UUID. A missing optional parameter
// yields uuid.Nil.
func queryUUID(r *http.Request, name string, required bool, verr *apperror.RequestValidationError) uuid.UUID {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			verr.Add("query."+name, "Field required")
		}
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		verr.Add("query."+name, "Input should be a valid UUID")
		return uuid.Nil
	}
	return id
}

// queryInt parses an integer query parameter, returning def when absent.
// Range checks belong to the gateway.
func queryInt(r *http.Request, name string, def int, verr *apperror.RequestValidationError) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		verr.Add("query."+name, "Input should be a valid integer")
		return def
	}
	return v
}

// pageParams reads limit and offset with the gateway defaults.
func pageParams(r *http.Request, verr *apperror.RequestValidationError) (int, int) {
	return queryInt(r, "limit", sqlite.DefaultLimit, verr), queryInt(r, "offset", 0, verr)
}

type ctxKey string

const ctxUserID ctxKey = "user_id"

func withUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserID, id)
}

// userIDFrom returns the authenticated user id, or nil for anonymous requests.
func userIDFrom(ctx context.Context) *uuid.UUID {
	id, ok := ctx.Value(ctxUserID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return nil
	}
	return &id
}
