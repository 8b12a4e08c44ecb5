package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// EntityResponse wraps a single record.
type EntityResponse[T any] struct {
	Result   string `json:"result"`
	Response string `json:"response"`
	Data     T      `json:"data"`
}

// CollectionResponse wraps a list. Data is never encoded as null.
type CollectionResponse[T any] struct {
	Result   string `json:"result"`
	Response string `json:"response"`
	Data     []T    `json:"data"`
}

// OKResponse is the body of deletes and signout.
type OKResponse struct {
	Result string `json:"result"`
}

type ErrorDescription struct {
	ID      uuid.UUID `json:"id"`
	Status  int       `json:"status"`
	Title   string    `json:"title"`
	Detail  string    `json:"detail"`
	Context *string   `json:"context,omitempty"`
}

type ErrorResponse struct {
	Result string             `json:"result"`
	Errors []ErrorDescription `json:"errors"`
}

func entity[T any](data T) EntityResponse[T] {
	return EntityResponse[T]{Result: "ok", Response: "entity", Data: data}
}

func collection[T any](data []T) CollectionResponse[T] {
	if data == nil {
		data = []T{}
	}
	return CollectionResponse[T]{Result: "ok", Response: "collection", Data: data}
}

func okResponse() OKResponse {
	return OKResponse{Result: "ok"}
}

func newErrorDescription(status int, title, detail string) ErrorDescription {
	return ErrorDescription{ID: uuid.New(), Status: status, Title: title, Detail: detail}
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("err", err))
	}
}
