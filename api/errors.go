package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/garnizeh/built/internal/apperror"
	"github.com/garnizeh/built/internal/audit"
)

const (
	titleValidation = "Validation Error"
	titleError      = "Error"
	titleInternal   = "Internal Server Error"

	detailInternal = "An unhandled critical error occurred."
)

// translate maps err to its status and error descriptions.
func translate(err error) (int, []ErrorDescription) {
	var rv *apperror.RequestValidationError
	if errors.As(err, &rv) && len(rv.Fields) > 0 {
		out := make([]ErrorDescription, 0, len(rv.Fields))
		for _, f := range rv.Fields {
			out = append(out, newErrorDescription(http.StatusUnprocessableEntity, titleValidation, f.String()))
		}
		return http.StatusUnprocessableEntity, out
	}

	var ae *apperror.Error
	if errors.As(err, &ae) {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		detail := ae.Message
		if detail == "" {
			detail = http.StatusText(status)
		}
		return status, []ErrorDescription{newErrorDescription(status, titleError, detail)}
	}

	return http.StatusInternalServerError, []ErrorDescription{newErrorDescription(http.StatusInternalServerError, titleInternal, detailInternal)}
}

// fail writes the error envelope for err and records an API_CALL_FAIL entry.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, descs := translate(err)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Any("err", err),
		)
	}

	if status >= http.StatusBadRequest {
		entry := audit.Entry{
			Action:     "API_CALL_FAIL",
			Message:    fmt.Sprintf("%s: %s", descs[0].Title, descs[0].Detail),
			UserID:     userIDFrom(r.Context()),
			StatusCode: status,
		}
		if status >= http.StatusInternalServerError {
			entry.Details = map[string]any{
				"path":        r.URL.Path,
				"method":      r.Method,
				"error_class": fmt.Sprintf("%T", err),
			}
		}
		h.audit.Log(r.Context(), entry)
	}

	writeJSON(w, ErrorResponse{Result: "error", Errors: descs}, status)
}

// panicError carries a recovered panic value into the translator.
type panicError struct {
	value any
}

func (p panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }
