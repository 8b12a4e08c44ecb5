// Package apperror defines the error taxonomy shared by the persistence
// gateway, the auth flow and the HTTP error translator.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindDomainInput  Kind = "domain_input"
	KindInternal     Kind = "internal"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
)

// Error is a classified failure carrying the HTTP status it maps to. Message
// is safe to show to clients; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: fmt.Sprintf(format, args...), Err: cause}
}

func Validation(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusUnprocessableEntity, Message: fmt.Sprintf(format, args...), Err: cause}
}

// DomainInput reports misuse of an operation's input contract. It maps to 404
// unless the caller raises the severity with WithStatus.
func DomainInput(format string, args ...any) *Error {
	return &Error{Kind: KindDomainInput, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func Internal(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...), Err: cause}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Status: http.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

// WithStatus returns a copy of e carrying status.
func (e *Error) WithStatus(status int) *Error {
	cp := *e
	cp.Status = status
	return &cp
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// StatusOf returns the HTTP status carried by err, or 500 for unclassified errors.
func StatusOf(err error) int {
	var rv *RequestValidationError
	if errors.As(err, &rv) {
		return http.StatusUnprocessableEntity
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// FieldError is one violated field of a request, Path in dotted form
// (e.g. "body.start_date").
type FieldError struct {
	Path    string
	Message string
}

func (f FieldError) String() string {
	return f.Path + ": " + f.Message
}

// RequestValidationError reports a malformed request rejected before it
// reaches the persistence gateway.
type RequestValidationError struct {
	Fields []FieldError
}

func (e *RequestValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, "["+f.String()+"]")
	}
	return "request validation failed: " + strings.Join(parts, " ")
}

// Add appends a field violation.
func (e *RequestValidationError) Add(path, message string) {
	e.Fields = append(e.Fields, FieldError{Path: path, Message: message})
}

// Err returns e when it holds at least one violation and nil otherwise.
func (e *RequestValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
