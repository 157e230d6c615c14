// Package apierr defines the closed set of error kinds that every
// caller-facing failure in the API is classified into. Callers match
// on these structurally (via As) rather than on error strings.
package apierr

import (
	"errors"
	"net/http"

	"github.com/mrshanahan/notes-service/pkg/notes"
)

type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeInternal   Code = "INTERNAL_ERROR"
)

// Error carries a stable machine-readable code, a default protocol
// status, a human-readable message, and (for validation failures) the
// per-field violations. Internal errors additionally wrap their cause
// so it can be logged server-side without being disclosed to callers.
type Error struct {
	Code    Code
	Status  int
	Message string
	Fields  []notes.FieldViolation

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func NewValidation(message string, fields ...notes.FieldViolation) *Error {
	return &Error{
		Code:    CodeValidation,
		Status:  http.StatusBadRequest,
		Message: message,
		Fields:  fields,
	}
}

func NewNotFound(message string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
		Message: message,
	}
}

func NewConflict(message string) *Error {
	return &Error{
		Code:    CodeConflict,
		Status:  http.StatusConflict,
		Message: message,
	}
}

// NewInternal wraps an unexpected failure. The message presented to
// callers is always generic; cause is for server-side logs only.
func NewInternal(cause error) *Error {
	return &Error{
		Code:    CodeInternal,
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
		cause:   cause,
	}
}

// As extracts an *Error from err's chain, reporting whether one was
// found.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
