package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPeriodLocked       = New("PERIOD_LOCKED", http.StatusConflict, "teacher already committed in this period")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// ValidationFailure carries field-level reasons for a rejected payload.
type ValidationFailure struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validation builds a VALIDATION_ERROR carrying per-field reasons.
func Validation(failures []ValidationFailure) *Error {
	if len(failures) == 0 {
		return Clone(ErrValidation, "")
	}
	msg := failures[0].Field + ": " + failures[0].Reason
	if len(failures) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(failures)-1)
	}
	e := Clone(ErrValidation, msg)
	e.Err = &fieldErrors{failures: failures}
	return e
}

// Fields extracts field-level failures from a validation error, if any.
func Fields(err error) []ValidationFailure {
	var fe *fieldErrors
	if errors.As(err, &fe) {
		return fe.failures
	}
	return nil
}

type fieldErrors struct {
	failures []ValidationFailure
}

func (f *fieldErrors) Error() string {
	return fmt.Sprintf("%d field errors", len(f.failures))
}
