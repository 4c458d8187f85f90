package engine

import (
	"errors"
	"fmt"
)

// ProcessError represents a failure of one processing run.
//
// Drops and missing signals are not errors; a ProcessError means the run
// could not produce a trustworthy result at all.
type ProcessError struct {
	// Code identifies the error category.
	Code ProcessErrorCode

	// Kind is the operation kind being processed, if any.
	Kind string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause.
	Err error
}

// ProcessErrorCode categorizes processing errors.
type ProcessErrorCode string

const (
	// ErrCodeNilStore indicates Process was called without a store.
	ErrCodeNilStore ProcessErrorCode = "NIL_STORE"

	// ErrCodeNoTable indicates the signature table is missing or empty.
	ErrCodeNoTable ProcessErrorCode = "NO_TABLE"

	// ErrCodeResolve indicates a resolver hit a precondition violation.
	ErrCodeResolve ProcessErrorCode = "RESOLVE_FAILED"
)

// Error implements the error interface.
func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Kind != "" {
		msg = fmt.Sprintf("%s (kind=%s)", msg, e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsResolveError returns true if err is a resolver precondition failure.
// Uses errors.As to handle wrapped errors.
func IsResolveError(err error) bool {
	var pe *ProcessError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeResolve
	}
	return false
}

func newResolveError(kind string, err error) *ProcessError {
	return &ProcessError{
		Code:    ErrCodeResolve,
		Kind:    kind,
		Message: "resolver failed",
		Err:     err,
	}
}
