package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy callers branch on with errors.Is.
var (
	// ErrNotFound: a referenced list/page/annotation does not exist.
	// Policy varies by call site: annotation-to-list operations surface
	// it, bulk tab-to-list operations silently skip.
	ErrNotFound = errors.New("not found")

	// ErrValidation: a malformed parameter bound to a typed placeholder.
	ErrValidation = errors.New("validation error")

	// ErrConflict: unique-constraint violation (e.g. list name).
	ErrConflict = errors.New("conflict")
)

// NotFoundError carries entity kind and identifier so surfaced failures can
// render a meaningful message.
type NotFoundError struct {
	Kind string
	ID   any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s exists for ID: %v", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports a mismatched or missing operation parameter.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports a unique-index violation.
type ConflictError struct {
	Collection string
	Field      string
	Value      any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: duplicate value for unique field %q: %v",
		e.Collection, e.Field, e.Value)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
