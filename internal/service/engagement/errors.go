package engagement

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engagement service layer.
var (
	ErrNotFound      = errors.New("tracking record not found")
	ErrEmailRequired = errors.New("Email is required")
	ErrInvalidEmail  = errors.New("Please enter a valid email")
	ErrURLRequired   = errors.New("URL parameter is required")

	// ErrDuplicateTrackingID is returned by repositories when a tracking id
	// collides with an existing record.
	ErrDuplicateTrackingID = errors.New("tracking id already exists")
)

// ValidationError is returned when required input is missing or malformed.
// Handlers map it to 400.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure. Handlers map it to 500 and only
// expose the wrapped detail outside production.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
