package errors

import "errors"

// Common application errors.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned when the caller is not authenticated.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned for invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a write collides with existing state (e.g. a unique key).
	ErrConflict = errors.New("resource state conflict")
)
