package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the service and HTTP layers.
// Use errors.Is() to check for these in calling code.
var (
	// ErrNotFound indicates the requested entity does not exist or is not
	// visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the caller has no valid identity.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports a bad or missing input field. It maps to a 400
// response naming the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
