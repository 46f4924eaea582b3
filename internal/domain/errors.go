package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")

	// ErrFetchFailed marks a network or server failure while loading reference data.
	ErrFetchFailed = errors.New("reference data fetch failed")
	// ErrCorruptCache marks a durable snapshot that could not be decoded.
	ErrCorruptCache = errors.New("corrupt cache snapshot")
	// ErrStaleCache marks a durable snapshot older than the staleness window.
	ErrStaleCache = errors.New("stale cache snapshot")
	// ErrDictionaryNotFound is returned when a fresh snapshot has no dictionary with the requested code.
	ErrDictionaryNotFound = errors.New("dictionary not found")
	// ErrStoreClosed is returned by a cache store after Dispose.
	ErrStoreClosed = errors.New("cache store closed")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
