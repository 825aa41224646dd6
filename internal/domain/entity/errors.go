package entity

import (
	"errors"
	"fmt"
)

// ErrInvalidInput indicates that the provided input is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError represents a validation error with detailed field information.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Is reports ErrInvalidInput as a match so callers can test the whole class with errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
