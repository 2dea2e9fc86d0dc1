package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation signals a malformed query or option set.
	ErrValidation = errors.New("validation failed")
	// ErrIndexUnavailable signals that one record type's index failed or timed out.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrAllIndexesUnavailable signals that every requested index failed.
	ErrAllIndexesUnavailable = errors.New("search unavailable")
	// ErrThrottled signals that the caller exceeded its attempt budget.
	ErrThrottled = errors.New("too many attempts")
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for a field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ThrottledError wraps ErrThrottled with the time left in the window.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s: retry after %ds", ErrThrottled.Error(), int(e.RetryAfter.Seconds()))
}

func (e *ThrottledError) Unwrap() error { return ErrThrottled }
