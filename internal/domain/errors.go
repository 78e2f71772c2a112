package domain

import (
	"errors"
	"fmt"
)

// ErrCacheMiss indicates no cached entry was found.
var ErrCacheMiss = errors.New("cache miss")

// ErrAgentNotFound indicates the registry has no agent under that name.
var ErrAgentNotFound = errors.New("agent not found")

// ValidationError marks malformed or missing agent input. It is surfaced
// immediately and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a context field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransientError marks a provider failure worth retrying: timeouts,
// throttling, 5xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ParseError marks provider output that does not conform to the expected
// shape. Agents degrade per their documented policy rather than propagate.
type ParseError struct {
	Agent string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed in %s: %v", e.Agent, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
