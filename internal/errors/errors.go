package errors

import (
	"errors"
	"fmt"
)

// Application-specific errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoSnapshot         = errors.New("alert snapshot not loaded yet")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// ValidationError marks malformed input in the risk-computation path. The
// core fails fast on these instead of coercing to defaults, because a silent
// zero here would surface as a wrong risk tier.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// FeedError represents a failure talking to the upstream alert feed.
type FeedError struct {
	URL string
	Err error
}

func (e FeedError) Error() string {
	return fmt.Sprintf("feed error fetching %s: %v", e.URL, e.Err)
}

func (e FeedError) Unwrap() error {
	return e.Err
}

// StoreError represents an event-store failure.
type StoreError struct {
	Operation string
	Err       error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Operation, e.Err)
}

func (e StoreError) Unwrap() error {
	return e.Err
}
