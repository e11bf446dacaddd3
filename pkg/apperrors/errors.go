// Package apperrors defines the error taxonomy shared across the engine.
//
// Every caller-correctable error carries the allowed set of values in its
// message so a conversational caller (human or model) can self-correct
// without inspecting logs.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTimeout        = errors.New("operation timed out")
	ErrUnknownSource  = errors.New("unknown data source")
	ErrUnknownProduct = errors.New("unknown product")
	ErrRateLimited    = errors.New("rate limit exceeded")
)

// InvalidParameterError reports a bad parameter along with the valid set.
type InvalidParameterError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *InvalidParameterError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s: %q (allowed: %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// NewInvalidParameter creates an InvalidParameterError.
func NewInvalidParameter(field, value string, allowed []string) *InvalidParameterError {
	return &InvalidParameterError{Field: field, Value: value, Allowed: allowed}
}

// IsInvalidParameter reports whether err is an InvalidParameterError.
func IsInvalidParameter(err error) bool {
	var ipe *InvalidParameterError
	return errors.As(err, &ipe)
}

// FilterTooLargeError reports a filter list or value exceeding the caps.
// Violations are hard rejections, never silent truncation: a truncated
// filter would produce a query that answers a different question than asked.
type FilterTooLargeError struct {
	Field string
	Count int
	Max   int
}

func (e *FilterTooLargeError) Error() string {
	return fmt.Sprintf("filter %s too large: %d entries (max %d)", e.Field, e.Count, e.Max)
}

// IsFilterTooLarge reports whether err is a FilterTooLargeError.
func IsFilterTooLarge(err error) bool {
	var fte *FilterTooLargeError
	return errors.As(err, &fte)
}

// ExecutionError wraps a failure from the underlying query engine. It is
// surfaced verbatim and never retried automatically.
type ExecutionError struct {
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// IsExecution reports whether err is an ExecutionError.
func IsExecution(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

// IsTimeout reports whether err represents a timeout. Context deadline
// errors from the engine or the LLM are normalized to ErrTimeout so the
// caller can decide to retry with a narrower time window.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
