package ai

import "fmt"

// Error is the single error type surfaced by providers. The Retryable
// flag drives both the provider-internal retry loop and the caller's
// batch retry through retry.IsRetryable, which asks errors whether they
// classify themselves.
type Error struct {
	// Provider is the backend name the call went to.
	Provider string

	// Operation is the activity that issued the call.
	Operation string

	// Message describes what failed.
	Message string

	// Retryable marks transient failures (rate limit, 5xx, timeout).
	// Malformed output and exhausted budgets are permanent for this run.
	Retryable bool

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Operation, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is worth another attempt.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}
