package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError represents a network-related failure
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	msg := "network error"
	if e.URL != "" {
		msg += fmt.Sprintf(" accessing %s", e.URL)
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status: %d %s)", e.Status, http.StatusText(e.Status))
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError represents a rejected URL or response
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s '%s': %s", e.Field, e.Value, e.Reason)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// RetryableError indicates the retry budget ran out
type RetryableError struct {
	Err      error
	Attempts int
}

func (e *RetryableError) Error() string {
	msg := fmt.Sprintf("giving up after %d attempts", e.Attempts)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error is retryable. Transport failures and 5xx
// responses are; everything else is deterministic.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		return false
	}
	return netErr.Status >= 500 || netErr.Status == 0
}
