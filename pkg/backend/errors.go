package backend

import (
	"fmt"
	"time"
)

// StatusError represents a non-2xx response from the backend.
// The body is retained so 4xx responses can be passed through to the caller
// unchanged.
type StatusError struct {
	// StatusCode is the HTTP status code returned by the backend.
	StatusCode int

	// Body is the response body as returned by the backend.
	Body []byte

	// ContentType is the response Content-Type header.
	ContentType string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// ConnectionError represents a failure to reach the backend at all:
// connection refused, reset, DNS failure.
type ConnectionError struct {
	// URL is the backend URL that could not be reached.
	URL string

	// Cause is the underlying transport error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("backend %s unreachable: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents a backend call that exceeded the configured
// per-attempt timeout.
type TimeoutError struct {
	// Timeout is the configured per-attempt timeout.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("backend request timed out after %s", e.Timeout)
}
