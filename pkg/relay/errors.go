package relay

import "fmt"

// RetriesExhaustedError is the terminal error returned when every attempt in
// the retry budget failed transiently. The caller receives a synthesized 502
// rather than any of the intermediate backend failures.
type RetriesExhaustedError struct {
	// Attempts is the total number of attempts made.
	Attempts int

	// Cause is the classified reason of the final failed attempt.
	Cause error
}

// Error implements the error interface.
func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("backend request failed after %d attempts: %v", e.Attempts, e.Cause)
}

// Unwrap returns the final attempt's failure reason.
func (e *RetriesExhaustedError) Unwrap() error {
	return e.Cause
}

// BackendUnavailableError is returned when fail-fast mode rejects a request
// without attempting it because the health probe reports the backend down.
type BackendUnavailableError struct {
	// Reason is the last probe failure reason.
	Reason string
}

// Error implements the error interface.
func (e *BackendUnavailableError) Error() string {
	if e.Reason == "" {
		return "backend unavailable"
	}
	return fmt.Sprintf("backend unavailable: %s", e.Reason)
}
