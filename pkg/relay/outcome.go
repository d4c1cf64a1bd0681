package relay

import (
	"io"
	"net/http"

	"mercator-hq/ganymede/pkg/backend"
)

// OutcomeKind tags the classification of a single backend attempt.
type OutcomeKind int

const (
	// OutcomeSuccess: 2xx from the backend; the response is relayed.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeTransient: the attempt failed in a way retrying may fix —
	// connection refused or reset, attempt timeout, 5xx from the backend.
	OutcomeTransient

	// OutcomePermanent: the backend rejected the request (4xx). Retrying
	// will not change the answer; the original response is passed through.
	OutcomePermanent
)

// String returns the outcome kind as a lowercase string.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient_failure"
	case OutcomePermanent:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one backend attempt.
// Success and Permanent outcomes carry the backend response with its body
// unread; Transient outcomes carry only the failure reason, the response
// body (if any) having been drained and closed.
type Outcome struct {
	Kind     OutcomeKind
	Response *http.Response
	Reason   error
}

// transientBodyLimit bounds how much of a 5xx body is retained as the
// failure reason.
const transientBodyLimit = 4096

// Classify turns the raw result of a backend call into an Outcome.
// err, if non-nil, is a transport-level failure and the response is nil.
func Classify(resp *http.Response, err error) Outcome {
	if err != nil {
		return Outcome{Kind: OutcomeTransient, Reason: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Outcome{Kind: OutcomeSuccess, Response: resp}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Outcome{Kind: OutcomePermanent, Response: resp}

	default:
		// 5xx (and anything else unexpected, e.g. an unfollowed redirect)
		// is worth a retry. Drain the body so the connection is reusable
		// and keep a bounded slice of it as the reason.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, transientBodyLimit))
		resp.Body.Close()
		return Outcome{
			Kind: OutcomeTransient,
			Reason: &backend.StatusError{
				StatusCode:  resp.StatusCode,
				Body:        body,
				ContentType: resp.Header.Get("Content-Type"),
			},
		}
	}
}
