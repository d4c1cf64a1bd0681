package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/ganymede/pkg/backend"
	"mercator-hq/ganymede/pkg/config"
)

// Result is the terminal result of forwarding one request.
// The response body is unread; the caller relays it downstream and owns
// closing it.
type Result struct {
	// Response is the backend response to relay. For OutcomeSuccess this is
	// a 2xx response; for OutcomePermanent it is the backend's 4xx passed
	// through unchanged.
	Response *http.Response

	// Outcome is OutcomeSuccess or OutcomePermanent.
	Outcome OutcomeKind

	// Attempts is how many backend calls were made.
	Attempts int
}

// Forwarder orchestrates a single client request against the backend: it
// drives the attempt loop, classifies outcomes, and applies the retry policy
// between attempts. All per-request state is local to the Forward call;
// a Forwarder is safe for concurrent use by any number of requests.
type Forwarder struct {
	client  *backend.Client
	policy  *Policy
	timeout time.Duration
	probe   *backend.Probe
	dynamic *config.Dynamic
	logger  *slog.Logger
}

// NewForwarder creates a forwarder. probe and dynamic may be nil, which
// disables fail-fast short-circuiting.
func NewForwarder(client *backend.Client, policy *Policy, cfg *config.BackendConfig, probe *backend.Probe, dynamic *config.Dynamic) *Forwarder {
	return &Forwarder{
		client:  client,
		policy:  policy,
		timeout: cfg.RequestTimeout,
		probe:   probe,
		dynamic: dynamic,
		logger:  slog.Default().With("component", "relay.forwarder"),
	}
}

// Forward sends the payload to the backend path and drives retries for
// transient failures. It returns a Result for success and permanent-failure
// outcomes, or an error: *RetriesExhaustedError when the retry budget is
// spent, *BackendUnavailableError when fail-fast rejects the request, or the
// context's error when the caller goes away.
//
// Attempts are strictly sequential; attempt N+1 begins only after attempt N
// is classified and, for transient failures, after the backoff delay has
// elapsed. The backoff wait is a context-aware sleep, so a disconnected
// caller abandons the request promptly instead of burning the remaining
// retry budget.
func (f *Forwarder) Forward(ctx context.Context, method, path string, body []byte, header http.Header) (*Result, error) {
	if f.shortCircuit() {
		state := f.probe.State()
		f.logger.Debug("fail-fast rejection, backend known unhealthy",
			"path", path,
			"last_error", state.LastError,
		)
		return nil, &BackendUnavailableError{Reason: state.LastError}
	}

	attempts := 0
	var lastReason error

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, timedOut, err := f.attempt(ctx, method, path, body, header)
		attempts++

		if timedOut {
			err = &backend.TimeoutError{Timeout: f.timeout}
		} else if err != nil && ctx.Err() != nil {
			// The caller disconnected mid-attempt; this is abandonment,
			// not a backend failure.
			return nil, ctx.Err()
		}

		outcome := Classify(resp, err)
		switch outcome.Kind {
		case OutcomeSuccess, OutcomePermanent:
			return &Result{
				Response: outcome.Response,
				Outcome:  outcome.Kind,
				Attempts: attempts,
			}, nil
		}

		lastReason = outcome.Reason
		decision := f.policy.Decide(attempts)
		if !decision.Retry {
			return nil, &RetriesExhaustedError{Attempts: attempts, Cause: lastReason}
		}

		f.logger.Debug("transient backend failure, retrying",
			"path", path,
			"attempt", attempts,
			"max_retries", f.policy.MaxRetries(),
			"delay", decision.Delay,
			"reason", lastReason,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(decision.Delay):
		}
	}
}

// attempt performs one backend call under the per-attempt timeout.
//
// The timeout is enforced with a cancel timer rather than a context
// deadline: it must bound the wait for response headers without putting a
// deadline on the response body, which for streaming completions stays open
// far longer than any sane per-attempt timeout. Once headers arrive the
// timer is stopped and the cancel is handed to the response body's Close.
func (f *Forwarder) attempt(ctx context.Context, method, path string, body []byte, header http.Header) (*http.Response, bool, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(f.timeout, cancel)

	resp, err := f.client.Do(attemptCtx, method, path, body, header)

	fired := !timer.Stop()
	if err != nil {
		cancel()
		if fired && ctx.Err() == nil {
			return nil, true, err
		}
		return nil, false, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, false, nil
}

// shortCircuit reports whether fail-fast mode should reject the request
// without attempting it. Only an explicit Unhealthy verdict short-circuits;
// the initial Unknown state always lets requests through. The probe keeps
// polling regardless, so the verdict can never latch.
func (f *Forwarder) shortCircuit() bool {
	if f.dynamic == nil || f.probe == nil || !f.dynamic.FailFast() {
		return false
	}
	return f.probe.State().Status == backend.StatusUnhealthy
}

// cancelOnClose releases an attempt's cancel func when the relayed response
// body is closed, so the transport resources tied to the attempt context are
// freed exactly when the relay finishes with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
