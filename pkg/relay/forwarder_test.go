package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/backend"
	"mercator-hq/ganymede/pkg/config"
)

func testForwarderConfig(baseURL string, maxRetries int) *config.BackendConfig {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.MaxRetries = maxRetries
	cfg.Backend.RetryBaseDelay = time.Millisecond
	cfg.Backend.RetryMaxDelay = 10 * time.Millisecond
	cfg.Backend.RequestTimeout = 2 * time.Second
	return &cfg.Backend
}

func newTestForwarder(t *testing.T, baseURL string, maxRetries int) *Forwarder {
	t.Helper()
	cfg := testForwarderConfig(baseURL, maxRetries)
	client := backend.NewClient(cfg)
	t.Cleanup(client.Close)
	return NewForwarder(client, NewPolicy(cfg), cfg, nil, nil)
}

func TestForwarder_SuccessFirstAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	f := newTestForwarder(t, server.URL, 3)
	result, err := f.Forward(context.Background(), http.MethodPost, "/v1/chat/completions", []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	defer result.Response.Body.Close()

	if result.Outcome != OutcomeSuccess {
		t.Errorf("expected success outcome, got %s", result.Outcome)
	}
	if result.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", result.Attempts)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 backend call, got %d", calls.Load())
	}
}

func TestForwarder_RetriesTransientThenSucceeds(t *testing.T) {
	// 503 three times, then 200: with max_retries=3 the client sees the 200.
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices":[{"index":0}]}`))
	}))
	defer server.Close()

	f := newTestForwarder(t, server.URL, 3)
	result, err := f.Forward(context.Background(), http.MethodPost, "/v1/chat/completions", []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	defer result.Response.Body.Close()

	if result.Response.StatusCode != http.StatusOK {
		t.Errorf("expected relayed 200, got %d", result.Response.StatusCode)
	}
	if result.Attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", result.Attempts)
	}
}

func TestForwarder_ExhaustsRetryBudget(t *testing.T) {
	// Always-transient backend with max_retries=N makes exactly N+1 attempts.
	for _, maxRetries := range []int{0, 1, 2, 3} {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))

		f := newTestForwarder(t, server.URL, maxRetries)
		_, err := f.Forward(context.Background(), http.MethodPost, "/v1/chat/completions", []byte(`{}`), nil)

		var exhausted *RetriesExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("max_retries=%d: expected RetriesExhaustedError, got %v", maxRetries, err)
		}
		if want := int32(maxRetries + 1); calls.Load() != want {
			t.Errorf("max_retries=%d: expected %d attempts, got %d", maxRetries, want, calls.Load())
		}
		if exhausted.Attempts != maxRetries+1 {
			t.Errorf("max_retries=%d: error reports %d attempts", maxRetries, exhausted.Attempts)
		}
		server.Close()
	}
}

func TestForwarder_PermanentFailurePassthrough(t *testing.T) {
	const errorBody = `{"error":"bad model"}`
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(errorBody))
	}))
	defer server.Close()

	start := time.Now()
	f := newTestForwarder(t, server.URL, 3)
	result, err := f.Forward(context.Background(), http.MethodPost, "/v1/chat/completions", []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	defer result.Response.Body.Close()

	if result.Outcome != OutcomePermanent {
		t.Errorf("expected permanent outcome, got %s", result.Outcome)
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not be retried, got %d calls", calls.Load())
	}
	if result.Response.StatusCode != http.StatusBadRequest {
		t.Errorf("status not passed through: %d", result.Response.StatusCode)
	}
	body, _ := io.ReadAll(result.Response.Body)
	if string(body) != errorBody {
		t.Errorf("body not passed through unmodified: %q", body)
	}
	// No retry delay was observed.
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("permanent failure took %v, suggesting a backoff delay", elapsed)
	}
}

func TestForwarder_UnreachableBackendExhausts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := testForwarderConfig(url, 2)
	cfg.RetryBaseDelay = 20 * time.Millisecond
	cfg.RetryMaxDelay = time.Second
	client := backend.NewClient(cfg)
	defer client.Close()
	f := NewForwarder(client, NewPolicy(cfg), cfg, nil, nil)

	start := time.Now()
	_, err := f.Forward(context.Background(), http.MethodPost, "/v1/chat/completions", []byte(`{}`), nil)
	elapsed := time.Since(start)

	var exhausted *RetriesExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetriesExhaustedError, got %v", err)
	}
	var connErr *backend.ConnectionError
	if !errors.As(err, &connErr) {
		t.Errorf("expected cause to be a connection error, got %v", exhausted.Cause)
	}

	// Two backoff waits of ~20ms and ~40ms, jitter aside.
	if elapsed < 48*time.Millisecond {
		t.Errorf("expected cumulative backoff before giving up, finished in %v", elapsed)
	}
}

func TestForwarder_BackoffDelaysBetweenAttempts(t *testing.T) {
	var mu sync.Mutex
	var timestamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		timestamps = append(timestamps, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testForwarderConfig(server.URL, 2)
	cfg.RetryBaseDelay = 50 * time.Millisecond
	cfg.RetryMaxDelay = time.Second
	client := backend.NewClient(cfg)
	defer client.Close()
	f := NewForwarder(client, NewPolicy(cfg), cfg, nil, nil)

	_, err := f.Forward(context.Background(), http.MethodPost, "/v1/chat/completions", []byte(`{}`), nil)
	if err == nil {
		t.Fatal("expected error")
	}

	if len(timestamps) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(timestamps))
	}
	// Attempt gaps honor base*2^(k-1) with 20% jitter below.
	if gap := timestamps[1].Sub(timestamps[0]); gap < 40*time.Millisecond {
		t.Errorf("first backoff too short: %v", gap)
	}
	if gap := timestamps[2].Sub(timestamps[1]); gap < 80*time.Millisecond {
		t.Errorf("second backoff too short: %v", gap)
	}
}

func TestForwarder_ClientCancellationAbandonsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testForwarderConfig(server.URL, 10)
	cfg.RetryBaseDelay = 100 * time.Millisecond
	cfg.RetryMaxDelay = 10 * time.Second
	client := backend.NewClient(cfg)
	defer client.Close()
	f := NewForwarder(client, NewPolicy(cfg), cfg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond) // cancel during the first backoff
		cancel()
	}()

	start := time.Now()
	_, err := f.Forward(ctx, http.MethodPost, "/v1/chat/completions", []byte(`{}`), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation not prompt: took %v", elapsed)
	}
	if calls.Load() > 2 {
		t.Errorf("retries continued after cancellation: %d calls", calls.Load())
	}
}

func TestForwarder_AttemptTimeoutIsTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond) // exceed the attempt timeout
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := testForwarderConfig(server.URL, 2)
	cfg.RequestTimeout = 50 * time.Millisecond
	client := backend.NewClient(cfg)
	defer client.Close()
	f := NewForwarder(client, NewPolicy(cfg), cfg, nil, nil)

	result, err := f.Forward(context.Background(), http.MethodPost, "/v1/chat/completions", []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("expected timeout to be retried, got: %v", err)
	}
	defer result.Response.Body.Close()

	if result.Attempts != 2 {
		t.Errorf("expected 2 attempts (timeout then success), got %d", result.Attempts)
	}
}

func TestForwarder_FailFastShortCircuits(t *testing.T) {
	var calls atomic.Int32
	// The chat endpoint counts calls; the health endpoint always fails so the
	// probe reports unhealthy.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testForwarderConfig(server.URL, 1)
	cfg.ProbeInterval = 10 * time.Millisecond
	cfg.ProbeTimeout = time.Second
	cfg.FailFast = true

	fullCfg := &config.Config{Backend: *cfg}
	config.ApplyDefaults(fullCfg)
	dyn, err := config.NewDynamic(fullCfg)
	if err != nil {
		t.Fatalf("NewDynamic failed: %v", err)
	}

	client := backend.NewClient(cfg)
	defer client.Close()
	probe := backend.NewProbe(client, cfg, nil)
	probe.Start(context.Background())
	defer probe.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && probe.State().Status != backend.StatusUnhealthy {
		time.Sleep(5 * time.Millisecond)
	}
	if probe.State().Status != backend.StatusUnhealthy {
		t.Fatal("probe never reported unhealthy")
	}

	f := NewForwarder(client, NewPolicy(cfg), cfg, probe, dyn)
	_, err = f.Forward(context.Background(), http.MethodPost, "/v1/chat/completions", []byte(`{}`), nil)

	var unavailable *BackendUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected BackendUnavailableError, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("fail-fast still attempted the backend %d times", calls.Load())
	}
}

func TestClassify(t *testing.T) {
	mkResp := func(status int, body string) *http.Response {
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
		}
	}

	if o := Classify(nil, errors.New("boom")); o.Kind != OutcomeTransient {
		t.Errorf("transport error: expected transient, got %s", o.Kind)
	}
	if o := Classify(mkResp(200, `{}`), nil); o.Kind != OutcomeSuccess {
		t.Errorf("200: expected success, got %s", o.Kind)
	}
	if o := Classify(mkResp(404, `{}`), nil); o.Kind != OutcomePermanent {
		t.Errorf("404: expected permanent, got %s", o.Kind)
	}
	if o := Classify(mkResp(429, `{}`), nil); o.Kind != OutcomePermanent {
		t.Errorf("429: expected permanent, got %s", o.Kind)
	}

	o := Classify(mkResp(503, `overloaded`), nil)
	if o.Kind != OutcomeTransient {
		t.Errorf("503: expected transient, got %s", o.Kind)
	}
	var statusErr *backend.StatusError
	if !errors.As(o.Reason, &statusErr) {
		t.Fatalf("503: expected StatusError reason, got %v", o.Reason)
	}
	if statusErr.StatusCode != 503 || string(statusErr.Body) != "overloaded" {
		t.Errorf("503: reason not captured: %+v", statusErr)
	}
}
