package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRegistry() *Registry {
	return NewRegistry(&config.MetricsConfig{
		Namespace:              "ganymede",
		RequestDurationBuckets: config.DefaultRequestDurationBuckets,
	})
}

func TestRegistry_RecordRequestOutcomes(t *testing.T) {
	r := newTestRegistry()

	r.RecordRequest(OutcomeSuccess, 1, 100*time.Millisecond)
	r.RecordRequest(OutcomeSuccess, 2, 100*time.Millisecond)
	r.RecordRequest(OutcomePermanentFailure, 1, 50*time.Millisecond)
	r.RecordRequest(OutcomeRetriesExhausted, 4, 700*time.Millisecond)

	if got := testutil.ToFloat64(r.requestsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("expected 2 success requests, got %v", got)
	}
	if got := testutil.ToFloat64(r.requestsTotal.WithLabelValues("permanent_failure")); got != 1 {
		t.Errorf("expected 1 permanent failure, got %v", got)
	}
	if got := testutil.ToFloat64(r.requestsTotal.WithLabelValues("retries_exhausted")); got != 1 {
		t.Errorf("expected 1 retries exhausted, got %v", got)
	}

	// errors_total counts non-success outcomes only.
	if got := testutil.ToFloat64(r.errorsTotal); got != 2 {
		t.Errorf("expected 2 errors, got %v", got)
	}

	// backend_errors_total counts only exhausted retry budgets.
	if got := testutil.ToFloat64(r.backendErrorsTotal); got != 1 {
		t.Errorf("expected 1 backend error, got %v", got)
	}
}

func TestRegistry_RecordProbe(t *testing.T) {
	r := newTestRegistry()

	r.RecordProbe(true)
	r.RecordProbe(true)
	r.RecordProbe(false)

	if got := testutil.ToFloat64(r.probesTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("expected 2 successful probes, got %v", got)
	}
	if got := testutil.ToFloat64(r.probesTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("expected 1 failed probe, got %v", got)
	}
}

func TestRegistry_ConcurrentIncrementsAreNotLost(t *testing.T) {
	r := newTestRegistry()

	const goroutines = 50
	const perGoroutine = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				r.RecordRequest(OutcomeSuccess, 1, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	want := float64(goroutines * perGoroutine)
	if got := testutil.ToFloat64(r.requestsTotal.WithLabelValues("success")); got != want {
		t.Errorf("lost increments under concurrency: want %v, got %v", want, got)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := newTestRegistry()
	r.RecordRequest(OutcomeSuccess, 1, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "ganymede_requests_total") {
		t.Errorf("exposition missing ganymede_requests_total:\n%s", body)
	}
	if !strings.Contains(body, "ganymede_request_duration_seconds") {
		t.Errorf("exposition missing ganymede_request_duration_seconds")
	}
}
