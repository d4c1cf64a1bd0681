package metrics

import (
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels a terminal request outcome.
type Outcome string

const (
	// OutcomeSuccess means the backend response was relayed to the caller.
	OutcomeSuccess Outcome = "success"

	// OutcomePermanentFailure means the backend rejected the request with a
	// 4xx and the original error was passed through.
	OutcomePermanentFailure Outcome = "permanent_failure"

	// OutcomeRetriesExhausted means every attempt failed transiently and a
	// synthesized error was returned.
	OutcomeRetriesExhausted Outcome = "retries_exhausted"

	// OutcomeStreamInterrupted means the backend response could not be fully
	// relayed after streaming to the caller had begun.
	OutcomeStreamInterrupted Outcome = "stream_interrupted"
)

// Registry owns all Prometheus metrics for the relay. Every request and every
// health probe records through it; the underlying prometheus counters and
// histograms are safe under unbounded concurrent callers and never block.
//
// Metrics:
//   - <ns>_requests_total{outcome}: terminal request outcomes
//   - <ns>_errors_total: non-success terminal outcomes
//   - <ns>_backend_errors_total: requests that exhausted the retry budget
//   - <ns>_request_duration_seconds{outcome}: request duration histogram
//   - <ns>_request_attempts: backend attempts per request
//   - <ns>_backend_probes_total{result}: health probe results
type Registry struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	errorsTotal        prometheus.Counter
	backendErrorsTotal prometheus.Counter
	requestDuration    *prometheus.HistogramVec
	requestAttempts    prometheus.Histogram
	probesTotal        *prometheus.CounterVec
}

// NewRegistry creates and registers all relay metrics on a fresh Prometheus
// registry.
func NewRegistry(cfg *config.MetricsConfig) *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_total",
				Help:      "Total number of relayed requests by terminal outcome",
			},
			[]string{"outcome"},
		),

		errorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "errors_total",
				Help:      "Total number of requests that ended in an error",
			},
		),

		backendErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "backend_errors_total",
				Help:      "Total number of requests that exhausted the retry budget against the backend",
			},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of relayed requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"outcome"},
		),

		requestAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "request_attempts",
				Help:      "Number of backend attempts per request",
				Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
			},
		),

		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "backend_probes_total",
				Help:      "Total number of backend health probes by result",
			},
			[]string{"result"},
		),
	}

	r.registry.MustRegister(
		r.requestsTotal,
		r.errorsTotal,
		r.backendErrorsTotal,
		r.requestDuration,
		r.requestAttempts,
		r.probesTotal,
	)

	// Pre-create every label combination so all series are visible at zero
	// from the first scrape.
	for _, outcome := range []Outcome{
		OutcomeSuccess,
		OutcomePermanentFailure,
		OutcomeRetriesExhausted,
		OutcomeStreamInterrupted,
	} {
		r.requestsTotal.WithLabelValues(string(outcome))
		r.requestDuration.WithLabelValues(string(outcome))
	}
	r.probesTotal.WithLabelValues("success")
	r.probesTotal.WithLabelValues("failure")

	return r
}

// RecordRequest records a terminal request outcome. It is called exactly once
// per request, whatever the outcome.
func (r *Registry) RecordRequest(outcome Outcome, attempts int, duration time.Duration) {
	r.requestsTotal.WithLabelValues(string(outcome)).Inc()
	r.requestDuration.WithLabelValues(string(outcome)).Observe(duration.Seconds())
	if attempts > 0 {
		r.requestAttempts.Observe(float64(attempts))
	}

	if outcome != OutcomeSuccess {
		r.errorsTotal.Inc()
	}
	if outcome == OutcomeRetriesExhausted {
		r.backendErrorsTotal.Inc()
	}
}

// RecordProbe records a backend health probe result.
func (r *Registry) RecordProbe(success bool) {
	if success {
		r.probesTotal.WithLabelValues("success").Inc()
	} else {
		r.probesTotal.WithLabelValues("failure").Inc()
	}
}
