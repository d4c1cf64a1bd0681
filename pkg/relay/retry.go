package relay

import (
	"math"
	"math/rand"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

// DefaultJitterFraction is the spread applied around each computed backoff
// delay. With many concurrent requests failing against the same backend,
// un-jittered exponential backoff synchronizes the retry waves; the spread
// breaks them up.
const DefaultJitterFraction = 0.2

// Decision is the result of a retry policy evaluation.
type Decision struct {
	// Retry is true if another attempt should be made after Delay.
	Retry bool

	// Delay is how long to wait before the next attempt. Zero when Retry
	// is false.
	Delay time.Duration
}

// Policy decides whether a transiently failed attempt is retried and how
// long to wait before the next attempt. Decide is a pure function of the
// attempt count and the policy's random source, so injecting a fixed source
// makes backoff sequences fully reproducible.
type Policy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	jitter     float64

	// random yields values in [0, 1). Defaults to math/rand/v2.
	random func() float64
}

// NewPolicy creates a retry policy from the backend configuration.
func NewPolicy(cfg *config.BackendConfig) *Policy {
	return &Policy{
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		maxDelay:   cfg.RetryMaxDelay,
		jitter:     DefaultJitterFraction,
		random:     rand.Float64,
	}
}

// MaxRetries returns the configured retry budget.
func (p *Policy) MaxRetries() int {
	return p.maxRetries
}

// Decide evaluates the policy after a transient failure. attempt is the
// number of attempts completed so far (1 after the initial attempt fails).
//
// The delay for attempt k is base * 2^(k-1), capped at the configured
// maximum, with ±jitter applied after the cap: delays at the cap still
// spread across [max*(1-jitter), max*(1+jitter)] rather than collapsing
// onto a single value. Retry is false once attempt exceeds the retry
// budget.
func (p *Policy) Decide(attempt int) Decision {
	if attempt > p.maxRetries {
		return Decision{Retry: false}
	}

	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}

	if p.jitter > 0 {
		// Scale by a factor uniform in [1-jitter, 1+jitter].
		delay *= 1 - p.jitter + 2*p.jitter*p.random()
	}

	return Decision{Retry: true, Delay: time.Duration(delay)}
}
