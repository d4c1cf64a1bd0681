package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

// Status is the probed backend health status.
type Status int

const (
	// StatusUnknown is the initial state before the first probe completes.
	StatusUnknown Status = iota

	// StatusHealthy means the last probe succeeded.
	StatusHealthy

	// StatusUnhealthy means the last probe failed.
	StatusUnhealthy
)

// String returns the status as a lowercase string.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HealthState is the backend health snapshot maintained by the probe.
// It is updated atomically on every probe cycle; readers never observe a
// partially updated transition.
type HealthState struct {
	// Status is the current probed status.
	Status Status

	// LastChecked is when the most recent probe completed.
	LastChecked time.Time

	// LastError is the reason for the most recent failed probe, empty when
	// the backend is healthy.
	LastError string

	// LastTransition is when Status last changed value.
	LastTransition time.Time
}

// ProbeObserver receives probe results for metrics accounting.
type ProbeObserver interface {
	RecordProbe(success bool)
}

// Probe periodically polls the backend health endpoint and maintains the
// last-known health state. It runs independently of request traffic: the loop
// is its own goroutine, keeps polling whether or not requests arrive, and a
// busy relay cannot starve it.
//
// The state machine has two operational states. A single failed probe moves
// Healthy to Unhealthy and a single successful probe moves it back; probes run
// on a short fixed interval, so transient flapping is acceptable and no
// debounce is applied.
type Probe struct {
	client     *Client
	healthPath string
	interval   time.Duration
	timeout    time.Duration
	observer   ProbeObserver
	logger     *slog.Logger

	mu    sync.RWMutex
	state HealthState

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewProbe creates a health probe for the given backend client.
// The observer may be nil.
func NewProbe(client *Client, cfg *config.BackendConfig, observer ProbeObserver) *Probe {
	return &Probe{
		client:     client,
		healthPath: cfg.HealthPath,
		interval:   cfg.ProbeInterval,
		timeout:    cfg.ProbeTimeout,
		observer:   observer,
		logger:     slog.Default().With("component", "backend.probe"),
		state:      HealthState{Status: StatusUnknown},
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the probe loop. The first probe fires immediately so the
// relay has a verdict within one probe timeout of startup rather than one
// full interval.
func (p *Probe) Start(ctx context.Context) {
	go p.run(ctx)
}

// Stop terminates the probe loop and waits for it to exit.
func (p *Probe) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	<-p.doneCh
}

// State returns a copy of the current health state.
func (p *Probe) State() HealthState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Healthy reports whether the last probe succeeded. It is false while the
// state is still unknown.
func (p *Probe) Healthy() bool {
	return p.State().Status == StatusHealthy
}

func (p *Probe) run(ctx context.Context) {
	defer close(p.doneCh)

	p.logger.Info("health probe started",
		"path", p.healthPath,
		"interval", p.interval,
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.check(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("health probe stopped (context cancelled)")
			return
		case <-p.stopCh:
			p.logger.Debug("health probe stopped")
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

// check executes a single probe and applies the state transition.
func (p *Probe) check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.client.CheckHealth(checkCtx, p.healthPath)
	latency := time.Since(start)

	if p.observer != nil {
		p.observer.RecordProbe(err == nil)
	}

	p.mu.Lock()
	prev := p.state.Status
	now := time.Now()
	p.state.LastChecked = now

	if err != nil {
		p.state.Status = StatusUnhealthy
		p.state.LastError = err.Error()
	} else {
		p.state.Status = StatusHealthy
		p.state.LastError = ""
	}

	transitioned := p.state.Status != prev
	if transitioned {
		p.state.LastTransition = now
	}
	current := p.state.Status
	p.mu.Unlock()

	switch {
	case transitioned && current == StatusUnhealthy:
		p.logger.Warn("backend marked unhealthy",
			"reason", err.Error(),
			"latency", latency,
		)
	case transitioned && current == StatusHealthy:
		p.logger.Info("backend marked healthy",
			"previous", prev.String(),
			"latency", latency,
		)
	case err != nil:
		p.logger.Debug("health probe failed", "reason", err.Error(), "latency", latency)
	default:
		p.logger.Debug("health probe passed", "latency", latency)
	}
}
