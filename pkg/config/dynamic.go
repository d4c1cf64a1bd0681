package config

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Dynamic holds the hot-reloadable configuration subset. All accessors are
// safe for concurrent use; the relay reads these on every request while the
// watcher may be updating them.
//
// Only behavior toggles live here. Structural settings (backend URL, timeouts,
// retry budget) are immutable for the process lifetime.
type Dynamic struct {
	failFast atomic.Bool
	level    slog.LevelVar
}

// NewDynamic creates the dynamic subset from an initial configuration.
func NewDynamic(cfg *Config) (*Dynamic, error) {
	d := &Dynamic{}
	if err := d.Apply(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// FailFast reports whether requests should be rejected immediately while the
// backend is known-unhealthy.
func (d *Dynamic) FailFast() bool {
	return d.failFast.Load()
}

// LogLevel returns the slog level variable. Handlers constructed with it pick
// up level changes without being rebuilt.
func (d *Dynamic) LogLevel() *slog.LevelVar {
	return &d.level
}

// Apply updates the dynamic subset from a freshly loaded configuration.
func (d *Dynamic) Apply(cfg *Config) error {
	level, err := ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	d.level.Set(level)
	d.failFast.Store(cfg.Backend.FailFast)
	return nil
}

// ParseLevel converts a configuration level string to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
