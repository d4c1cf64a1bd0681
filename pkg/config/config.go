package config

import "time"

// Config is the root configuration structure for Ganymede.
// It contains all configuration sections for the relay server, the inference
// backend, request auditing, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and connection limits.
	Server ServerConfig `yaml:"server"`

	// Backend contains configuration for the single inference backend the
	// relay forwards requests to, including retry and health-probe settings.
	Backend BackendConfig `yaml:"backend"`

	// Audit contains configuration for the request audit store.
	Audit AuditConfig `yaml:"audit"`

	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// WatchConfig enables hot reload of the dynamic configuration subset
	// (logging.level, backend.fail_fast) when the config file changes.
	// Structural fields are immutable after startup regardless.
	WatchConfig bool `yaml:"watch_config"`
}

// ServerConfig contains configuration for the relay's HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8084", "0.0.0.0:8084").
	// Default: "127.0.0.1:8084"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must comfortably exceed the backend request timeout plus
	// the worst-case cumulative backoff, or long retry sequences and
	// streaming responses will be cut off.
	// Default: 0 (no timeout; streaming responses are open-ended)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// BackendConfig contains configuration for the inference backend.
// All fields except FailFast are immutable after startup.
type BackendConfig struct {
	// BaseURL is the base URL of the backend, e.g. "http://127.0.0.1:8000".
	// The relay forwards /v1/chat/completions and /v1/models relative to it.
	// Required; no default.
	BaseURL string `yaml:"base_url"`

	// RequestTimeout is the per-attempt timeout for a backend call.
	// Must be greater than zero.
	// Default: 60s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxRetries is the number of retries after the initial attempt for
	// transient failures. Zero disables retrying. Must not be negative.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// RetryBaseDelay is the base delay for exponential backoff between
	// retry attempts.
	// Default: 100ms
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// RetryMaxDelay caps the computed backoff delay.
	// Default: 5s
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`

	// HealthPath is the backend path probed for health.
	// Default: "/health"
	HealthPath string `yaml:"health_path"`

	// ProbeInterval is how often the background health probe polls the
	// backend.
	// Default: 15s
	ProbeInterval time.Duration `yaml:"probe_interval"`

	// ProbeTimeout is the timeout for a single health probe call.
	// Default: 5s
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// FailFast controls whether requests are rejected immediately while the
	// probe reports the backend unhealthy, instead of attempting the call.
	// The probe keeps running either way, so an unhealthy verdict never
	// latches. This field is hot-reloadable when watch_config is enabled.
	// Default: false (always attempt)
	FailFast bool `yaml:"fail_fast"`

	// MaxIdleConns is the connection pool size for backend calls.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// IdleConnTimeout is how long idle backend connections are kept.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// AuditConfig contains configuration for the request audit store.
type AuditConfig struct {
	// Enabled turns on persistent auditing of terminal request outcomes.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the SQLite database file.
	// Default: "data/ganymede-audit.db"
	DBPath string `yaml:"db_path"`

	// RetentionDays is how many days of audit records to keep.
	// Zero disables pruning.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for when to prune old records.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// This field is hot-reloadable when watch_config is enabled.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric name prefix.
	// Default: "ganymede"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets are the histogram buckets for request duration
	// in seconds. Default: prometheus.DefBuckets equivalent tuned for LLM
	// latencies (50ms .. 120s).
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}
