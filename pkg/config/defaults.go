package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8084"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 0 * time.Second // no timeout; streaming is open-ended
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Backend defaults
	DefaultRequestTimeout  = 60 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryBaseDelay  = 100 * time.Millisecond
	DefaultRetryMaxDelay   = 5 * time.Second
	DefaultHealthPath      = "/health"
	DefaultProbeInterval   = 15 * time.Second
	DefaultProbeTimeout    = 5 * time.Second
	DefaultMaxIdleConns    = 100
	DefaultIdleConnTimeout = 90 * time.Second

	// Audit defaults
	DefaultAuditDBPath        = "data/ganymede-audit.db"
	DefaultAuditRetentionDays = 30
	DefaultAuditPruneSchedule = "0 3 * * *"

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"

	// Metrics defaults
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "ganymede"
)

// DefaultRequestDurationBuckets are histogram buckets in seconds sized for
// LLM completion latencies, which routinely run into tens of seconds.
var DefaultRequestDurationBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// newSeedConfig returns a Config pre-populated with defaults for the fields
// where zero (or false) is itself a meaningful explicit setting. These must be
// in place before yaml.Unmarshal so that an explicit "max_retries: 0",
// "retention_days: 0", or "enabled: false" in the file is honored rather than
// re-defaulted afterwards.
func newSeedConfig() *Config {
	return &Config{
		Backend: BackendConfig{MaxRetries: DefaultMaxRetries},
		Audit:   AuditConfig{RetentionDays: DefaultAuditRetentionDays},
		Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
	}
}

// ApplyDefaults fills in default values for any zero-valued configuration
// fields. It does not overwrite values that are explicitly set. Fields where
// zero is a valid explicit value are handled by newSeedConfig instead and are
// deliberately absent here.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if cfg.Backend.RequestTimeout == 0 {
		cfg.Backend.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Backend.RetryBaseDelay == 0 {
		cfg.Backend.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.Backend.RetryMaxDelay == 0 {
		cfg.Backend.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if cfg.Backend.HealthPath == "" {
		cfg.Backend.HealthPath = DefaultHealthPath
	}
	if cfg.Backend.ProbeInterval == 0 {
		cfg.Backend.ProbeInterval = DefaultProbeInterval
	}
	if cfg.Backend.ProbeTimeout == 0 {
		cfg.Backend.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Backend.MaxIdleConns == 0 {
		cfg.Backend.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.Backend.IdleConnTimeout == 0 {
		cfg.Backend.IdleConnTimeout = DefaultIdleConnTimeout
	}

	if cfg.Audit.DBPath == "" {
		cfg.Audit.DBPath = DefaultAuditDBPath
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = DefaultAuditPruneSchedule
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.RequestDurationBuckets == nil {
		cfg.Metrics.RequestDurationBuckets = DefaultRequestDurationBuckets
	}
}

// NewDefaultConfig returns a configuration populated entirely with defaults.
// Backend.BaseURL is intentionally left empty; it has no sensible default and
// must be supplied by file or environment.
func NewDefaultConfig() *Config {
	cfg := newSeedConfig()
	ApplyDefaults(cfg)
	return cfg
}
