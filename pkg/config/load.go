package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. A missing file is not an error; built-in defaults are used so that
// the relay can be configured entirely through environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := newSeedConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fall through to defaults.
	default:
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention GANYMEDE_SECTION_FIELD (e.g., GANYMEDE_BACKEND_BASE_URL) and
// always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file (missing file falls back to defaults)
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
//
// A malformed override value (non-numeric timeout, unparsable boolean) is a
// hard error: silently ignoring it would run the relay with settings the
// operator believes they changed.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. It returns an error for any set-but-unparsable value.
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("GANYMEDE_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if err := envDuration("GANYMEDE_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout); err != nil {
		return err
	}
	if err := envDuration("GANYMEDE_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout); err != nil {
		return err
	}
	if err := envDuration("GANYMEDE_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout); err != nil {
		return err
	}

	if val := os.Getenv("GANYMEDE_BACKEND_BASE_URL"); val != "" {
		cfg.Backend.BaseURL = val
	}
	if err := envDuration("GANYMEDE_BACKEND_REQUEST_TIMEOUT", &cfg.Backend.RequestTimeout); err != nil {
		return err
	}
	if err := envInt("GANYMEDE_BACKEND_MAX_RETRIES", &cfg.Backend.MaxRetries); err != nil {
		return err
	}
	if err := envDuration("GANYMEDE_BACKEND_RETRY_BASE_DELAY", &cfg.Backend.RetryBaseDelay); err != nil {
		return err
	}
	if err := envDuration("GANYMEDE_BACKEND_RETRY_MAX_DELAY", &cfg.Backend.RetryMaxDelay); err != nil {
		return err
	}
	if err := envDuration("GANYMEDE_BACKEND_PROBE_INTERVAL", &cfg.Backend.ProbeInterval); err != nil {
		return err
	}
	if err := envBool("GANYMEDE_BACKEND_FAIL_FAST", &cfg.Backend.FailFast); err != nil {
		return err
	}

	if err := envBool("GANYMEDE_AUDIT_ENABLED", &cfg.Audit.Enabled); err != nil {
		return err
	}
	if val := os.Getenv("GANYMEDE_AUDIT_DB_PATH"); val != "" {
		cfg.Audit.DBPath = val
	}
	if err := envInt("GANYMEDE_AUDIT_RETENTION_DAYS", &cfg.Audit.RetentionDays); err != nil {
		return err
	}

	if val := os.Getenv("GANYMEDE_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("GANYMEDE_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	if err := envBool("GANYMEDE_METRICS_ENABLED", &cfg.Metrics.Enabled); err != nil {
		return err
	}

	return nil
}

// envDuration parses a duration override. Bare integers are interpreted as
// seconds (GANYMEDE_BACKEND_REQUEST_TIMEOUT=30), Go duration strings are
// accepted as well (GANYMEDE_BACKEND_REQUEST_TIMEOUT=30s).
func envDuration(name string, dst *time.Duration) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("invalid duration in %s: %q", name, val)
	}
	*dst = d
	return nil
}

func envInt(name string, dst *int) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid integer in %s: %q", name, val)
	}
	*dst = n
	return nil
}

func envBool(name string, dst *bool) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("invalid boolean in %s: %q", name, val)
	}
	*dst = b
	return nil
}
