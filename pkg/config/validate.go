package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "backend.base_url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateBackend(&cfg.Backend)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "must not be empty"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{"server.listen_address",
			fmt.Sprintf("invalid host:port address %q: %v", cfg.ListenAddress, err)})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{"server.read_timeout", "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{"server.write_timeout", "must not be negative"})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{"server.shutdown_timeout", "must be greater than zero"})
	}
	if cfg.MaxHeaderBytes <= 0 {
		errs = append(errs, FieldError{"server.max_header_bytes", "must be greater than zero"})
	}

	return errs
}

func validateBackend(cfg *BackendConfig) []FieldError {
	var errs []FieldError

	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{"backend.base_url", "must not be empty"})
	} else {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			errs = append(errs, FieldError{"backend.base_url",
				fmt.Sprintf("invalid URL %q: %v", cfg.BaseURL, err)})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, FieldError{"backend.base_url",
				fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme)})
		} else if u.Host == "" {
			errs = append(errs, FieldError{"backend.base_url", "URL must include a host"})
		}
	}

	if cfg.RequestTimeout <= 0 {
		errs = append(errs, FieldError{"backend.request_timeout", "must be greater than zero"})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{"backend.max_retries", "must not be negative"})
	}
	if cfg.RetryBaseDelay <= 0 {
		errs = append(errs, FieldError{"backend.retry_base_delay", "must be greater than zero"})
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		errs = append(errs, FieldError{"backend.retry_max_delay", "must not be less than retry_base_delay"})
	}
	if cfg.HealthPath == "" || !strings.HasPrefix(cfg.HealthPath, "/") {
		errs = append(errs, FieldError{"backend.health_path", "must start with /"})
	}
	if cfg.ProbeInterval <= 0 {
		errs = append(errs, FieldError{"backend.probe_interval", "must be greater than zero"})
	}
	if cfg.ProbeTimeout <= 0 {
		errs = append(errs, FieldError{"backend.probe_timeout", "must be greater than zero"})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	if cfg.DBPath == "" {
		errs = append(errs, FieldError{"audit.db_path", "must not be empty when audit is enabled"})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{"audit.retention_days", "must not be negative"})
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{"audit.prune_schedule",
				fmt.Sprintf("invalid cron expression %q: %v", cfg.PruneSchedule, err)})
		}
	}

	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"logging.level",
			fmt.Sprintf("must be one of debug, info, warn, error; got %q", cfg.Level)})
	}

	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"logging.format",
			fmt.Sprintf("must be json or text; got %q", cfg.Format)})
	}

	return errs
}
