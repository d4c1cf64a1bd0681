// Package config provides configuration management for Ganymede.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// A missing file is not an error: the loader falls back to built-in defaults
// so the relay can be configured entirely through the environment.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention GANYMEDE_SECTION_FIELD.
// For example:
//
//   - GANYMEDE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - GANYMEDE_BACKEND_BASE_URL overrides backend.base_url
//   - GANYMEDE_BACKEND_REQUEST_TIMEOUT overrides backend.request_timeout
//   - GANYMEDE_BACKEND_MAX_RETRIES overrides backend.max_retries
//   - GANYMEDE_LOGGING_LEVEL overrides logging.level
//
// Environment variables always take precedence over file-based configuration.
// Unlike file values, a malformed override (non-numeric timeout, negative
// retry count) is a hard startup error rather than being silently ignored:
// a deployment that sets a variable expects it to take effect.
//
// # Validation
//
// All configuration is validated after defaults and overrides are applied.
// Validation errors are collected into a single ValidationError listing every
// failing field, and any validation failure is fatal at startup.
package config
