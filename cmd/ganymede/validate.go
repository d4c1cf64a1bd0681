package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration file, apply environment variable overrides,
and report every validation problem.

All problems are collected and reported together, not just the first one,
so a broken config can be fixed in one pass.

Examples:
  # Validate the default config file
  ganymede validate

  # Validate a specific file
  ganymede validate --config /etc/ganymede/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var validationErr config.ValidationError
		if errors.As(err, &validationErr) {
			fmt.Printf("✗ Configuration invalid (%d problems):\n", len(validationErr.Errors))
			for _, fieldErr := range validationErr.Errors {
				fmt.Printf("  - %s: %s\n", fieldErr.Field, fieldErr.Message)
			}
			return fmt.Errorf("configuration validation failed")
		}
		return err
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  listen address: %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  backend:        %s\n", cfg.Backend.BaseURL)
	fmt.Printf("  max retries:    %d\n", cfg.Backend.MaxRetries)
	fmt.Printf("  fail fast:      %t\n", cfg.Backend.FailFast)
	fmt.Printf("  audit enabled:  %t\n", cfg.Audit.Enabled)
	return nil
}
