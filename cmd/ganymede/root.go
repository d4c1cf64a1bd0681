package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ganymede",
	Short: "Mercator Ganymede - resilience relay for OpenAI-compatible backends",
	Long: `Mercator Ganymede is a relay for OpenAI-compatible inference backends.

It forwards chat completion and model listing requests to a single backend
byte-for-byte, adding:
  - Automatic retries with exponential backoff and jitter
  - Streaming (SSE) passthrough
  - Backend health probing with optional fail-fast
  - Prometheus metrics and structured logging
  - Persistent request auditing`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
