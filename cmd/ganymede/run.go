package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/backend"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/relay"
	"mercator-hq/ganymede/pkg/server"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Ganymede relay server",
	Long: `Start the Ganymede relay server with the specified configuration.

The server listens on the configured address and relays OpenAI-compatible
requests to the configured backend with retries and health probing.

Examples:
  # Start with default config
  ganymede run

  # Start with custom config
  ganymede run --config /etc/ganymede/config.yaml

  # Override listen address
  ganymede run --listen 0.0.0.0:8084

  # Validate config without starting the server
  ganymede run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	dynamic, err := config.NewDynamic(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.Setup(&cfg.Logging, dynamic.LogLevel(), os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Mercator Ganymede v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	var registry *metrics.Registry
	if cfg.Metrics.Enabled {
		registry = metrics.NewRegistry(&cfg.Metrics)
	}

	// Backend client and health probe
	client := backend.NewClient(&cfg.Backend)
	defer client.Close()

	var observer backend.ProbeObserver
	if registry != nil {
		observer = registry
	}
	probe := backend.NewProbe(client, &cfg.Backend, observer)
	probe.Start(ctx)
	defer probe.Stop()

	fmt.Printf("✓ Backend probe started (%s)\n", cfg.Backend.BaseURL)

	// Audit store
	var auditStore audit.Store = audit.NopStore{}
	if cfg.Audit.Enabled {
		sqliteStore, err := audit.NewSQLiteStore(cfg.Audit.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer sqliteStore.Close()
		auditStore = sqliteStore

		scheduler := audit.NewScheduler(sqliteStore, &cfg.Audit)
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("failed to start audit retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}

		fmt.Printf("✓ Audit store initialized (%s)\n", cfg.Audit.DBPath)
	}

	// Config watcher for the hot-reloadable subset
	if cfg.WatchConfig {
		watcher, err := config.NewWatcher(cfgFile, dynamic)
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else if err := watcher.Start(); err != nil {
			logger.Warn("failed to start config watcher", "error", err)
		} else {
			defer watcher.Stop()
			fmt.Println("✓ Config watcher started")
		}
	}

	// Forwarder and server
	forwarder := relay.NewForwarder(client, relay.NewPolicy(&cfg.Backend), &cfg.Backend, probe, dynamic)
	srv := server.NewServer(cfg, forwarder, probe, registry, auditStore)

	fmt.Println()
	fmt.Printf("✓ Relay listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a shutdown signal, context cancellation, or a
	// listener error.
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}
