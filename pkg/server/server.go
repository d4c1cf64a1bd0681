// Package server provides the relay's HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/backend"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/relay"
	"mercator-hq/ganymede/pkg/relay/handlers"
	"mercator-hq/ganymede/pkg/relay/middleware"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// Server is the relay's HTTP server. It owns the route table and the server
// lifecycle; the forwarding logic lives in pkg/relay.
type Server struct {
	config     *config.Config
	forwarder  *relay.Forwarder
	probe      *backend.Probe
	metrics    *metrics.Registry
	auditStore audit.Store

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	stopOnce     sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates the relay server. metrics may be nil when the metrics
// endpoint is disabled; auditStore must not be nil (use audit.NopStore{}).
func NewServer(cfg *config.Config, forwarder *relay.Forwarder, probe *backend.Probe, registry *metrics.Registry, auditStore audit.Store) *Server {
	return &Server{
		config:       cfg,
		forwarder:    forwarder,
		probe:        probe,
		metrics:      registry,
		auditStore:   auditStore,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        s.setupRoutes(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting relay server",
			"address", s.config.Server.ListenAddress,
			"backend", s.config.Backend.BaseURL,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server. In-flight requests, including
// open SSE streams, get ShutdownTimeout to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown",
			"timeout", s.config.Server.ShutdownTimeout.String(),
		)

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("relay server stopped")
	})

	return shutdownErr
}

// Stop requests a shutdown from outside the Start call.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.shutdownChan)
	})
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	chatHandler := handlers.NewChatHandler(s.forwarder, s.metrics, s.auditStore)
	modelsHandler := handlers.NewModelsHandler(s.forwarder, s.metrics, s.auditStore)
	healthHandler := handlers.NewHealthHandler(s.config.Backend.BaseURL, s.probe)

	mux.Handle("/v1/chat/completions", chatHandler)
	mux.Handle("/v1/models", modelsHandler)
	mux.Handle("/health", healthHandler)

	if s.config.Metrics.Enabled && s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler. It exists so tests can drive
// the full route table without binding a socket.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}
