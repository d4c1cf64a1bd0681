// Package server ties the relay together and manages the HTTP server
// lifecycle.
//
// # Routes
//
//   - POST /v1/chat/completions - chat completion relay (streaming and
//     non-streaming)
//   - GET /v1/models - model listing relay
//   - GET /health - relay liveness plus probed backend state (always 200)
//   - GET /metrics - Prometheus metrics (when enabled)
//
// # Middleware Chain
//
// Requests pass through the following middleware (outermost first):
//  1. Recovery: recovers from panics and returns a 500 error
//  2. Logging: logs request/response details
//  3. RequestID: assigns a unique request ID for tracing
//
// # Graceful Shutdown
//
// The server shuts down on SIGTERM/SIGINT, on context cancellation, or via
// Stop. In-flight requests get the configured shutdown timeout to complete
// before connections are closed.
package server
