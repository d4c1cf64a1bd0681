// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// Middleware functions are chained outermost to innermost:
//
//	handler = Recovery(Logging(RequestID(handler)))
//
//   - RequestIDMiddleware: assign a unique request ID, add it to context and
//     response headers
//   - LoggingMiddleware: log request/response with method, path, status,
//     latency
//   - RecoveryMiddleware: recover from panics, return an OpenAI-format 500
//
// All middleware is safe for concurrent use.
package middleware
