// Package handlers implements the relay's HTTP endpoints.
//
// Endpoints:
//   - POST /v1/chat/completions: relay the request body to the backend
//     byte-for-byte and relay the response back, streaming or not
//   - GET /v1/models: relay the backend's model list unchanged
//   - GET /health: relay liveness plus the probed backend state, always 200
//
// Handlers own the terminal accounting for each request: exactly one metric
// outcome and one audit record per request, written at the point where the
// outcome is actually known (after the response body has been relayed, so an
// interrupted stream is counted as such).
package handlers
