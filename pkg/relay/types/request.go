package types

import "encoding/json"

// CompletionHints is the subset of a chat completion request the relay cares
// about. The body itself is relayed byte-for-byte; these fields are only used
// for logging, metrics, and deciding whether to stream the response.
type CompletionHints struct {
	// Model is the requested model ID, if present.
	Model string `json:"model"`

	// Stream reports whether the client asked for an SSE stream.
	Stream bool `json:"stream"`
}

// PeekCompletionRequest extracts CompletionHints from a raw request body.
// Extraction is best-effort: a body that is valid JSON but missing the fields
// yields zero values, never an error. Validation of the body happens
// elsewhere; the backend remains the authority on request semantics.
func PeekCompletionRequest(body []byte) CompletionHints {
	var hints CompletionHints
	_ = json.Unmarshal(body, &hints)
	return hints
}
