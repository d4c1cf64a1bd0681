package handlers

import (
	"context"
	"net/http"

	"mercator-hq/ganymede/pkg/relay"
)

// RequestForwarder forwards a client request to the backend with retries.
// It is implemented by *relay.Forwarder; handlers depend on the interface so
// tests can substitute a scripted forwarder.
type RequestForwarder interface {
	Forward(ctx context.Context, method, path string, body []byte, header http.Header) (*relay.Result, error)
}

// forwardableRequestHeaders strips headers that must not be relayed to the
// backend: hop-by-hop headers and the inbound Host.
func forwardableRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for name, values := range src {
		if hopByHopHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		if http.CanonicalHeaderKey(name) == "Content-Length" {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
	return dst
}
