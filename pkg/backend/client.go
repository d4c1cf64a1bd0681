package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/ganymede/pkg/config"
)

// Client is the HTTP client for the configured inference backend.
// It performs single-shot calls with connection pooling; the relay layer owns
// retries, timeouts per attempt, and outcome classification.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a backend client with connection pooling.
func NewClient(cfg *config.BackendConfig) *Client {
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Transport: transport,
			// No client-level timeout: per-attempt deadlines come from the
			// caller's context, and a fixed timeout here would sever
			// long-lived streaming response bodies.
		},
	}
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs a single backend call for the given path. The request body may
// be nil. Headers are copied onto the outbound request as-is; the caller is
// responsible for stripping hop-by-hop headers.
//
// Do returns the raw *http.Response regardless of status code, or an error if
// the call could not be completed at the transport level. The caller owns the
// response body.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, header http.Header) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend request: %w", err)
	}

	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ConnectionError{URL: c.baseURL + path, Cause: err}
	}
	return resp, nil
}

// CheckHealth performs a single health probe call against the backend's
// health path. It returns nil for any 2xx response and an error otherwise.
func (c *Client) CheckHealth(ctx context.Context, healthPath string) error {
	resp, err := c.Do(ctx, http.MethodGet, healthPath, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused; the probe only needs the code.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Close releases idle backend connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
