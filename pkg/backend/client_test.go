package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

func testBackendConfig(baseURL string) *config.BackendConfig {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Backend.BaseURL = baseURL
	return &cfg.Backend
}

func TestClient_Do(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"object":"list"}`))
	}))
	defer server.Close()

	client := NewClient(testBackendConfig(server.URL))
	defer client.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer test-key")

	resp, err := client.Do(context.Background(), http.MethodGet, "/v1/models", nil, header)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("unexpected status %d", resp.StatusCode)
	}
	if gotPath != "/v1/models" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization header not forwarded, got %q", gotAuth)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"object":"list"}` {
		t.Errorf("unexpected body %q", body)
	}
}

func TestClient_DoSetsJSONContentType(t *testing.T) {
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(testBackendConfig(server.URL))
	defer client.Close()

	resp, err := client.Do(context.Background(), http.MethodPost, "/v1/chat/completions", []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	resp.Body.Close()

	if gotContentType != "application/json" {
		t.Errorf("expected default JSON content type, got %q", gotContentType)
	}
}

func TestClient_DoReturnsNonOKStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad model"}`))
	}))
	defer server.Close()

	client := NewClient(testBackendConfig(server.URL))
	defer client.Close()

	resp, err := client.Do(context.Background(), http.MethodPost, "/v1/chat/completions", []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("Do should not error on non-2xx, got: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"error":"bad model"}` {
		t.Errorf("error body not preserved: %q", body)
	}
}

func TestClient_DoConnectionError(t *testing.T) {
	// Port from a closed listener: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(testBackendConfig(url))
	defer client.Close()

	_, err := client.Do(context.Background(), http.MethodGet, "/v1/models", nil, nil)
	if err == nil {
		t.Fatal("expected connection error")
	}

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Errorf("expected *ConnectionError, got %T: %v", err, err)
	}
}

func TestClient_CheckHealth(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected probe path %q", r.URL.Path)
		}
		if healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	client := NewClient(testBackendConfig(server.URL))
	defer client.Close()

	if err := client.CheckHealth(context.Background(), "/health"); err != nil {
		t.Errorf("expected healthy check to pass, got: %v", err)
	}

	healthy = false
	err := client.CheckHealth(context.Background(), "/health")
	if err == nil {
		t.Fatal("expected unhealthy check to fail")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected StatusError 503, got %v", err)
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(testBackendConfig(server.URL))
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := client.Do(ctx, http.MethodGet, "/v1/models", nil, nil)
		errCh <- err
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return promptly after cancellation")
	}
}
