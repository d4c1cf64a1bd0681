package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/backend"
	"mercator-hq/ganymede/pkg/config"
)

func startProbe(t *testing.T, healthy bool) *backend.Probe {
	t.Helper()

	var ok atomic.Bool
	ok.Store(healthy)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok.Load() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Backend.BaseURL = server.URL
	cfg.Backend.ProbeInterval = 10 * time.Millisecond
	cfg.Backend.ProbeTimeout = time.Second

	client := backend.NewClient(&cfg.Backend)
	t.Cleanup(client.Close)

	probe := backend.NewProbe(client, &cfg.Backend, nil)
	probe.Start(context.Background())
	t.Cleanup(probe.Stop)

	want := backend.StatusHealthy
	if !healthy {
		want = backend.StatusUnhealthy
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && probe.State().Status != want {
		time.Sleep(5 * time.Millisecond)
	}
	if probe.State().Status != want {
		t.Fatalf("probe never reached %s", want)
	}
	return probe
}

func TestHealthHandler_HealthyBackend(t *testing.T) {
	probe := startProbe(t, true)
	handler := NewHealthHandler("http://localhost:11434", probe)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if !resp.BackendHealthy {
		t.Error("backend_healthy = false, want true")
	}
	if resp.BackendURL != "http://localhost:11434" {
		t.Errorf("backend_url = %q", resp.BackendURL)
	}
}

func TestHealthHandler_DegradedBackendStill200(t *testing.T) {
	probe := startProbe(t, false)
	handler := NewHealthHandler("http://localhost:11434", probe)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// A down backend never turns the relay's own health red.
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.BackendHealthy {
		t.Error("backend_healthy = true, want false")
	}
}

func TestHealthHandler_RejectsNonGET(t *testing.T) {
	probe := startProbe(t, true)
	handler := NewHealthHandler("http://localhost:11434", probe)

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
