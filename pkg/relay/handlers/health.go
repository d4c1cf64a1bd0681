package handlers

import (
	"net/http"

	"mercator-hq/ganymede/pkg/backend"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	// Status is "healthy" while the backend is reachable and "degraded"
	// otherwise. The relay itself answering is the liveness signal.
	Status string `json:"status"`

	// BackendURL is the configured backend base URL.
	BackendURL string `json:"backend_url"`

	// BackendHealthy is the probe's last verdict. It is false while the
	// first probe is still in flight.
	BackendHealthy bool `json:"backend_healthy"`
}

// HealthHandler reports the relay's own health and the probed backend state.
// It always answers 200: a degraded backend is reported in the body, not the
// status code, so orchestrator liveness checks don't restart a relay whose
// backend is down.
type HealthHandler struct {
	backendURL string
	probe      *backend.Probe
}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler(backendURL string, probe *backend.Probe) *HealthHandler {
	return &HealthHandler{
		backendURL: backendURL,
		probe:      probe,
	}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	healthy := h.probe.Healthy()

	status := "healthy"
	if !healthy {
		status = "degraded"
	}

	_ = WriteJSONResponse(w, http.StatusOK, &HealthResponse{
		Status:         status,
		BackendURL:     h.backendURL,
		BackendHealthy: healthy,
	})
}
