package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/relay"
	"mercator-hq/ganymede/pkg/relay/middleware"
	"mercator-hq/ganymede/pkg/relay/types"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// ModelsHandler relays GET /v1/models to the backend. The model list is
// whatever the backend says it is; the relay adds and removes nothing.
type ModelsHandler struct {
	forwarder RequestForwarder
	metrics   *metrics.Registry
	audit     audit.Store
	logger    *slog.Logger
}

// NewModelsHandler creates the model listing handler.
func NewModelsHandler(forwarder RequestForwarder, registry *metrics.Registry, auditStore audit.Store) *ModelsHandler {
	return &ModelsHandler{
		forwarder: forwarder,
		metrics:   registry,
		audit:     auditStore,
		logger:    slog.Default().With("component", "handlers.models"),
	}
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	startTime := time.Now()

	if r.Method != http.MethodGet {
		errResp := types.NewInvalidRequestError(
			"Method "+r.Method+" not allowed. Use GET instead.",
			"method",
			"method_not_allowed",
		)
		w.Header().Set("Allow", http.MethodGet)
		if err := WriteErrorResponse(w, errResp); err != nil {
			h.logger.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return
	}

	result, err := h.forwarder.Forward(ctx, http.MethodGet, r.URL.Path, nil, forwardableRequestHeaders(r.Header))
	if err != nil {
		h.handleForwardError(ctx, w, r, err, startTime, requestID)
		return
	}
	defer result.Response.Body.Close()

	copyResponseHeaders(w, result.Response)
	w.WriteHeader(result.Response.StatusCode)

	_, copyErr := relayBody(w, result.Response.Body)
	duration := time.Since(startTime)

	outcome := terminalOutcome(result, copyErr)
	if h.metrics != nil {
		h.metrics.RecordRequest(outcome, result.Attempts, duration)
	}
	h.recordAudit(ctx, &audit.Record{
		ID:         requestID,
		Path:       r.URL.Path,
		Outcome:    string(outcome),
		StatusCode: result.Response.StatusCode,
		Attempts:   result.Attempts,
		Duration:   duration,
	})
}

func (h *ModelsHandler) handleForwardError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error, startTime time.Time, requestID string) {
	duration := time.Since(startTime)

	var exhausted *relay.RetriesExhaustedError
	var unavailable *relay.BackendUnavailableError

	switch {
	case errors.As(err, &exhausted):
		h.logger.ErrorContext(ctx, "retry budget exhausted",
			"request_id", requestID,
			"attempts", exhausted.Attempts,
			"cause", exhausted.Cause,
		)

		if h.metrics != nil {
			h.metrics.RecordRequest(metrics.OutcomeRetriesExhausted, exhausted.Attempts, duration)
		}
		h.recordAudit(ctx, &audit.Record{
			ID:         requestID,
			Path:       r.URL.Path,
			Outcome:    string(metrics.OutcomeRetriesExhausted),
			StatusCode: http.StatusBadGateway,
			Attempts:   exhausted.Attempts,
			Duration:   duration,
		})

		errResp := types.NewBadGatewayError(
			"The upstream backend did not produce a usable response after retries.",
		)
		if werr := WriteErrorResponse(w, errResp); werr != nil {
			h.logger.ErrorContext(ctx, "failed to write error response", "error", werr)
		}

	case errors.As(err, &unavailable):
		h.recordAudit(ctx, &audit.Record{
			ID:         requestID,
			Path:       r.URL.Path,
			Outcome:    "rejected",
			StatusCode: http.StatusServiceUnavailable,
			Duration:   duration,
		})

		errResp := types.NewServiceUnavailableError(
			"The upstream backend is currently unavailable.",
		)
		if werr := WriteErrorResponse(w, errResp); werr != nil {
			h.logger.ErrorContext(ctx, "failed to write error response", "error", werr)
		}

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.DebugContext(ctx, "request abandoned by client", "request_id", requestID)

	default:
		h.logger.ErrorContext(ctx, "unexpected forward error",
			"request_id", requestID,
			"error", err,
		)
		errResp := types.NewServerError("An internal error occurred.")
		if werr := WriteErrorResponse(w, errResp); werr != nil {
			h.logger.ErrorContext(ctx, "failed to write error response", "error", werr)
		}
	}
}

func (h *ModelsHandler) recordAudit(ctx context.Context, rec *audit.Record) {
	if err := h.audit.Insert(context.WithoutCancel(ctx), rec); err != nil {
		h.logger.ErrorContext(ctx, "failed to write audit record",
			"request_id", rec.ID,
			"error", err,
		)
	}
}
