package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/relay"
	"mercator-hq/ganymede/pkg/relay/middleware"
	"mercator-hq/ganymede/pkg/relay/types"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// maxRequestBodySize bounds how much request body the relay will buffer.
// The body must be fully read before forwarding so it can be replayed on
// retries.
const maxRequestBodySize = 10 << 20 // 10 MiB

// ChatHandler relays POST /v1/chat/completions to the backend. The request
// body is forwarded byte-for-byte; the backend response, streaming or not, is
// relayed back unchanged. Retries happen only before the first response byte
// reaches the client.
type ChatHandler struct {
	forwarder RequestForwarder
	metrics   *metrics.Registry
	audit     audit.Store
	logger    *slog.Logger
}

// NewChatHandler creates the chat completions handler.
// metrics may be nil; auditStore may be audit.NopStore{} but not nil.
func NewChatHandler(forwarder RequestForwarder, registry *metrics.Registry, auditStore audit.Store) *ChatHandler {
	return &ChatHandler{
		forwarder: forwarder,
		metrics:   registry,
		audit:     auditStore,
		logger:    slog.Default().With("component", "handlers.chat"),
	}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	startTime := time.Now()

	if r.Method != http.MethodPost {
		errResp := types.NewInvalidRequestError(
			"Method "+r.Method+" not allowed. Use POST instead.",
			"method",
			"method_not_allowed",
		)
		w.Header().Set("Allow", http.MethodPost)
		if err := WriteErrorResponse(w, errResp); err != nil {
			h.logger.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		errResp := types.NewInvalidRequestError("Failed to read request body.", "", "")
		_ = WriteErrorResponse(w, errResp)
		return
	}
	if len(body) > maxRequestBodySize {
		errResp := types.NewInvalidRequestError("Request body too large.", "", "request_too_large")
		_ = WriteErrorResponse(w, errResp)
		return
	}

	// The backend is the authority on request semantics; the only local
	// check is that the body is JSON at all, since a non-JSON body can
	// never succeed and isn't worth a backend round trip.
	if !json.Valid(body) {
		errResp := types.NewInvalidRequestError(
			"Request body is not valid JSON.",
			"",
			types.CodeInvalidJSON,
		)
		if err := WriteErrorResponse(w, errResp); err != nil {
			h.logger.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return
	}

	hints := types.PeekCompletionRequest(body)

	h.logger.InfoContext(ctx, "relaying chat completion request",
		"request_id", requestID,
		"model", hints.Model,
		"stream", hints.Stream,
	)

	result, err := h.forwarder.Forward(ctx, http.MethodPost, r.URL.Path, body, forwardableRequestHeaders(r.Header))
	if err != nil {
		h.handleForwardError(ctx, w, r, err, startTime, requestID, hints.Model)
		return
	}
	defer result.Response.Body.Close()

	copyResponseHeaders(w, result.Response)
	w.WriteHeader(result.Response.StatusCode)

	written, copyErr := relayBody(w, result.Response.Body)
	duration := time.Since(startTime)

	outcome := terminalOutcome(result, copyErr)
	h.record(ctx, &audit.Record{
		ID:         requestID,
		Model:      hints.Model,
		Path:       r.URL.Path,
		Outcome:    string(outcome),
		StatusCode: result.Response.StatusCode,
		Attempts:   result.Attempts,
		Duration:   duration,
	}, outcome, result.Attempts, duration)

	if copyErr != nil {
		// Headers and possibly part of the body are already out; there is
		// nothing valid left to send, so the interruption is only logged
		// and counted.
		h.logger.WarnContext(ctx, "response relay interrupted",
			"request_id", requestID,
			"bytes_written", written,
			"error", copyErr,
		)
	}
}

// terminalOutcome maps the forward result and body-copy error to the metric
// outcome. An interrupted copy overrides the forward outcome: the client did
// not receive the response the backend produced.
func terminalOutcome(result *relay.Result, copyErr error) metrics.Outcome {
	if copyErr != nil {
		return metrics.OutcomeStreamInterrupted
	}
	if result.Outcome == relay.OutcomePermanent {
		return metrics.OutcomePermanentFailure
	}
	return metrics.OutcomeSuccess
}

// handleForwardError converts forwarder errors into synthesized OpenAI-format
// responses and records the terminal outcome.
func (h *ChatHandler) handleForwardError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error, startTime time.Time, requestID, model string) {
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

		h.record(ctx, &audit.Record{
			ID:         requestID,
			Model:      model,
			Path:       r.URL.Path,
			Outcome:    string(metrics.OutcomeRetriesExhausted),
			StatusCode: http.StatusBadGateway,
			Attempts:   exhausted.Attempts,
			Duration:   duration,
		}, metrics.OutcomeRetriesExhausted, exhausted.Attempts, duration)

		errResp := types.NewBadGatewayError(
			"The upstream backend did not produce a usable response after retries.",
		)
		if werr := WriteErrorResponse(w, errResp); werr != nil {
			h.logger.ErrorContext(ctx, "failed to write error response", "error", werr)
		}

	case errors.As(err, &unavailable):
		h.logger.WarnContext(ctx, "request rejected, backend unavailable",
			"request_id", requestID,
			"reason", unavailable.Reason,
		)

		// Rejections are audited but not counted in the request outcome
		// metrics: no backend attempt was made.
		h.recordAudit(ctx, &audit.Record{
			ID:         requestID,
			Model:      model,
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
		// The client went away; there is no one to answer and no terminal
		// backend outcome to count.
		h.logger.DebugContext(ctx, "request abandoned by client",
			"request_id", requestID,
		)

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

// record counts the outcome and writes the audit record.
func (h *ChatHandler) record(ctx context.Context, rec *audit.Record, outcome metrics.Outcome, attempts int, duration time.Duration) {
	if h.metrics != nil {
		h.metrics.RecordRequest(outcome, attempts, duration)
	}
	h.recordAudit(ctx, rec)
}

// recordAudit persists the audit record. Failures are logged, never surfaced:
// auditing must not break request handling.
func (h *ChatHandler) recordAudit(ctx context.Context, rec *audit.Record) {
	if err := h.audit.Insert(context.WithoutCancel(ctx), rec); err != nil {
		h.logger.ErrorContext(ctx, "failed to write audit record",
			"request_id", rec.ID,
			"error", err,
		)
	}
}
