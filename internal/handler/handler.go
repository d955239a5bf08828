package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/young1lin/openclaw-responses/internal/jsonx"
	"github.com/young1lin/openclaw-responses/internal/metrics"
	"github.com/young1lin/openclaw-responses/internal/models"
	"github.com/young1lin/openclaw-responses/internal/schema"
	"github.com/young1lin/openclaw-responses/internal/sse"
	"github.com/young1lin/openclaw-responses/internal/storage"
	"github.com/young1lin/openclaw-responses/pkg/llm"
	"github.com/young1lin/openclaw-responses/pkg/logger"
)

const (
	maxRequestBodySize = 10 * 1024 * 1024 // 10MB
	usagePathPrefix    = "/v1/usage/"
)

// ModelFactory returns the language model for a model id
type ModelFactory func(modelID string) llm.LanguageModel

// UsageLedger records and looks up call accounting
type UsageLedger interface {
	Put(rec *storage.Record) error
	Get(id string) (*storage.Record, bool)
	List(prefix string, limit int) ([]storage.Record, error)
}

// Options configures a BridgeHandler
type Options struct {
	DefaultModel string

	// Ledger is optional; usage is not recorded when nil
	Ledger UsageLedger

	// Metrics is served at MetricsPath when set
	Metrics     http.Handler
	MetricsPath string
}

// CallRequest is the body of /v1/generate and /v1/stream
type CallRequest struct {
	Model string `json:"model,omitempty"`
	llm.CallOptions
}

// streamError is the data of an "error" stream event
type streamError struct {
	Type    llm.StreamPartType `json:"type"`
	Message string             `json:"message"`
}

// BridgeHandler exposes the normalized model interface over HTTP
type BridgeHandler struct {
	models ModelFactory
	opts   Options
}

// NewBridgeHandler creates a new bridge handler
func NewBridgeHandler(models ModelFactory, opts Options) *BridgeHandler {
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	return &BridgeHandler{models: models, opts: opts}
}

// ServeHTTP handles all HTTP requests
func (h *BridgeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// Extract or generate trace ID
	traceID := extractTraceID(r)
	if traceID == "" {
		traceID = generateTraceID()
	}
	r = r.WithContext(logger.ContextWithTraceID(r.Context(), traceID))

	log := logger.WithTraceID(traceID)
	log.Info("request received",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", r.RemoteAddr),
	)

	// Add trace ID to response headers
	w.Header().Set("X-Trace-ID", traceID)

	// Route request
	switch {
	case r.URL.Path == "/health":
		h.handleHealth(w, r, log)
	case h.opts.Metrics != nil && r.URL.Path == h.opts.MetricsPath:
		h.opts.Metrics.ServeHTTP(w, r)
	case r.URL.Path == "/v1/generate":
		h.handleGenerate(w, r, log)
	case r.URL.Path == "/v1/stream":
		h.handleStream(w, r, log)
	case r.URL.Path == "/v1/usage" || strings.HasPrefix(r.URL.Path, usagePathPrefix):
		h.handleUsage(w, r, log)
	default:
		h.handleError(w, http.StatusNotFound, "not_found", "Endpoint not found", log)
	}

	log.Info("request completed",
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
}

// handleHealth handles health check requests
func (h *BridgeHandler) handleHealth(w http.ResponseWriter, r *http.Request, log *zap.Logger) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}, log)
}

// parseCall reads the call request and resolves the model. It writes the
// error response itself and returns false on failure.
func (h *BridgeHandler) parseCall(w http.ResponseWriter, r *http.Request, log *zap.Logger) (llm.LanguageModel, *CallRequest, bool) {
	if r.Method != http.MethodPost {
		h.handleError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed", log)
		return nil, nil, false
	}

	var req CallRequest
	dec := jsonx.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err := dec.Decode(&req); err != nil {
		h.handleError(w, http.StatusBadRequest, "parse_error", fmt.Sprintf("Failed to parse request: %v", err), log)
		return nil, nil, false
	}
	if len(req.Prompt) == 0 {
		h.handleError(w, http.StatusBadRequest, "invalid_request_error", "prompt must not be empty", log)
		return nil, nil, false
	}

	modelID := req.Model
	if modelID == "" {
		modelID = h.opts.DefaultModel
	}
	if modelID == "" {
		h.handleError(w, http.StatusBadRequest, "invalid_request_error", "model is required", log)
		return nil, nil, false
	}

	// Forward trace ID to upstream unless the caller set one
	traceID := logger.TraceIDFromContext(r.Context())
	if _, ok := req.Headers["X-Trace-ID"]; !ok && traceID != "" {
		if req.Headers == nil {
			req.Headers = make(map[string]string, 1)
		}
		req.Headers["X-Trace-ID"] = traceID
	}

	log.Info("parsed call",
		zap.String("model", modelID),
		zap.Int("message_count", len(req.Prompt)),
		zap.Int("tool_count", len(req.Tools)),
	)

	return h.models(modelID), &req, true
}

// handleGenerate handles POST /v1/generate
func (h *BridgeHandler) handleGenerate(w http.ResponseWriter, r *http.Request, log *zap.Logger) {
	model, req, ok := h.parseCall(w, r, log)
	if !ok {
		return
	}

	result, err := model.DoGenerate(r.Context(), req.CallOptions)
	if err != nil {
		h.handleCallError(w, err, log)
		return
	}

	h.recordUsage(&storage.Record{
		ResponseID:   result.Response.ID,
		Model:        model.ModelID(),
		Mode:         metrics.ModeGenerate,
		FinishReason: string(result.FinishReason.Unified),
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		TotalTokens:  result.Usage.TotalTokens,
	}, log)

	h.writeJSON(w, http.StatusOK, result, log)
}

// handleStream handles POST /v1/stream. Each normalized part is written as
// one SSE event named after the part type.
func (h *BridgeHandler) handleStream(w http.ResponseWriter, r *http.Request, log *zap.Logger) {
	model, req, ok := h.parseCall(w, r, log)
	if !ok {
		return
	}

	result, err := model.DoStream(r.Context(), req.CallOptions)
	if err != nil {
		h.handleCallError(w, err, log)
		return
	}
	defer result.Stream.Close()

	writer := sse.NewWriter(w, log)
	if len(result.Warnings) > 0 {
		if err := writer.WriteJSON("warnings", result.Warnings); err != nil {
			log.Warn("client went away", zap.Error(err))
			return
		}
	}

	var responseID string
	for {
		part, err := result.Stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Error("stream failed", zap.Error(err))
			break
		}

		switch part.Type {
		case llm.StreamResponseMetadata:
			responseID = part.ID
		case llm.StreamFinish:
			if responseID == "" {
				responseID = finishResponseID(part)
			}
			h.recordUsage(&storage.Record{
				ResponseID:   responseID,
				Model:        model.ModelID(),
				Mode:         metrics.ModeStream,
				FinishReason: string(part.FinishReason.Unified),
				InputTokens:  part.Usage.InputTokens,
				OutputTokens: part.Usage.OutputTokens,
				TotalTokens:  part.Usage.TotalTokens,
			}, log)
		}

		if err := writePart(writer, part); err != nil {
			log.Warn("client went away", zap.Error(err))
			return
		}
	}

	if err := writer.Done(); err != nil {
		log.Warn("failed to write stream end", zap.Error(err))
	}
}

func finishResponseID(part llm.StreamPart) string {
	for _, meta := range part.ProviderMetadata {
		if id, ok := meta["responseId"].(string); ok {
			return id
		}
	}
	return ""
}

func writePart(writer *sse.Writer, part llm.StreamPart) error {
	if part.Type == llm.StreamError {
		msg := "unknown error"
		if part.Err != nil {
			msg = part.Err.Error()
		}
		return writer.WriteJSON(string(part.Type), streamError{Type: part.Type, Message: msg})
	}
	return writer.WriteJSON(string(part.Type), part)
}

// handleUsage handles GET /v1/usage and GET /v1/usage/{id}
func (h *BridgeHandler) handleUsage(w http.ResponseWriter, r *http.Request, log *zap.Logger) {
	if r.Method != http.MethodGet {
		h.handleError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed", log)
		return
	}
	if h.opts.Ledger == nil {
		h.handleError(w, http.StatusNotFound, "not_found", "Usage ledger is disabled", log)
		return
	}

	if id := strings.TrimPrefix(r.URL.Path, usagePathPrefix); id != "" && id != r.URL.Path {
		rec, found := h.opts.Ledger.Get(id)
		if !found {
			h.handleError(w, http.StatusNotFound, "not_found", "Usage record not found", log)
			return
		}
		h.writeJSON(w, http.StatusOK, rec, log)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.handleError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a non-negative integer", log)
			return
		}
		limit = n
	}

	records, err := h.opts.Ledger.List(r.URL.Query().Get("prefix"), limit)
	if err != nil {
		h.handleError(w, http.StatusInternalServerError, "storage_error", err.Error(), log)
		return
	}
	if records == nil {
		records = []storage.Record{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": records}, log)
}

func (h *BridgeHandler) recordUsage(rec *storage.Record, log *zap.Logger) {
	if h.opts.Ledger == nil {
		return
	}
	if err := h.opts.Ledger.Put(rec); err != nil {
		log.Error("failed to record usage", zap.Error(err))
		return
	}
	log.Debug("usage recorded", zap.String("id", rec.ID), zap.Int("total_tokens", rec.TotalTokens))
}

// handleCallError maps a model call failure to an HTTP error
func (h *BridgeHandler) handleCallError(w http.ResponseWriter, err error, log *zap.Logger) {
	var (
		promptErr   *llm.InvalidPromptError
		argumentErr *llm.InvalidArgumentError
		apiErr      *llm.APICallError
		decodeErr   *schema.DecodeError
	)

	switch {
	case errors.As(err, &promptErr), errors.As(err, &argumentErr):
		h.handleError(w, http.StatusBadRequest, "invalid_request_error", err.Error(), log)
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == 0 {
			h.handleError(w, http.StatusBadGateway, "upstream_error", apiErr.Message, log)
			return
		}
		h.writeError(w, apiErr.StatusCode, models.ErrorDetail{
			Type:    "upstream_error",
			Code:    strconv.Itoa(apiErr.StatusCode),
			Message: apiErr.Message,
		}, log)
	case errors.As(err, &decodeErr):
		h.handleError(w, http.StatusBadGateway, "invalid_upstream_response", err.Error(), log)
	default:
		h.handleError(w, http.StatusInternalServerError, "internal_error", err.Error(), log)
	}
}

// handleError handles errors
func (h *BridgeHandler) handleError(w http.ResponseWriter, status int, errType, message string, log *zap.Logger) {
	h.writeError(w, status, models.ErrorDetail{Type: errType, Message: message}, log)
}

func (h *BridgeHandler) writeError(w http.ResponseWriter, status int, detail models.ErrorDetail, log *zap.Logger) {
	log.Error("request error",
		zap.String("error_type", detail.Type),
		zap.String("message", detail.Message),
		zap.Int("status", status),
	)
	h.writeJSON(w, status, models.ErrorResponse{Error: detail}, log)
}

func (h *BridgeHandler) writeJSON(w http.ResponseWriter, status int, v any, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonx.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to encode response", zap.Error(err))
	}
}

// extractTraceID extracts trace ID from various possible headers
func extractTraceID(r *http.Request) string {
	// Check common trace ID headers in order of preference
	headers := []string{
		"X-Trace-ID",
		"X-Request-ID",
		"X-Correlation-ID",
		"Trace-ID",
		"Request-ID",
	}

	for _, header := range headers {
		if id := r.Header.Get(header); id != "" {
			return id
		}
	}

	return ""
}

// generateTraceID generates a new trace ID
func generateTraceID() string {
	return uuid.NewString()[:16]
}
