package openclaw

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/young1lin/openclaw-responses/internal/converter"
	"github.com/young1lin/openclaw-responses/internal/jsonx"
	"github.com/young1lin/openclaw-responses/internal/metrics"
	"github.com/young1lin/openclaw-responses/internal/models"
	"github.com/young1lin/openclaw-responses/internal/schema"
	"github.com/young1lin/openclaw-responses/pkg/llm"
)

// vendorErrorStatus marks a call that failed because the vendor reported an
// error inside an otherwise well-formed response.
const vendorErrorStatus = http.StatusBadRequest

// ResponsesLanguageModel calls POST {baseURL}/responses. It holds no per-call
// state and is safe for concurrent use.
type ResponsesLanguageModel struct {
	provider *Provider
	modelID  string
	logger   *zap.Logger
}

var _ llm.LanguageModel = (*ResponsesLanguageModel)(nil)

// Provider returns the provider name
func (m *ResponsesLanguageModel) Provider() string {
	return m.provider.name
}

// ModelID returns the vendor model id
func (m *ResponsesLanguageModel) ModelID() string {
	return m.modelID
}

func (m *ResponsesLanguageModel) url() string {
	return m.provider.baseURL + "/responses"
}

// prepare builds the request body and the merged headers for one call
func (m *ResponsesLanguageModel) prepare(opts *llm.CallOptions, stream bool) (*converter.RequestArgs, []byte, http.Header, error) {
	args, err := converter.BuildRequest(m.modelID, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	args.Body.Stream = stream

	body, err := jsonx.Marshal(args.Body)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := combineHeaders(m.provider.headers, args.Headers, opts.Headers)
	return args, body, headers, nil
}

// send posts body and returns the response when the status is 2xx. Any other
// outcome is an *llm.APICallError.
func (m *ResponsesLanguageModel) send(ctx context.Context, body []byte, headers http.Header, stream bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	m.logger.Info("sending request to vendor",
		zap.String("url", m.url()),
		zap.Bool("stream", stream),
	)
	m.logger.Debug("raw request body", zap.ByteString("body", body))

	resp, err := m.provider.client.Do(req)
	if err != nil {
		return nil, &llm.APICallError{
			Message:     err.Error(),
			URL:         m.url(),
			RequestBody: body,
			IsRetryable: !errors.Is(err, context.Canceled),
			Cause:       err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := readResponseBody(resp.Body, maxResponseBodySize)
		m.logger.Error("vendor error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, &llm.APICallError{
			Message:         errorMessage(resp.StatusCode, raw),
			URL:             m.url(),
			StatusCode:      resp.StatusCode,
			RequestBody:     body,
			ResponseHeaders: flattenHeaders(resp.Header),
			ResponseBody:    raw,
			IsRetryable:     isRetryableStatus(resp.StatusCode),
		}
	}

	return resp, nil
}

// DoGenerate performs a non-streaming call
func (m *ResponsesLanguageModel) DoGenerate(ctx context.Context, opts llm.CallOptions) (*llm.GenerateResult, error) {
	start := time.Now()
	result, err := m.doGenerate(ctx, &opts)
	metrics.CallDuration.WithLabelValues(m.modelID, metrics.ModeGenerate).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CallsTotal.WithLabelValues(m.modelID, metrics.ModeGenerate, "failed").Inc()
		return nil, err
	}

	metrics.CallsTotal.WithLabelValues(m.modelID, metrics.ModeGenerate, string(result.FinishReason.Unified)).Inc()
	observeUsage(m.modelID, result.Usage)
	return result, nil
}

func (m *ResponsesLanguageModel) doGenerate(ctx context.Context, opts *llm.CallOptions) (*llm.GenerateResult, error) {
	args, body, headers, err := m.prepare(opts, false)
	if err != nil {
		return nil, err
	}
	observeWarnings(args.Warnings)

	resp, err := m.send(ctx, body, headers, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respHeaders := flattenHeaders(resp.Header)
	raw, err := readResponseBody(resp.Body, maxResponseBodySize)
	if err != nil {
		return nil, &llm.APICallError{
			Message:         "read response body: " + err.Error(),
			URL:             m.url(),
			StatusCode:      resp.StatusCode,
			RequestBody:     body,
			ResponseHeaders: respHeaders,
			ResponseBody:    raw,
			Cause:           err,
		}
	}
	m.logger.Debug("raw response body", zap.ByteString("body", raw))

	decoded, err := schema.DecodeResponse(raw)
	if err != nil {
		var de *schema.DecodeError
		if errors.As(err, &de) {
			metrics.DecodeFailuresTotal.WithLabelValues(de.Kind).Inc()
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	converted, err := converter.ConvertResponse(decoded)
	if err != nil {
		var vendorErr *converter.VendorError
		if errors.As(err, &vendorErr) {
			m.logger.Error("vendor reported an error",
				zap.String("response_id", decoded.ID),
				zap.String("code", vendorErr.Code),
				zap.String("message", vendorErr.Message),
			)
			return nil, &llm.APICallError{
				Message:         vendorErr.Message,
				URL:             m.url(),
				StatusCode:      vendorErrorStatus,
				RequestBody:     body,
				ResponseHeaders: respHeaders,
				ResponseBody:    raw,
				Cause:           vendorErr,
			}
		}
		return nil, err
	}

	m.logger.Info("response converted",
		zap.String("response_id", decoded.ID),
		zap.String("finish_reason", string(converted.FinishReason.Unified)),
		zap.Int("content_count", len(converted.Content)),
		zap.Int("input_tokens", converted.Usage.InputTokens),
		zap.Int("output_tokens", converted.Usage.OutputTokens),
	)

	result := &llm.GenerateResult{
		Content:      converted.Content,
		FinishReason: converted.FinishReason,
		Usage:        converted.Usage,
		Warnings:     args.Warnings,
		Request:      llm.RequestInfo{Body: body},
		Response: llm.ResponseInfo{
			ID:      decoded.ID,
			ModelID: decoded.Model,
			Headers: respHeaders,
			Body:    raw,
		},
		ProviderMetadata: llm.ProviderMetadata{
			converter.ProviderKey: {"responseId": decoded.ID},
		},
	}
	if decoded.CreatedAt > 0 {
		result.Response.Timestamp = time.Unix(decoded.CreatedAt, 0).UTC()
	}
	return result, nil
}

// DoStream starts a streaming call. The returned stream must be closed by
// the caller. Cancelling ctx aborts the underlying transport.
func (m *ResponsesLanguageModel) DoStream(ctx context.Context, opts llm.CallOptions) (*llm.StreamResult, error) {
	start := time.Now()
	result, err := m.doStream(ctx, &opts, start)
	if err != nil {
		metrics.CallDuration.WithLabelValues(m.modelID, metrics.ModeStream).Observe(time.Since(start).Seconds())
		metrics.CallsTotal.WithLabelValues(m.modelID, metrics.ModeStream, "failed").Inc()
		return nil, err
	}
	return result, nil
}

func (m *ResponsesLanguageModel) doStream(ctx context.Context, opts *llm.CallOptions, start time.Time) (*llm.StreamResult, error) {
	args, body, headers, err := m.prepare(opts, true)
	if err != nil {
		return nil, err
	}
	observeWarnings(args.Warnings)

	resp, err := m.send(ctx, body, headers, true)
	if err != nil {
		return nil, err
	}

	stream := newEventStream(resp.Body, converter.NewStreamReconstructor(converter.StreamOptions{
		IncludeRawChunks: opts.IncludeRawChunks,
		Logger:           m.logger,
	}), m.modelID, start, m.logger)

	return &llm.StreamResult{
		Stream:   stream,
		Warnings: args.Warnings,
		Request:  llm.RequestInfo{Body: body},
		Response: llm.ResponseInfo{Headers: flattenHeaders(resp.Header)},
	}, nil
}

// readResponseBody reads at most maxSize bytes
func readResponseBody(body io.Reader, maxSize int64) ([]byte, error) {
	limitedReader := io.LimitReader(body, maxSize+1)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return data[:maxSize], fmt.Errorf("response body too large, truncated at %d bytes", maxSize)
	}
	return data, nil
}

// errorMessage extracts the vendor's error message from a non-2xx body
func errorMessage(status int, body []byte) string {
	var errResp struct {
		Error   models.ErrorDetail `json:"error"`
		Message string             `json:"message"`
	}
	if err := jsonx.Unmarshal(body, &errResp); err == nil {
		if errResp.Error.Message != "" {
			return errResp.Error.Message
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return http.StatusText(status)
}

// isRetryableStatus reports statuses a caller may retry: 408, 409, 429, 5xx
func isRetryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusConflict,
		status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	}
	return false
}

func observeWarnings(warnings []llm.Warning) {
	for _, w := range warnings {
		metrics.WarningsTotal.WithLabelValues(string(w.Type)).Inc()
	}
}

func observeUsage(modelID string, usage llm.Usage) {
	metrics.TokensTotal.WithLabelValues(modelID, "input").Add(float64(usage.InputTokens))
	metrics.TokensTotal.WithLabelValues(modelID, "output").Add(float64(usage.OutputTokens))
}
