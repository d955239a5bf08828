package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/young1lin/openclaw-responses/internal/schema"
	"github.com/young1lin/openclaw-responses/internal/storage"
	"github.com/young1lin/openclaw-responses/pkg/llm"
)

// fakeModel returns canned results and records the last call
type fakeModel struct {
	id        string
	generate  *llm.GenerateResult
	parts     []llm.StreamPart
	warnings  []llm.Warning
	err       error
	lastCall  llm.CallOptions
	streamErr error
}

func (m *fakeModel) Provider() string { return "openclaw" }
func (m *fakeModel) ModelID() string  { return m.id }

func (m *fakeModel) DoGenerate(_ context.Context, opts llm.CallOptions) (*llm.GenerateResult, error) {
	m.lastCall = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.generate, nil
}

func (m *fakeModel) DoStream(_ context.Context, opts llm.CallOptions) (*llm.StreamResult, error) {
	m.lastCall = opts
	if m.err != nil {
		return nil, m.err
	}
	return &llm.StreamResult{
		Stream:   &fakeStream{parts: m.parts, err: m.streamErr},
		Warnings: m.warnings,
	}, nil
}

type fakeStream struct {
	parts  []llm.StreamPart
	err    error
	closed bool
}

func (s *fakeStream) Recv() (llm.StreamPart, error) {
	if len(s.parts) == 0 {
		if s.err != nil {
			return llm.StreamPart{}, s.err
		}
		return llm.StreamPart{}, io.EOF
	}
	p := s.parts[0]
	s.parts = s.parts[1:]
	return p, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// memLedger is an in-memory UsageLedger
type memLedger struct {
	mu      sync.Mutex
	records []storage.Record
}

func (l *memLedger) Put(rec *storage.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec.ID == "" {
		rec.ID = rec.ResponseID
	}
	l.records = append(l.records, *rec)
	return nil
}

func (l *memLedger) Get(id string) (*storage.Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		if l.records[i].ID == id {
			rec := l.records[i]
			return &rec, true
		}
	}
	return nil, false
}

func (l *memLedger) List(prefix string, limit int) ([]storage.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []storage.Record
	for _, rec := range l.records {
		if strings.HasPrefix(rec.ID, prefix) {
			out = append(out, rec)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func newHandler(model *fakeModel, ledger UsageLedger) *BridgeHandler {
	return NewBridgeHandler(func(modelID string) llm.LanguageModel {
		model.id = modelID
		return model
	}, Options{DefaultModel: "openclaw", Ledger: ledger})
}

const callBody = `{"model":"openclaw-large","prompt":[{"role":"user","content":[{"type":"text","text":"Hi"}]}]}`

func doRequest(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid error body %q: %v", rec.Body.String(), err)
	}
	return body.Error.Type, body.Error.Code
}

func TestHealthAndRouting(t *testing.T) {
	h := newHandler(&fakeModel{}, nil)

	rec := doRequest(h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("Health = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("Expected generated trace id")
	}

	rec = doRequest(h, http.MethodGet, "/nope", "", map[string]string{"X-Request-ID": "req-1"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rec.Code)
	}
	if rec.Header().Get("X-Trace-ID") != "req-1" {
		t.Errorf("X-Trace-ID = %q, want req-1", rec.Header().Get("X-Trace-ID"))
	}

	// metrics are not served unless configured
	rec = doRequest(h, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Metrics status = %d, want 404", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "# metrics")
	})
	h := NewBridgeHandler(nil, Options{Metrics: metricsHandler, MetricsPath: "/internal/metrics"})

	rec := doRequest(h, http.MethodGet, "/internal/metrics", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "# metrics" {
		t.Errorf("Metrics = %d %q", rec.Code, rec.Body.String())
	}
}

func TestGenerate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		model := &fakeModel{generate: &llm.GenerateResult{
			Content:      []llm.Content{{Type: llm.ContentText, Text: "Hello"}},
			FinishReason: llm.FinishReason{Unified: llm.FinishStop, Raw: "completed"},
			Usage:        llm.Usage{InputTokens: 2, OutputTokens: 1, TotalTokens: 3},
			Response:     llm.ResponseInfo{ID: "resp_1"},
		}}
		ledger := &memLedger{}
		h := newHandler(model, ledger)

		rec := doRequest(h, http.MethodPost, "/v1/generate", callBody, map[string]string{"X-Trace-ID": "trace-1"})
		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d, body %s", rec.Code, rec.Body.String())
		}

		var result llm.GenerateResult
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("Invalid body: %v", err)
		}
		if len(result.Content) != 1 || result.Content[0].Text != "Hello" {
			t.Errorf("Content = %+v", result.Content)
		}

		if model.id != "openclaw-large" {
			t.Errorf("Model id = %q", model.id)
		}
		if len(model.lastCall.Prompt) != 1 || model.lastCall.Prompt[0].Content[0].Text != "Hi" {
			t.Errorf("Prompt = %+v", model.lastCall.Prompt)
		}
		if model.lastCall.Headers["X-Trace-ID"] != "trace-1" {
			t.Errorf("Trace id not forwarded: %v", model.lastCall.Headers)
		}

		rec2, ok := ledger.Get("resp_1")
		if !ok {
			t.Fatal("Usage not recorded")
		}
		if rec2.Mode != "generate" || rec2.TotalTokens != 3 || rec2.FinishReason != "stop" {
			t.Errorf("Record = %+v", rec2)
		}
	})

	t.Run("Default model", func(t *testing.T) {
		model := &fakeModel{generate: &llm.GenerateResult{}}
		h := newHandler(model, nil)
		body := `{"prompt":[{"role":"user","content":[{"type":"text","text":"Hi"}]}]}`
		if rec := doRequest(h, http.MethodPost, "/v1/generate", body, nil); rec.Code != http.StatusOK {
			t.Fatalf("Status = %d", rec.Code)
		}
		if model.id != "openclaw" {
			t.Errorf("Model id = %q, want openclaw", model.id)
		}
	})

	tests := []struct {
		name     string
		method   string
		body     string
		err      error
		status   int
		wantType string
		wantCode string
	}{
		{"wrong method", http.MethodGet, "", nil, http.StatusMethodNotAllowed, "method_not_allowed", ""},
		{"malformed body", http.MethodPost, "{", nil, http.StatusBadRequest, "parse_error", ""},
		{"empty prompt", http.MethodPost, `{"prompt":[]}`, nil, http.StatusBadRequest, "invalid_request_error", ""},
		{"invalid prompt", http.MethodPost, callBody, &llm.InvalidPromptError{Message: "bad role"}, http.StatusBadRequest, "invalid_request_error", ""},
		{"invalid argument", http.MethodPost, callBody, &llm.InvalidArgumentError{Argument: "x", Message: "bad"}, http.StatusBadRequest, "invalid_request_error", ""},
		{"upstream status", http.MethodPost, callBody, &llm.APICallError{StatusCode: 429, Message: "slow down"}, http.StatusTooManyRequests, "upstream_error", "429"},
		{"upstream transport", http.MethodPost, callBody, &llm.APICallError{Message: "dial failed"}, http.StatusBadGateway, "upstream_error", ""},
		{"invalid upstream response", http.MethodPost, callBody, &schema.DecodeError{Kind: schema.KindResponse, Field: "id", Reason: "is required"}, http.StatusBadGateway, "invalid_upstream_response", ""},
		{"internal", http.MethodPost, callBody, errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(&fakeModel{err: tt.err}, nil)
			rec := doRequest(h, tt.method, "/v1/generate", tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("Status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			gotType, gotCode := decodeError(t, rec)
			if gotType != tt.wantType || gotCode != tt.wantCode {
				t.Errorf("Error = %q/%q, want %q/%q", gotType, gotCode, tt.wantType, tt.wantCode)
			}
		})
	}
}

func TestStream(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		model := &fakeModel{
			warnings: []llm.Warning{{Type: llm.WarningUnsupportedSetting, Setting: "topK"}},
			parts: []llm.StreamPart{
				{Type: llm.StreamResponseMetadata, ID: "resp_9"},
				{Type: llm.StreamTextStart, ID: "msg_1"},
				{Type: llm.StreamTextDelta, ID: "msg_1", Delta: "Hi"},
				{Type: llm.StreamError, Err: errors.New("bad event")},
				{Type: llm.StreamTextEnd, ID: "msg_1"},
				{
					Type:         llm.StreamFinish,
					Usage:        &llm.Usage{InputTokens: 1, OutputTokens: 1, TotalTokens: 2},
					FinishReason: &llm.FinishReason{Unified: llm.FinishStop},
				},
			},
		}
		ledger := &memLedger{}
		h := newHandler(model, ledger)

		rec := doRequest(h, http.MethodPost, "/v1/stream", callBody, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
			t.Errorf("Content-Type = %q", ct)
		}

		body := rec.Body.String()
		wantOrder := []string{
			"event: warnings",
			"event: response-metadata",
			"event: text-start",
			"event: text-delta",
			"event: error",
			"event: text-end",
			"event: finish",
			"data: [DONE]",
		}
		pos := 0
		for _, want := range wantOrder {
			i := strings.Index(body[pos:], want)
			if i < 0 {
				t.Fatalf("Missing %q after offset %d in %s", want, pos, body)
			}
			pos += i + len(want)
		}
		if !strings.Contains(body, `"message":"bad event"`) {
			t.Errorf("Error event lacks message: %s", body)
		}

		rec2, ok := ledger.Get("resp_9")
		if !ok {
			t.Fatal("Usage not recorded")
		}
		if rec2.Mode != "stream" || rec2.TotalTokens != 2 {
			t.Errorf("Record = %+v", rec2)
		}
	})

	t.Run("Response id from finish metadata", func(t *testing.T) {
		model := &fakeModel{parts: []llm.StreamPart{{
			Type:             llm.StreamFinish,
			Usage:            &llm.Usage{},
			FinishReason:     &llm.FinishReason{Unified: llm.FinishStop},
			ProviderMetadata: llm.ProviderMetadata{"openclaw": {"responseId": "resp_meta"}},
		}}}
		ledger := &memLedger{}
		h := newHandler(model, ledger)

		doRequest(h, http.MethodPost, "/v1/stream", callBody, nil)
		if _, ok := ledger.Get("resp_meta"); !ok {
			t.Error("Expected record keyed by finish metadata response id")
		}
	})

	t.Run("Call error before streaming", func(t *testing.T) {
		h := newHandler(&fakeModel{err: &llm.APICallError{StatusCode: 503, Message: "overloaded"}}, nil)
		rec := doRequest(h, http.MethodPost, "/v1/stream", callBody, nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want 503", rec.Code)
		}
	})

	t.Run("Stream read error ends stream", func(t *testing.T) {
		model := &fakeModel{
			parts:     []llm.StreamPart{{Type: llm.StreamTextDelta, ID: "m", Delta: "x"}},
			streamErr: errors.New("reset"),
		}
		h := newHandler(model, nil)
		rec := doRequest(h, http.MethodPost, "/v1/stream", callBody, nil)
		if !strings.HasSuffix(rec.Body.String(), "data: [DONE]\n\n") {
			t.Errorf("Stream not terminated: %q", rec.Body.String())
		}
	})
}

func TestUsage(t *testing.T) {
	ledger := &memLedger{}
	for _, id := range []string{"resp_a1", "resp_a2", "resp_b1"} {
		_ = ledger.Put(&storage.Record{ID: id, TotalTokens: 1})
	}
	h := newHandler(&fakeModel{}, ledger)

	t.Run("List with prefix", func(t *testing.T) {
		rec := doRequest(h, http.MethodGet, "/v1/usage?prefix=resp_a&limit=10", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d", rec.Code)
		}
		var body struct {
			Data []storage.Record `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("Invalid body: %v", err)
		}
		if len(body.Data) != 2 {
			t.Errorf("Got %d records, want 2", len(body.Data))
		}
	})

	t.Run("Empty list", func(t *testing.T) {
		rec := doRequest(h, http.MethodGet, "/v1/usage?prefix=none", "", nil)
		if !strings.Contains(rec.Body.String(), `"data":[]`) {
			t.Errorf("Body = %s", rec.Body.String())
		}
	})

	t.Run("Get by id", func(t *testing.T) {
		rec := doRequest(h, http.MethodGet, "/v1/usage/resp_b1", "", nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "resp_b1") {
			t.Errorf("Get = %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Errors", func(t *testing.T) {
		tests := []struct {
			method string
			path   string
			status int
		}{
			{http.MethodGet, "/v1/usage/missing", http.StatusNotFound},
			{http.MethodGet, "/v1/usage?limit=-1", http.StatusBadRequest},
			{http.MethodGet, "/v1/usage?limit=abc", http.StatusBadRequest},
			{http.MethodPost, "/v1/usage", http.StatusMethodNotAllowed},
		}
		for _, tt := range tests {
			if rec := doRequest(h, tt.method, tt.path, "", nil); rec.Code != tt.status {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.status)
			}
		}
	})

	t.Run("Ledger disabled", func(t *testing.T) {
		rec := doRequest(newHandler(&fakeModel{}, nil), http.MethodGet, "/v1/usage", "", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want 404", rec.Code)
		}
	})
}
