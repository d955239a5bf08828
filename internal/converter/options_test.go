package converter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/young1lin/openclaw-responses/internal/jsonx"
	"github.com/young1lin/openclaw-responses/pkg/llm"
)

func providerOptions(raw string) map[string]json.RawMessage {
	return map[string]json.RawMessage{ProviderKey: json.RawMessage(raw)}
}

func TestParseProviderOptions(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]json.RawMessage
		wantErr string
	}{
		{"missing", nil, ""},
		{"other provider only", map[string]json.RawMessage{"acme": json.RawMessage(`{"x":1}`)}, ""},
		{"valid", providerOptions(`{"reasoningEffort":"high","reasoningSummary":"auto","maxToolCalls":3,"metadata":{"k":"v"}}`), ""},
		{"bad effort", providerOptions(`{"reasoningEffort":"extreme"}`), "reasoningEffort"},
		{"bad summary", providerOptions(`{"reasoningSummary":"verbose"}`), "reasoningSummary"},
		{"zero max tool calls", providerOptions(`{"maxToolCalls":0}`), "maxToolCalls"},
		{"metadata not strings", providerOptions(`{"metadata":{"k":1}}`), "providerOptions.openclaw"},
		{"malformed", providerOptions(`{"user":`), "providerOptions.openclaw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseProviderOptions(tt.raw)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if opts == nil {
					t.Fatal("expected options")
				}
				return
			}

			var argErr *llm.InvalidArgumentError
			if !errors.As(err, &argErr) {
				t.Fatalf("Expected InvalidArgumentError, got %v", err)
			}
			if !strings.Contains(argErr.Argument, tt.wantErr) {
				t.Errorf("Argument = %q, want it to mention %q", argErr.Argument, tt.wantErr)
			}
		})
	}
}

func TestUnsupportedSettings(t *testing.T) {
	topK := 40
	seed := 7
	penalty := 0.5
	temp := 0.2

	warnings := UnsupportedSettings(&llm.CallOptions{
		Temperature:      &temp,
		TopK:             &topK,
		StopSequences:    []string{"END"},
		PresencePenalty:  &penalty,
		FrequencyPenalty: &penalty,
		Seed:             &seed,
		ResponseFormat:   &llm.ResponseFormat{Type: "json"},
	})

	want := []string{"topK", "stopSequences", "presencePenalty", "frequencyPenalty", "seed", "responseFormat"}
	if len(warnings) != len(want) {
		t.Fatalf("Expected %d warnings, got %+v", len(want), warnings)
	}
	for i, setting := range want {
		if warnings[i].Type != llm.WarningUnsupportedSetting || warnings[i].Setting != setting {
			t.Errorf("warning %d = %+v, want unsupported-setting %s", i, warnings[i], setting)
		}
	}

	if w := UnsupportedSettings(&llm.CallOptions{Temperature: &temp}); len(w) != 0 {
		t.Errorf("Expected no warnings for supported settings, got %+v", w)
	}
}

func TestBuildRequest(t *testing.T) {
	temp := 0.7
	maxTokens := 256
	topK := 5

	opts := &llm.CallOptions{
		Prompt:          []llm.Message{{Role: llm.RoleUser, Content: []llm.Part{textPart("Hello")}}},
		Temperature:     &temp,
		MaxOutputTokens: &maxTokens,
		TopK:            &topK,
		Tools: []llm.Tool{
			{Type: llm.ToolFunction, Name: "f", InputSchema: json.RawMessage(`{"type":"object"}`)},
		},
		ToolChoice: &llm.ToolChoice{Type: llm.ToolChoiceRequired},
		ProviderOptions: providerOptions(`{
			"instructions": "Be nice",
			"user": "u-1",
			"reasoningEffort": "low",
			"metadata": {"team": "core"},
			"maxToolCalls": 2,
			"sessionKey": "sess-9",
			"agentId": "agent-3"
		}`),
	}

	args, err := BuildRequest("openclaw-large", opts)
	if err != nil {
		t.Fatalf("BuildRequest() error: %v", err)
	}

	body := args.Body
	if body.Model != "openclaw-large" || body.Instructions != "Be nice" || body.User != "u-1" {
		t.Errorf("Unexpected body fields: %+v", body)
	}
	if body.Reasoning == nil || body.Reasoning.Effort != "low" || body.Reasoning.Summary != "" {
		t.Errorf("Unexpected reasoning: %+v", body.Reasoning)
	}
	if body.MaxToolCalls == nil || *body.MaxToolCalls != 2 {
		t.Errorf("Unexpected max tool calls: %v", body.MaxToolCalls)
	}
	if body.Metadata["team"] != "core" {
		t.Errorf("Unexpected metadata: %v", body.Metadata)
	}
	if body.Stream {
		t.Error("BuildRequest must not set stream")
	}

	if args.Headers[HeaderSessionKey] != "sess-9" || args.Headers[HeaderAgentID] != "agent-3" {
		t.Errorf("Unexpected headers: %v", args.Headers)
	}
	if len(args.Warnings) != 1 || args.Warnings[0].Setting != "topK" {
		t.Errorf("Unexpected warnings: %+v", args.Warnings)
	}

	data, err := jsonx.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := jsonx.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"model", "input", "temperature", "max_output_tokens", "tools", "tool_choice", "instructions", "user", "metadata", "max_tool_calls", "reasoning"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Expected key %q in body %s", key, data)
		}
	}
	for _, key := range []string{"top_p", "stream", "top_k"} {
		if _, ok := decoded[key]; ok {
			t.Errorf("Did not expect key %q in body %s", key, data)
		}
	}
}

func TestBuildRequestWithoutReasoning(t *testing.T) {
	args, err := BuildRequest("m", &llm.CallOptions{
		Prompt:          []llm.Message{{Role: llm.RoleUser, Content: []llm.Part{textPart("hi")}}},
		ProviderOptions: providerOptions(`{"user":"u"}`),
	})
	if err != nil {
		t.Fatalf("BuildRequest() error: %v", err)
	}
	if args.Body.Reasoning != nil {
		t.Errorf("Expected no reasoning block, got %+v", args.Body.Reasoning)
	}
	if len(args.Headers) != 0 {
		t.Errorf("Expected no session headers, got %v", args.Headers)
	}
}

func TestBuildRequestInvalidOptions(t *testing.T) {
	_, err := BuildRequest("m", &llm.CallOptions{
		Prompt:          []llm.Message{{Role: llm.RoleUser, Content: []llm.Part{textPart("hi")}}},
		ProviderOptions: providerOptions(`{"reasoningEffort":"max"}`),
	})
	var argErr *llm.InvalidArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("Expected InvalidArgumentError, got %v", err)
	}
}
