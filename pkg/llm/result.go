package llm

import (
	"encoding/json"
	"time"
)

// ProviderMetadata holds provider-specific values keyed by provider name.
type ProviderMetadata map[string]map[string]any

// ContentType discriminates generated content.
type ContentType string

const (
	ContentText      ContentType = "text"
	ContentToolCall  ContentType = "tool-call"
	ContentReasoning ContentType = "reasoning"
)

// Content is one unit of model output.
type Content struct {
	Type ContentType `json:"type"`

	// text, reasoning
	Text string `json:"text,omitempty"`

	// tool-call
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	Input      string `json:"input,omitempty"`

	ProviderMetadata ProviderMetadata `json:"providerMetadata,omitempty"`
}

// FinishReasonType is the unified reason a turn ended.
type FinishReasonType string

const (
	FinishStop      FinishReasonType = "stop"
	FinishLength    FinishReasonType = "length"
	FinishToolCalls FinishReasonType = "tool-calls"
	FinishError     FinishReasonType = "error"
	FinishOther     FinishReasonType = "other"
)

// FinishReason pairs the unified reason with the raw vendor value.
type FinishReason struct {
	Unified FinishReasonType `json:"unified"`
	Raw     string           `json:"raw,omitempty"`
}

// Usage reports token accounting for a call.
type Usage struct {
	InputTokens      int `json:"inputTokens"`
	OutputTokens     int `json:"outputTokens"`
	TotalTokens      int `json:"totalTokens"`
	CacheReadTokens  int `json:"cacheReadTokens"`
	CacheWriteTokens int `json:"cacheWriteTokens"`
}

// WarningType classifies call warnings.
type WarningType string

const (
	WarningUnsupportedSetting WarningType = "unsupported-setting"
	WarningUnsupportedTool    WarningType = "unsupported-tool"
	WarningOther              WarningType = "other"
)

// Warning reports a feature that was ignored instead of failing the call.
type Warning struct {
	Type    WarningType `json:"type"`
	Setting string      `json:"setting,omitempty"`
	Tool    string      `json:"tool,omitempty"`
	Details string      `json:"details,omitempty"`
	Message string      `json:"message,omitempty"`
}

// RequestInfo echoes what was sent to the vendor.
type RequestInfo struct {
	Body json.RawMessage `json:"body,omitempty"`
}

// ResponseInfo describes what the vendor returned.
type ResponseInfo struct {
	ID        string            `json:"id,omitempty"`
	ModelID   string            `json:"modelId,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      json.RawMessage   `json:"body,omitempty"`
}

// GenerateResult is the outcome of a non-streaming call.
type GenerateResult struct {
	Content          []Content        `json:"content"`
	FinishReason     FinishReason     `json:"finishReason"`
	Usage            Usage            `json:"usage"`
	Warnings         []Warning        `json:"warnings,omitempty"`
	Request          RequestInfo      `json:"request"`
	Response         ResponseInfo     `json:"response"`
	ProviderMetadata ProviderMetadata `json:"providerMetadata,omitempty"`
}

// StreamPartType discriminates streaming events.
type StreamPartType string

const (
	StreamResponseMetadata StreamPartType = "response-metadata"
	StreamTextStart        StreamPartType = "text-start"
	StreamTextDelta        StreamPartType = "text-delta"
	StreamTextEnd          StreamPartType = "text-end"
	StreamReasoningStart   StreamPartType = "reasoning-start"
	StreamReasoningDelta   StreamPartType = "reasoning-delta"
	StreamReasoningEnd     StreamPartType = "reasoning-end"
	StreamToolCall         StreamPartType = "tool-call"
	StreamFinish           StreamPartType = "finish"
	StreamError            StreamPartType = "error"
	StreamRaw              StreamPartType = "raw"
)

// StreamPart is one normalized streaming event.
type StreamPart struct {
	Type StreamPartType `json:"type"`

	// text-*, reasoning-*: segment id. response-metadata: response id.
	ID    string `json:"id,omitempty"`
	Delta string `json:"delta,omitempty"`

	// response-metadata
	ModelID   string     `json:"modelId,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// tool-call
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	Input      string `json:"input,omitempty"`

	// finish
	Usage        *Usage        `json:"usage,omitempty"`
	FinishReason *FinishReason `json:"finishReason,omitempty"`

	// error
	Err error `json:"-"`

	// raw
	RawValue json.RawMessage `json:"rawValue,omitempty"`

	ProviderMetadata ProviderMetadata `json:"providerMetadata,omitempty"`
}
