// Package llm defines the vendor-agnostic language model contract: prompts,
// call options, results and streaming parts. Provider adapters translate
// between these types and their own wire formats.
package llm

import "encoding/json"

// Role identifies the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType discriminates the variants of Part.
type PartType string

const (
	PartText                 PartType = "text"
	PartFile                 PartType = "file"
	PartToolCall             PartType = "tool-call"
	PartToolResult           PartType = "tool-result"
	PartReasoning            PartType = "reasoning"
	PartToolApprovalResponse PartType = "tool-approval-response"
)

// Message is one entry of a prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content []Part `json:"content"`
}

// Part is a single piece of message content. Which fields are meaningful
// depends on Type.
type Part struct {
	Type PartType `json:"type"`

	// text, reasoning
	Text string `json:"text,omitempty"`

	// file
	MediaType string    `json:"mediaType,omitempty"`
	Data      *FileData `json:"data,omitempty"`
	Filename  string    `json:"filename,omitempty"`

	// tool-call, tool-result
	ToolCallID string            `json:"toolCallId,omitempty"`
	ToolName   string            `json:"toolName,omitempty"`
	Input      string            `json:"input,omitempty"` // raw JSON arguments
	Output     *ToolResultOutput `json:"output,omitempty"`

	// tool-approval-response
	ApprovalID string `json:"approvalId,omitempty"`
	Approved   bool   `json:"approved,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// FileData carries a file payload. Exactly one of URL, Base64 or Bytes is
// expected to be set. URL marks the payload as a URL handle; Base64 may hold
// either base64 text or an absolute http(s) URL string.
type FileData struct {
	URL    string `json:"url,omitempty"`
	Base64 string `json:"base64,omitempty"`
	Bytes  []byte `json:"bytes,omitempty"`
}

// ToolResultOutputType discriminates tool result payloads.
type ToolResultOutputType string

const (
	OutputText            ToolResultOutputType = "text"
	OutputErrorText       ToolResultOutputType = "error-text"
	OutputJSON            ToolResultOutputType = "json"
	OutputErrorJSON       ToolResultOutputType = "error-json"
	OutputContent         ToolResultOutputType = "content"
	OutputExecutionDenied ToolResultOutputType = "execution-denied"
)

// ToolResultOutput is the result a tool produced for a tool call.
type ToolResultOutput struct {
	Type   ToolResultOutputType `json:"type"`
	Value  any                  `json:"value,omitempty"`
	Reason string               `json:"reason,omitempty"`
}

// ToolType discriminates tool definitions.
type ToolType string

const (
	ToolFunction        ToolType = "function"
	ToolProviderDefined ToolType = "provider-defined"
)

// Tool is a tool made available to the model.
type Tool struct {
	Type        ToolType        `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`

	// ID identifies provider-defined tools, e.g. "openai.web_search".
	ID string `json:"id,omitempty"`
}

// ToolChoiceType controls how the model may use tools.
type ToolChoiceType string

const (
	ToolChoiceAuto     ToolChoiceType = "auto"
	ToolChoiceNone     ToolChoiceType = "none"
	ToolChoiceRequired ToolChoiceType = "required"
	ToolChoiceTool     ToolChoiceType = "tool"
)

// ToolChoice selects the tool usage mode. ToolName is set for ToolChoiceTool.
type ToolChoice struct {
	Type     ToolChoiceType `json:"type"`
	ToolName string         `json:"toolName,omitempty"`
}

// ResponseFormat requests structured output.
type ResponseFormat struct {
	Type   string          `json:"type"` // "text" or "json"
	Schema json.RawMessage `json:"schema,omitempty"`
	Name   string          `json:"name,omitempty"`
}

// CallOptions are the settings of a single model invocation. Cancellation
// is carried by the context passed alongside.
type CallOptions struct {
	Prompt []Message `json:"prompt"`

	MaxOutputTokens  *int            `json:"maxOutputTokens,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"topP,omitempty"`
	TopK             *int            `json:"topK,omitempty"`
	StopSequences    []string        `json:"stopSequences,omitempty"`
	PresencePenalty  *float64        `json:"presencePenalty,omitempty"`
	FrequencyPenalty *float64        `json:"frequencyPenalty,omitempty"`
	Seed             *int            `json:"seed,omitempty"`
	ResponseFormat   *ResponseFormat `json:"responseFormat,omitempty"`

	Tools      []Tool      `json:"tools,omitempty"`
	ToolChoice *ToolChoice `json:"toolChoice,omitempty"`

	// ProviderOptions maps a provider name to its provider-specific options.
	ProviderOptions map[string]json.RawMessage `json:"providerOptions,omitempty"`

	Headers          map[string]string `json:"headers,omitempty"`
	IncludeRawChunks bool              `json:"includeRawChunks,omitempty"`
}
