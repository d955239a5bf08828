package models

import (
	"encoding/json"
	"errors"

	"github.com/young1lin/openclaw-responses/internal/jsonx"
)

// ==================== Responses API Request Models ====================

// ResponsesRequest represents the body of POST {baseURL}/responses
type ResponsesRequest struct {
	Model           string            `json:"model"`
	Input           []InputItem       `json:"input"`
	Instructions    string            `json:"instructions,omitempty"`
	Temperature     *float64          `json:"temperature,omitempty"`
	TopP            *float64          `json:"top_p,omitempty"`
	MaxOutputTokens *int              `json:"max_output_tokens,omitempty"`
	Tools           []Tool            `json:"tools,omitempty"`
	ToolChoice      *ToolChoice       `json:"tool_choice,omitempty"`
	User            string            `json:"user,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	MaxToolCalls    *int              `json:"max_tool_calls,omitempty"`
	Reasoning       *ReasoningConfig  `json:"reasoning,omitempty"`
	Stream          bool              `json:"stream,omitempty"`
}

// ReasoningConfig is only sent when effort or summary is set
type ReasoningConfig struct {
	Effort  string `json:"effort,omitempty"`  // "low", "medium", "high"
	Summary string `json:"summary,omitempty"` // "auto", "concise", "detailed"
}

// InputItem represents an item in the input array
type InputItem struct {
	Type      string          `json:"type"` // "message", "function_call", "function_call_output", "reasoning"
	Role      string          `json:"role,omitempty"`
	Content   *MessageContent `json:"content,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
	Output    string          `json:"output,omitempty"`
	Summary   []SummaryText   `json:"summary,omitempty"`
}

// MessageContent is either plain text or an ordered list of content parts
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

// TextContent builds plain-text message content
func TextContent(text string) *MessageContent {
	return &MessageContent{Text: text}
}

// PartsContent builds multi-part message content
func PartsContent(parts []ContentPart) *MessageContent {
	return &MessageContent{Parts: parts}
}

// MarshalJSON encodes parts as an array and everything else as a string
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return jsonx.Marshal(c.Parts)
	}
	return jsonx.Marshal(c.Text)
}

// UnmarshalJSON accepts both the string and the array form
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		c.Parts = nil
		return jsonx.Unmarshal(data, &c.Text)
	}
	if len(data) > 0 && data[0] == '[' {
		c.Text = ""
		return jsonx.Unmarshal(data, &c.Parts)
	}
	return errors.New("message content must be a string or an array")
}

// ContentPart represents content within a message
type ContentPart struct {
	Type   string         `json:"type"` // "input_text", "output_text", "input_image", "input_file"
	Text   string         `json:"text,omitempty"`
	Source *ContentSource `json:"source,omitempty"`
}

// ContentSource locates image and file payloads
type ContentSource struct {
	Type      string `json:"type"` // "url", "base64"
	URL       string `json:"url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	Filename  string `json:"filename,omitempty"`
}

// SummaryText is one entry of a reasoning summary or reasoning content
type SummaryText struct {
	Type string `json:"type"` // "summary_text", "reasoning_text"
	Text string `json:"text"`
}

// Tool represents a tool definition
type Tool struct {
	Type     string      `json:"type"` // "function"
	Function FunctionDef `json:"function"`
}

// FunctionDef represents function definition
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolChoice is either a mode string ("auto", "none", "required") or a
// specific function
type ToolChoice struct {
	Mode     string
	Function string
}

type toolChoiceFunction struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// MarshalJSON encodes a specific function choice as an object and modes as strings
func (c ToolChoice) MarshalJSON() ([]byte, error) {
	if c.Function != "" {
		fc := toolChoiceFunction{Type: "function"}
		fc.Function.Name = c.Function
		return jsonx.Marshal(fc)
	}
	return jsonx.Marshal(c.Mode)
}

// UnmarshalJSON accepts both encodings
func (c *ToolChoice) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		c.Function = ""
		return jsonx.Unmarshal(data, &c.Mode)
	}
	var fc toolChoiceFunction
	if err := jsonx.Unmarshal(data, &fc); err != nil {
		return err
	}
	c.Mode = ""
	c.Function = fc.Function.Name
	return nil
}

// ==================== Responses API Response Models ====================

// Response statuses
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
	StatusIncomplete = "incomplete"
)

// Output item types
const (
	ItemMessage      = "message"
	ItemFunctionCall = "function_call"
	ItemReasoning    = "reasoning"
)

// ResponsesResponse represents the Responses API response
type ResponsesResponse struct {
	ID        string       `json:"id"`
	Object    string       `json:"object,omitempty"`
	CreatedAt int64        `json:"created_at"`
	Status    string       `json:"status"`
	Model     string       `json:"model"`
	Output    []OutputItem `json:"output"`
	Usage     *UsageInfo   `json:"usage,omitempty"`
	Error     *ErrorInfo   `json:"error,omitempty"`
}

// OutputItem represents an item in the output array
type OutputItem struct {
	Type      string          `json:"type"` // "message", "function_call", "reasoning"
	ID        string          `json:"id"`
	Status    string          `json:"status,omitempty"`
	Role      string          `json:"role,omitempty"`
	Content   []OutputContent `json:"content,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
	Summary   []SummaryText   `json:"summary,omitempty"`
}

// OutputContent is a content part of a message or reasoning output item
type OutputContent struct {
	Type    string `json:"type"` // "output_text", "refusal", "reasoning_text"
	Text    string `json:"text,omitempty"`
	Refusal string `json:"refusal,omitempty"`
}

// UsageInfo represents token usage information
type UsageInfo struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ErrorInfo is the application error embedded in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an HTTP error body
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
