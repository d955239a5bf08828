package models

// ==================== SSE Event Models ====================

// Stream event types
const (
	EventResponseCreated    = "response.created"
	EventResponseInProgress = "response.in_progress"
	EventResponseCompleted  = "response.completed"
	EventResponseFailed     = "response.failed"
	EventOutputTextDelta    = "response.output_text.delta"
	EventOutputTextDone     = "response.output_text.done"
	EventOutputItemAdded    = "response.output_item.added"
	EventOutputItemDone     = "response.output_item.done"
	EventContentPartAdded   = "response.content_part.added"
	EventContentPartDone    = "response.content_part.done"
)

// StreamEvent is one decoded server-sent event. The concrete type is
// selected by the event's "type" field.
type StreamEvent interface {
	EventType() string
}

// ResponseEvent carries a response snapshot: response.created,
// response.in_progress, response.completed and response.failed
type ResponseEvent struct {
	Type           string            `json:"type"`
	SequenceNumber int               `json:"sequence_number,omitempty"`
	Response       ResponsesResponse `json:"response"`
}

// OutputTextDeltaEvent represents response.output_text.delta
type OutputTextDeltaEvent struct {
	Type         string `json:"type"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

// OutputTextDoneEvent represents response.output_text.done
type OutputTextDoneEvent struct {
	Type         string `json:"type"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Text         string `json:"text"`
}

// OutputItemEvent represents response.output_item.added and
// response.output_item.done
type OutputItemEvent struct {
	Type        string     `json:"type"`
	OutputIndex int        `json:"output_index"`
	Item        OutputItem `json:"item"`
}

// ContentPartEvent represents response.content_part.added and
// response.content_part.done
type ContentPartEvent struct {
	Type         string        `json:"type"`
	ItemID       string        `json:"item_id"`
	OutputIndex  int           `json:"output_index"`
	ContentIndex int           `json:"content_index"`
	Part         OutputContent `json:"part"`
}

// UnknownEvent is a well-formed event of a type this adapter does not model
type UnknownEvent struct {
	Type string `json:"type"`
}

func (e *ResponseEvent) EventType() string        { return e.Type }
func (e *OutputTextDeltaEvent) EventType() string { return e.Type }
func (e *OutputTextDoneEvent) EventType() string  { return e.Type }
func (e *OutputItemEvent) EventType() string      { return e.Type }
func (e *ContentPartEvent) EventType() string     { return e.Type }
func (e *UnknownEvent) EventType() string         { return e.Type }
