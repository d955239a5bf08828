package converter

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/young1lin/openclaw-responses/internal/models"
	"github.com/young1lin/openclaw-responses/internal/schema"
	"github.com/young1lin/openclaw-responses/pkg/llm"
)

// StreamState is the lifecycle position of a StreamReconstructor
type StreamState int

const (
	StateNotStarted StreamState = iota
	StateStreaming
	StateFinished
)

func (s StreamState) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateStreaming:
		return "streaming"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// StreamOptions configures a StreamReconstructor
type StreamOptions struct {
	// IncludeRawChunks emits a raw part ahead of the parts each chunk produces
	IncludeRawChunks bool
	Logger           *zap.Logger
}

// StreamReconstructor turns Responses API stream events into normalized
// stream parts. One reconstructor serves exactly one stream and is not safe
// for concurrent use.
type StreamReconstructor struct {
	state      StreamState
	includeRaw bool
	logger     *zap.Logger

	responseID   string
	hasToolCalls bool

	// at most one text segment is open at a time
	textOpen  bool
	textID    string
	usage     *llm.Usage
	finish    llm.FinishReason
	seenItems map[string]bool
}

// NewStreamReconstructor creates the translation state for one stream
func NewStreamReconstructor(opts StreamOptions) *StreamReconstructor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamReconstructor{
		includeRaw: opts.IncludeRawChunks,
		logger:     logger,
		finish:     llm.FinishReason{Unified: llm.FinishOther, Raw: "unknown"},
		seenItems:  make(map[string]bool),
	}
}

// State returns the current lifecycle state
func (r *StreamReconstructor) State() StreamState {
	return r.state
}

// ResponseID returns the vendor response id once known
func (r *StreamReconstructor) ResponseID() string {
	return r.responseID
}

// ConsumeChunk decodes one SSE data payload and consumes it. A payload that
// fails validation becomes an error part and forces the finish reason to
// error; the stream keeps going.
func (r *StreamReconstructor) ConsumeChunk(data []byte) []llm.StreamPart {
	if r.state == StateFinished {
		return nil
	}

	var parts []llm.StreamPart
	if r.includeRaw {
		raw := make([]byte, len(data))
		copy(raw, data)
		parts = append(parts, llm.StreamPart{Type: llm.StreamRaw, RawValue: raw})
	}

	event, err := schema.DecodeStreamEvent(data)
	if err != nil {
		r.state = StateStreaming
		r.finish = llm.FinishReason{Unified: llm.FinishError}
		r.logger.Warn("invalid stream event", zap.Error(err))
		return append(parts, llm.StreamPart{Type: llm.StreamError, Err: err})
	}

	return append(parts, r.Consume(event)...)
}

// Consume applies one decoded event and returns the parts it produces
func (r *StreamReconstructor) Consume(event models.StreamEvent) []llm.StreamPart {
	if r.state == StateFinished {
		return nil
	}
	r.state = StateStreaming

	switch ev := event.(type) {
	case *models.ResponseEvent:
		return r.consumeResponse(ev)
	case *models.OutputTextDeltaEvent:
		return r.consumeTextDelta(ev)
	case *models.OutputItemEvent:
		return r.consumeItem(&ev.Item, ev.Type == models.EventOutputItemDone)
	case *models.UnknownEvent:
		r.logger.Debug("ignoring unknown stream event", zap.String("type", ev.Type))
	}

	return nil
}

func (r *StreamReconstructor) consumeResponse(ev *models.ResponseEvent) []llm.StreamPart {
	switch ev.Type {
	case models.EventResponseCreated:
		r.responseID = ev.Response.ID
		part := llm.StreamPart{
			Type:    llm.StreamResponseMetadata,
			ID:      ev.Response.ID,
			ModelID: ev.Response.Model,
		}
		if ev.Response.CreatedAt > 0 {
			ts := time.Unix(ev.Response.CreatedAt, 0).UTC()
			part.Timestamp = &ts
		}
		return []llm.StreamPart{part}

	case models.EventResponseCompleted, models.EventResponseFailed:
		if r.responseID == "" {
			r.responseID = ev.Response.ID
		}
		usage := ConvertUsage(ev.Response.Usage)
		r.usage = &usage
		r.finish = MapFinishReason(ev.Response.Status, r.hasToolCalls)
	}

	return nil
}

func (r *StreamReconstructor) consumeTextDelta(ev *models.OutputTextDeltaEvent) []llm.StreamPart {
	var parts []llm.StreamPart
	if !r.textOpen {
		r.textOpen = true
		r.textID = ev.ItemID
		if r.textID == "" {
			r.textID = uuid.NewString()
		}
		parts = append(parts, llm.StreamPart{
			Type:             llm.StreamTextStart,
			ID:               r.textID,
			ProviderMetadata: itemMetadata(ev.ItemID),
		})
	}

	return append(parts, llm.StreamPart{
		Type:  llm.StreamTextDelta,
		ID:    r.textID,
		Delta: ev.Delta,
	})
}

// consumeItem surfaces function calls and reasoning once per vendor item.
// An item is marked seen only when it produced parts, so a partial
// output_item.added never hides the output_item.done that completes it.
func (r *StreamReconstructor) consumeItem(item *models.OutputItem, done bool) []llm.StreamPart {
	switch item.Type {
	case models.ItemFunctionCall:
		r.hasToolCalls = true
		// arguments are final on added only when the item says it is complete
		if !done && (item.Status != models.StatusCompleted || item.Arguments == "") {
			return nil
		}
		if !r.markSeen(item.ID) {
			return nil
		}
		return []llm.StreamPart{{
			Type:             llm.StreamToolCall,
			ToolCallID:       item.CallID,
			ToolName:         item.Name,
			Input:            item.Arguments,
			ProviderMetadata: itemMetadata(item.ID),
		}}

	case models.ItemReasoning:
		if !done && item.Status == models.StatusInProgress {
			return nil
		}
		text := ReasoningText(item)
		if text == "" || !r.markSeen(item.ID) {
			return nil
		}
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		return []llm.StreamPart{
			{Type: llm.StreamReasoningStart, ID: id, ProviderMetadata: itemMetadata(item.ID)},
			{Type: llm.StreamReasoningDelta, ID: id, Delta: text},
			{Type: llm.StreamReasoningEnd, ID: id},
		}
	}

	return nil
}

// markSeen records an item id and reports whether it was new. Items without
// an id are never deduplicated.
func (r *StreamReconstructor) markSeen(id string) bool {
	if id == "" {
		return true
	}
	if r.seenItems[id] {
		return false
	}
	r.seenItems[id] = true
	return true
}

// Flush ends the stream. It closes an open text segment and emits the finish
// part only when a terminal event supplied usage.
func (r *StreamReconstructor) Flush() []llm.StreamPart {
	if r.state == StateFinished {
		return nil
	}
	r.state = StateFinished

	var parts []llm.StreamPart
	if r.textOpen {
		r.textOpen = false
		parts = append(parts, llm.StreamPart{Type: llm.StreamTextEnd, ID: r.textID})
	}

	if r.usage == nil {
		r.logger.Debug("stream ended without a terminal event", zap.String("response_id", r.responseID))
		return parts
	}

	finish := r.finish
	usage := *r.usage
	part := llm.StreamPart{
		Type:         llm.StreamFinish,
		Usage:        &usage,
		FinishReason: &finish,
	}
	if r.responseID != "" {
		part.ProviderMetadata = llm.ProviderMetadata{ProviderKey: {"responseId": r.responseID}}
	}
	return append(parts, part)
}
