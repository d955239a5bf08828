package schema

import (
	"github.com/young1lin/openclaw-responses/internal/jsonx"
	"github.com/young1lin/openclaw-responses/internal/models"
)

type envelope struct {
	Type string `json:"type"`
}

// textDelta uses pointers so absent required fields can be told apart from
// empty strings.
type textDelta struct {
	Type         string  `json:"type"`
	ItemID       *string `json:"item_id"`
	OutputIndex  int     `json:"output_index"`
	ContentIndex int     `json:"content_index"`
	Delta        *string `json:"delta"`
}

// DecodeStreamEvent decodes one SSE data payload into its concrete event
// type. Well-formed events of unmodelled types decode to
// *models.UnknownEvent.
func DecodeStreamEvent(data []byte) (models.StreamEvent, error) {
	var env envelope
	if err := jsonx.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Kind: KindEvent, Reason: "malformed JSON", Payload: data, Err: err}
	}
	if env.Type == "" {
		return nil, &DecodeError{Kind: KindEvent, Field: "type", Reason: "is required", Payload: data}
	}

	event, derr := decodeTyped(env.Type, data)
	if derr != nil {
		derr.Kind = KindEvent
		derr.EventType = env.Type
		derr.Payload = data
		return nil, derr
	}
	return event, nil
}

func decodeTyped(eventType string, data []byte) (models.StreamEvent, *DecodeError) {
	switch eventType {
	case models.EventResponseCreated, models.EventResponseInProgress,
		models.EventResponseCompleted, models.EventResponseFailed:
		var ev models.ResponseEvent
		if err := jsonx.Unmarshal(data, &ev); err != nil {
			return nil, &DecodeError{Reason: "malformed payload", Err: err}
		}
		terminal := eventType == models.EventResponseCompleted || eventType == models.EventResponseFailed
		if err := validateResponse(&ev.Response, terminal); err != nil {
			err.Field = "response." + err.Field
			return nil, err
		}
		return &ev, nil

	case models.EventOutputTextDelta:
		var raw textDelta
		if err := jsonx.Unmarshal(data, &raw); err != nil {
			return nil, &DecodeError{Reason: "malformed payload", Err: err}
		}
		if raw.ItemID == nil {
			return nil, &DecodeError{Field: "item_id", Reason: "is required"}
		}
		if raw.Delta == nil {
			return nil, &DecodeError{Field: "delta", Reason: "is required"}
		}
		return &models.OutputTextDeltaEvent{
			Type:         raw.Type,
			ItemID:       *raw.ItemID,
			OutputIndex:  raw.OutputIndex,
			ContentIndex: raw.ContentIndex,
			Delta:        *raw.Delta,
		}, nil

	case models.EventOutputTextDone:
		var ev models.OutputTextDoneEvent
		if err := jsonx.Unmarshal(data, &ev); err != nil {
			return nil, &DecodeError{Reason: "malformed payload", Err: err}
		}
		return &ev, nil

	case models.EventOutputItemAdded, models.EventOutputItemDone:
		var ev models.OutputItemEvent
		if err := jsonx.Unmarshal(data, &ev); err != nil {
			return nil, &DecodeError{Reason: "malformed payload", Err: err}
		}
		if err := validateOutputItem(&ev.Item); err != nil {
			err.Field = "item." + err.Field
			return nil, err
		}
		return &ev, nil

	case models.EventContentPartAdded, models.EventContentPartDone:
		var ev models.ContentPartEvent
		if err := jsonx.Unmarshal(data, &ev); err != nil {
			return nil, &DecodeError{Reason: "malformed payload", Err: err}
		}
		return &ev, nil

	default:
		return &models.UnknownEvent{Type: eventType}, nil
	}
}
