// Package schema decodes and structurally validates vendor payloads at the
// network boundary. Values it returns are trusted by the translators.
package schema

import (
	"fmt"

	"github.com/young1lin/openclaw-responses/internal/jsonx"
	"github.com/young1lin/openclaw-responses/internal/models"
)

// Payload kinds reported by DecodeError
const (
	KindResponse = "response"
	KindEvent    = "stream event"
)

// DecodeError reports a payload that does not match the expected shape
type DecodeError struct {
	Kind      string
	EventType string
	Field     string
	Reason    string
	Payload   []byte
	Err       error
}

func (e *DecodeError) Error() string {
	subject := e.Kind
	if e.EventType != "" {
		subject += " " + e.EventType
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s: %s", subject, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", subject, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var validStatuses = map[string]bool{
	models.StatusInProgress: true,
	models.StatusCompleted:  true,
	models.StatusFailed:     true,
	models.StatusCancelled:  true,
	models.StatusIncomplete: true,
}

var validItemStatuses = map[string]bool{
	models.StatusInProgress: true,
	models.StatusCompleted:  true,
	models.StatusIncomplete: true,
}

// DecodeResponse decodes and validates a non-streaming response body
func DecodeResponse(data []byte) (*models.ResponsesResponse, error) {
	var resp models.ResponsesResponse
	if err := jsonx.Unmarshal(data, &resp); err != nil {
		return nil, &DecodeError{Kind: KindResponse, Reason: "malformed JSON", Payload: data, Err: err}
	}
	if err := validateResponse(&resp, true); err != nil {
		err.Kind = KindResponse
		err.Payload = data
		return nil, err
	}
	return &resp, nil
}

// validateResponse checks a response object. Snapshots carried by
// lifecycle events may omit the status.
func validateResponse(resp *models.ResponsesResponse, requireStatus bool) *DecodeError {
	if resp.ID == "" {
		return &DecodeError{Field: "id", Reason: "is required"}
	}
	if resp.Status == "" && requireStatus {
		return &DecodeError{Field: "status", Reason: "is required"}
	}
	if resp.Status != "" && !validStatuses[resp.Status] {
		return &DecodeError{Field: "status", Reason: fmt.Sprintf("unknown value %q", resp.Status)}
	}
	if u := resp.Usage; u != nil {
		if u.InputTokens < 0 || u.OutputTokens < 0 || u.TotalTokens < 0 {
			return &DecodeError{Field: "usage", Reason: "token counts must be non-negative"}
		}
	}
	for i := range resp.Output {
		if err := validateOutputItem(&resp.Output[i]); err != nil {
			err.Field = fmt.Sprintf("output[%d].%s", i, err.Field)
			return err
		}
	}
	return nil
}

func validateOutputItem(item *models.OutputItem) *DecodeError {
	if item.Type == "" {
		return &DecodeError{Field: "type", Reason: "is required"}
	}
	if item.Status != "" && !validItemStatuses[item.Status] {
		return &DecodeError{Field: "status", Reason: fmt.Sprintf("unknown value %q", item.Status)}
	}
	switch item.Type {
	case models.ItemFunctionCall:
		if item.CallID == "" {
			return &DecodeError{Field: "call_id", Reason: "is required"}
		}
		if item.Name == "" {
			return &DecodeError{Field: "name", Reason: "is required"}
		}
	case models.ItemMessage:
		for j, part := range item.Content {
			if part.Type == "" {
				return &DecodeError{Field: fmt.Sprintf("content[%d].type", j), Reason: "is required"}
			}
		}
	}
	return nil
}
