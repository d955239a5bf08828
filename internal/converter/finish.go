package converter

import (
	"github.com/young1lin/openclaw-responses/internal/models"
	"github.com/young1lin/openclaw-responses/pkg/llm"
)

// MapFinishReason computes the unified finish reason. An observed tool call
// or an incomplete status means the model is waiting for tool results and
// takes priority over the literal status.
func MapFinishReason(status string, sawToolCall bool) llm.FinishReason {
	if sawToolCall || status == models.StatusIncomplete {
		return llm.FinishReason{Unified: llm.FinishToolCalls, Raw: status}
	}

	switch status {
	case models.StatusCompleted:
		return llm.FinishReason{Unified: llm.FinishStop, Raw: status}
	case models.StatusFailed:
		return llm.FinishReason{Unified: llm.FinishError, Raw: status}
	default:
		return llm.FinishReason{Unified: llm.FinishOther, Raw: status}
	}
}
