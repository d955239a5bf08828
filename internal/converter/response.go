package converter

import (
	"fmt"
	"strings"

	"github.com/young1lin/openclaw-responses/internal/models"
	"github.com/young1lin/openclaw-responses/pkg/llm"
)

// VendorError is an application error the vendor reported inside an
// otherwise well-formed response
type VendorError struct {
	Code    string
	Message string
}

func (e *VendorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("vendor error %s: %s", e.Code, e.Message)
	}
	return "vendor error: " + e.Message
}

// ResponseResult is the normalized form of a completed response
type ResponseResult struct {
	Content      []llm.Content
	FinishReason llm.FinishReason
	Usage        llm.Usage
}

// ConvertResponse converts a completed Responses API response to normalized
// content, finish reason and usage. A response carrying an error fails with
// *VendorError.
func ConvertResponse(resp *models.ResponsesResponse) (*ResponseResult, error) {
	if resp.Error != nil {
		return nil, &VendorError{Code: resp.Error.Code, Message: resp.Error.Message}
	}

	result := &ResponseResult{Content: make([]llm.Content, 0, len(resp.Output))}
	sawToolCall := false

	for _, item := range resp.Output {
		switch item.Type {
		case models.ItemMessage:
			for _, part := range item.Content {
				text, ok := messageText(part)
				if !ok {
					continue
				}
				result.Content = append(result.Content, llm.Content{
					Type:             llm.ContentText,
					Text:             text,
					ProviderMetadata: itemMetadata(item.ID),
				})
			}

		case models.ItemFunctionCall:
			sawToolCall = true
			result.Content = append(result.Content, llm.Content{
				Type:             llm.ContentToolCall,
				ToolCallID:       item.CallID,
				ToolName:         item.Name,
				Input:            item.Arguments,
				ProviderMetadata: itemMetadata(item.ID),
			})

		case models.ItemReasoning:
			text := ReasoningText(&item)
			if text == "" {
				continue
			}
			result.Content = append(result.Content, llm.Content{
				Type:             llm.ContentReasoning,
				Text:             text,
				ProviderMetadata: itemMetadata(item.ID),
			})
		}
	}

	result.FinishReason = MapFinishReason(resp.Status, sawToolCall)
	result.Usage = ConvertUsage(resp.Usage)
	return result, nil
}

// messageText returns the text of an output_text part. A refusal is surfaced
// as text too, so the caller sees why the model declined.
func messageText(part models.OutputContent) (string, bool) {
	switch part.Type {
	case "output_text":
		return part.Text, true
	case "refusal":
		if part.Refusal != "" {
			return part.Refusal, true
		}
		return part.Text, part.Text != ""
	default:
		return "", false
	}
}

// ReasoningText returns the summary of a reasoning item, or its full content
// when there is no summary.
func ReasoningText(item *models.OutputItem) string {
	if text := joinTexts(item.Summary); text != "" {
		return text
	}
	var parts []string
	for _, c := range item.Content {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func joinTexts(entries []models.SummaryText) string {
	var parts []string
	for _, e := range entries {
		if e.Text != "" {
			parts = append(parts, e.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ConvertUsage repackages vendor token counts. This vendor reports no cache
// token counts.
func ConvertUsage(u *models.UsageInfo) llm.Usage {
	if u == nil {
		return llm.Usage{}
	}
	return llm.Usage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.TotalTokens,
	}
}

func itemMetadata(itemID string) llm.ProviderMetadata {
	if itemID == "" {
		return nil
	}
	return llm.ProviderMetadata{ProviderKey: {"itemId": itemID}}
}
