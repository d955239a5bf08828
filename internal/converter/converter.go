package converter

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/young1lin/openclaw-responses/internal/jsonx"
	"github.com/young1lin/openclaw-responses/internal/models"
	"github.com/young1lin/openclaw-responses/pkg/llm"
)

// ProviderKey names this adapter in provider options and provider metadata
const ProviderKey = "openclaw"

const deniedFallback = "Tool execution denied."

// ConvertPrompt converts a normalized prompt to Responses API input items.
// Message order and part order are preserved. Unknown roles are rejected.
func ConvertPrompt(prompt []llm.Message) ([]models.InputItem, error) {
	input := make([]models.InputItem, 0, len(prompt))

	for i := range prompt {
		msg := &prompt[i]

		var (
			items []models.InputItem
			err   error
		)
		switch msg.Role {
		case llm.RoleSystem, llm.RoleDeveloper:
			items = convertSystemMessage(msg)
		case llm.RoleUser, llm.RoleAssistant:
			items, err = convertChatMessage(msg)
		case llm.RoleTool:
			items, err = convertToolMessage(msg)
		default:
			err = fmt.Errorf("unsupported role %q", msg.Role)
		}
		if err != nil {
			return nil, &llm.InvalidPromptError{Index: i, Message: err.Error()}
		}

		input = append(input, items...)
	}

	return input, nil
}

// convertSystemMessage joins the text parts into a single message. A message
// without text produces nothing.
func convertSystemMessage(msg *llm.Message) []models.InputItem {
	var texts []string
	for _, part := range msg.Content {
		if part.Type == llm.PartText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	return []models.InputItem{{
		Type:    models.ItemMessage,
		Role:    string(msg.Role),
		Content: models.TextContent(strings.Join(texts, "\n")),
	}}
}

// convertChatMessage handles user and assistant messages. Text and file parts
// are buffered into one message item appended after the tool-call and
// reasoning items the message produced.
func convertChatMessage(msg *llm.Message) ([]models.InputItem, error) {
	textType := "input_text"
	if msg.Role == llm.RoleAssistant {
		textType = "output_text"
	}

	var (
		items  []models.InputItem
		buffer []models.ContentPart
	)

	for i := range msg.Content {
		part := &msg.Content[i]

		switch part.Type {
		case llm.PartText:
			buffer = append(buffer, models.ContentPart{Type: textType, Text: part.Text})

		case llm.PartFile:
			cp, err := convertFilePart(part, i)
			if err != nil {
				return nil, err
			}
			buffer = append(buffer, cp)

		case llm.PartToolCall:
			items = append(items, models.InputItem{
				Type:      models.ItemFunctionCall,
				CallID:    part.ToolCallID,
				Name:      part.ToolName,
				Arguments: part.Input,
			})

		case llm.PartReasoning:
			items = append(items, models.InputItem{
				Type:    models.ItemReasoning,
				Summary: []models.SummaryText{{Type: "summary_text", Text: part.Text}},
			})

		default:
			return nil, fmt.Errorf("part type %q is not allowed in %s messages", part.Type, msg.Role)
		}
	}

	if len(buffer) > 0 {
		items = append(items, models.InputItem{
			Type:    models.ItemMessage,
			Role:    string(msg.Role),
			Content: models.PartsContent(buffer),
		})
	}

	return items, nil
}

func convertFilePart(part *llm.Part, index int) (models.ContentPart, error) {
	mediaType := part.MediaType
	if mediaType == "image/*" {
		mediaType = "image/jpeg"
	}

	isImage := strings.HasPrefix(mediaType, "image/")
	cp := models.ContentPart{Type: "input_file"}
	if isImage {
		cp.Type = "input_image"
	}

	if part.Data == nil {
		return cp, errors.New("file part has no data")
	}

	switch d := part.Data; {
	case d.URL != "":
		cp.Source = &models.ContentSource{Type: "url", URL: d.URL}
	case isHTTPURL(d.Base64):
		cp.Source = &models.ContentSource{Type: "url", URL: d.Base64}
	case d.Base64 != "" || len(d.Bytes) > 0:
		data := d.Base64
		if data == "" {
			data = base64.StdEncoding.EncodeToString(d.Bytes)
		}
		cp.Source = &models.ContentSource{
			Type:      "base64",
			MediaType: mediaType,
			Data:      data,
		}
		if !isImage {
			cp.Source.Filename = part.Filename
			if cp.Source.Filename == "" {
				cp.Source.Filename = fmt.Sprintf("part-%d", index)
			}
		}
	default:
		return cp, errors.New("file part has no data")
	}

	return cp, nil
}

// isHTTPURL reports whether s is an absolute http or https URL
func isHTTPURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

// convertToolMessage turns each tool result into a function_call_output item.
// Approval responses have no vendor representation and are skipped.
func convertToolMessage(msg *llm.Message) ([]models.InputItem, error) {
	var items []models.InputItem

	for _, part := range msg.Content {
		switch part.Type {
		case llm.PartToolResult:
			output, err := ToolOutputString(part.Output)
			if err != nil {
				return nil, fmt.Errorf("tool result %s: %w", part.ToolCallID, err)
			}
			items = append(items, models.InputItem{
				Type:   "function_call_output",
				CallID: part.ToolCallID,
				Output: output,
			})
		case llm.PartToolApprovalResponse:
			continue
		default:
			return nil, fmt.Errorf("part type %q is not allowed in tool messages", part.Type)
		}
	}

	return items, nil
}

// ToolOutputString coerces a tool result payload to the string the vendor
// expects in function_call_output.
func ToolOutputString(out *llm.ToolResultOutput) (string, error) {
	if out == nil {
		return jsonx.MarshalString(out)
	}

	switch out.Type {
	case llm.OutputText, llm.OutputErrorText:
		if s, ok := out.Value.(string); ok {
			return s, nil
		}
		return jsonx.MarshalString(out.Value)
	case llm.OutputJSON, llm.OutputErrorJSON, llm.OutputContent:
		return jsonx.MarshalString(out.Value)
	case llm.OutputExecutionDenied:
		if out.Reason != "" {
			return out.Reason, nil
		}
		return deniedFallback, nil
	default:
		return jsonx.MarshalString(out)
	}
}
