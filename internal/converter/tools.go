package converter

import (
	"github.com/young1lin/openclaw-responses/internal/models"
	"github.com/young1lin/openclaw-responses/pkg/llm"
)

// PreparedTools holds the vendor tool list and tool choice. Both are nil
// when no function tools remain.
type PreparedTools struct {
	Tools      []models.Tool
	ToolChoice *models.ToolChoice
}

// PrepareTools keeps function tools only and maps the tool choice. Other tool
// kinds are reported as warnings.
func PrepareTools(tools []llm.Tool, choice *llm.ToolChoice) (PreparedTools, []llm.Warning) {
	var (
		prepared PreparedTools
		warnings []llm.Warning
	)

	for _, tool := range tools {
		if tool.Type != llm.ToolFunction {
			warnings = append(warnings, llm.Warning{
				Type:    llm.WarningUnsupportedTool,
				Tool:    toolLabel(tool),
				Details: "only function tools are supported",
			})
			continue
		}
		prepared.Tools = append(prepared.Tools, models.Tool{
			Type: "function",
			Function: models.FunctionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	if len(prepared.Tools) == 0 {
		return PreparedTools{}, warnings
	}

	prepared.ToolChoice = mapToolChoice(choice)
	return prepared, warnings
}

func mapToolChoice(choice *llm.ToolChoice) *models.ToolChoice {
	if choice == nil {
		return nil
	}
	switch choice.Type {
	case llm.ToolChoiceAuto, llm.ToolChoiceNone, llm.ToolChoiceRequired:
		return &models.ToolChoice{Mode: string(choice.Type)}
	case llm.ToolChoiceTool:
		return &models.ToolChoice{Function: choice.ToolName}
	default:
		return nil
	}
}

func toolLabel(tool llm.Tool) string {
	if tool.ID != "" {
		return tool.ID
	}
	return tool.Name
}
