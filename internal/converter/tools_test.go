package converter

import (
	"encoding/json"
	"testing"

	"github.com/young1lin/openclaw-responses/internal/jsonx"
	"github.com/young1lin/openclaw-responses/pkg/llm"
)

func TestPrepareTools(t *testing.T) {
	weather := llm.Tool{
		Type:        llm.ToolFunction,
		Name:        "get_weather",
		Description: "Get the weather",
		InputSchema: json.RawMessage(`{"type":"object"}`),
	}
	search := llm.Tool{Type: llm.ToolProviderDefined, ID: "openai.web_search", Name: "web_search"}

	t.Run("Function tools map one to one", func(t *testing.T) {
		prepared, warnings := PrepareTools([]llm.Tool{weather}, &llm.ToolChoice{Type: llm.ToolChoiceAuto})
		if len(warnings) != 0 {
			t.Errorf("Expected no warnings, got %+v", warnings)
		}
		if len(prepared.Tools) != 1 {
			t.Fatalf("Expected 1 tool, got %d", len(prepared.Tools))
		}

		data, err := jsonx.Marshal(prepared.Tools[0])
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		want := `{"type":"function","function":{"name":"get_weather","description":"Get the weather","parameters":{"type":"object"}}}`
		if string(data) != want {
			t.Errorf("Tool JSON = %s, want %s", data, want)
		}
	})

	t.Run("Other tool kinds warn", func(t *testing.T) {
		prepared, warnings := PrepareTools([]llm.Tool{search, weather}, nil)
		if len(prepared.Tools) != 1 {
			t.Fatalf("Expected 1 tool, got %d", len(prepared.Tools))
		}
		if len(warnings) != 1 || warnings[0].Type != llm.WarningUnsupportedTool || warnings[0].Tool != "openai.web_search" {
			t.Errorf("Unexpected warnings: %+v", warnings)
		}
	})

	t.Run("No function tools omits tools and choice", func(t *testing.T) {
		prepared, warnings := PrepareTools([]llm.Tool{search}, &llm.ToolChoice{Type: llm.ToolChoiceRequired})
		if prepared.Tools != nil || prepared.ToolChoice != nil {
			t.Errorf("Expected empty preparation, got %+v", prepared)
		}
		if len(warnings) != 1 {
			t.Errorf("Expected 1 warning, got %d", len(warnings))
		}
	})

	choices := []struct {
		name   string
		choice *llm.ToolChoice
		want   string
	}{
		{"auto", &llm.ToolChoice{Type: llm.ToolChoiceAuto}, `"auto"`},
		{"none", &llm.ToolChoice{Type: llm.ToolChoiceNone}, `"none"`},
		{"required", &llm.ToolChoice{Type: llm.ToolChoiceRequired}, `"required"`},
		{"specific tool", &llm.ToolChoice{Type: llm.ToolChoiceTool, ToolName: "get_weather"}, `{"type":"function","function":{"name":"get_weather"}}`},
		{"unknown", &llm.ToolChoice{Type: "sometimes"}, ""},
		{"unset", nil, ""},
	}
	for _, tt := range choices {
		t.Run("Tool choice "+tt.name, func(t *testing.T) {
			prepared, _ := PrepareTools([]llm.Tool{weather}, tt.choice)
			if tt.want == "" {
				if prepared.ToolChoice != nil {
					t.Errorf("Expected omitted tool choice, got %+v", prepared.ToolChoice)
				}
				return
			}
			data, err := jsonx.Marshal(prepared.ToolChoice)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("ToolChoice JSON = %s, want %s", data, tt.want)
			}
		})
	}
}
