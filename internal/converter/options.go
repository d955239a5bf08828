package converter

import (
	"encoding/json"
	"fmt"

	"github.com/young1lin/openclaw-responses/internal/jsonx"
	"github.com/young1lin/openclaw-responses/internal/models"
	"github.com/young1lin/openclaw-responses/pkg/llm"
)

// Custom headers carrying session routing metadata
const (
	HeaderSessionKey = "x-openclaw-session-key"
	HeaderAgentID    = "x-openclaw-agent-id"
)

// ProviderOptions are the provider-specific call options accepted under
// CallOptions.ProviderOptions["openclaw"].
type ProviderOptions struct {
	Instructions     string            `json:"instructions,omitempty"`
	User             string            `json:"user,omitempty"`
	ReasoningEffort  string            `json:"reasoningEffort,omitempty"`
	ReasoningSummary string            `json:"reasoningSummary,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	MaxToolCalls     *int              `json:"maxToolCalls,omitempty"`
	SessionKey       string            `json:"sessionKey,omitempty"`
	AgentID          string            `json:"agentId,omitempty"`
}

var (
	reasoningEfforts   = map[string]bool{"low": true, "medium": true, "high": true}
	reasoningSummaries = map[string]bool{"auto": true, "concise": true, "detailed": true}
)

// ParseProviderOptions decodes and validates this provider's options. A
// missing entry yields zero options.
func ParseProviderOptions(all map[string]json.RawMessage) (*ProviderOptions, error) {
	opts := &ProviderOptions{}
	raw, ok := all[ProviderKey]
	if !ok || len(raw) == 0 {
		return opts, nil
	}

	if err := jsonx.Unmarshal(raw, opts); err != nil {
		return nil, &llm.InvalidArgumentError{
			Argument: "providerOptions." + ProviderKey,
			Message:  "malformed provider options",
			Cause:    err,
		}
	}
	if opts.ReasoningEffort != "" && !reasoningEfforts[opts.ReasoningEffort] {
		return nil, invalidOption("reasoningEffort", fmt.Sprintf("must be low, medium or high, got %q", opts.ReasoningEffort))
	}
	if opts.ReasoningSummary != "" && !reasoningSummaries[opts.ReasoningSummary] {
		return nil, invalidOption("reasoningSummary", fmt.Sprintf("must be auto, concise or detailed, got %q", opts.ReasoningSummary))
	}
	if opts.MaxToolCalls != nil && *opts.MaxToolCalls <= 0 {
		return nil, invalidOption("maxToolCalls", "must be a positive integer")
	}

	return opts, nil
}

func invalidOption(name, msg string) error {
	return &llm.InvalidArgumentError{
		Argument: "providerOptions." + ProviderKey + "." + name,
		Message:  msg,
	}
}

// settingSupport is the compatibility table for generic sampling settings.
// Unsupported settings that are set produce one warning each.
var settingSupport = []struct {
	name      string
	supported bool
	isSet     func(o *llm.CallOptions) bool
}{
	{"maxOutputTokens", true, func(o *llm.CallOptions) bool { return o.MaxOutputTokens != nil }},
	{"temperature", true, func(o *llm.CallOptions) bool { return o.Temperature != nil }},
	{"topP", true, func(o *llm.CallOptions) bool { return o.TopP != nil }},
	{"topK", false, func(o *llm.CallOptions) bool { return o.TopK != nil }},
	{"stopSequences", false, func(o *llm.CallOptions) bool { return len(o.StopSequences) > 0 }},
	{"presencePenalty", false, func(o *llm.CallOptions) bool { return o.PresencePenalty != nil }},
	{"frequencyPenalty", false, func(o *llm.CallOptions) bool { return o.FrequencyPenalty != nil }},
	{"seed", false, func(o *llm.CallOptions) bool { return o.Seed != nil }},
	{"responseFormat", false, func(o *llm.CallOptions) bool { return o.ResponseFormat != nil }},
}

// UnsupportedSettings returns one warning per set setting the vendor ignores
func UnsupportedSettings(opts *llm.CallOptions) []llm.Warning {
	var warnings []llm.Warning
	for _, s := range settingSupport {
		if !s.supported && s.isSet(opts) {
			warnings = append(warnings, llm.Warning{
				Type:    llm.WarningUnsupportedSetting,
				Setting: s.name,
			})
		}
	}
	return warnings
}

// RequestArgs is everything needed to issue one vendor call
type RequestArgs struct {
	Body     *models.ResponsesRequest
	Headers  map[string]string
	Warnings []llm.Warning
}

// BuildRequest assembles the vendor request body, the session headers and
// the call warnings from the call options.
func BuildRequest(modelID string, opts *llm.CallOptions) (*RequestArgs, error) {
	providerOpts, err := ParseProviderOptions(opts.ProviderOptions)
	if err != nil {
		return nil, err
	}

	input, err := ConvertPrompt(opts.Prompt)
	if err != nil {
		return nil, err
	}

	warnings := UnsupportedSettings(opts)
	tools, toolWarnings := PrepareTools(opts.Tools, opts.ToolChoice)
	warnings = append(warnings, toolWarnings...)

	body := &models.ResponsesRequest{
		Model:           modelID,
		Input:           input,
		Temperature:     opts.Temperature,
		TopP:            opts.TopP,
		MaxOutputTokens: opts.MaxOutputTokens,
		Tools:           tools.Tools,
		ToolChoice:      tools.ToolChoice,
		Instructions:    providerOpts.Instructions,
		User:            providerOpts.User,
		Metadata:        providerOpts.Metadata,
		MaxToolCalls:    providerOpts.MaxToolCalls,
	}
	if providerOpts.ReasoningEffort != "" || providerOpts.ReasoningSummary != "" {
		body.Reasoning = &models.ReasoningConfig{
			Effort:  providerOpts.ReasoningEffort,
			Summary: providerOpts.ReasoningSummary,
		}
	}

	headers := make(map[string]string, 2)
	if providerOpts.SessionKey != "" {
		headers[HeaderSessionKey] = providerOpts.SessionKey
	}
	if providerOpts.AgentID != "" {
		headers[HeaderAgentID] = providerOpts.AgentID
	}

	return &RequestArgs{Body: body, Headers: headers, Warnings: warnings}, nil
}
