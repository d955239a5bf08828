package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/young1lin/openclaw-responses/internal/converter"
	"github.com/young1lin/openclaw-responses/internal/jsonx"
	"github.com/young1lin/openclaw-responses/internal/metrics"
	"github.com/young1lin/openclaw-responses/internal/storage"
	"github.com/young1lin/openclaw-responses/pkg/llm"
	"github.com/young1lin/openclaw-responses/pkg/logger"
)

var chatFlags struct {
	model           string
	system          string
	stream          bool
	maxOutputTokens int
	reasoningEffort string
	sessionKey      string
	agentID         string
}

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Send one prompt and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runChat(ctx, strings.Join(args, " "), cmd.OutOrStdout())
	},
}

func init() {
	f := chatCmd.Flags()
	f.StringVarP(&chatFlags.model, "model", "m", "", "model id (default provider.default_model)")
	f.StringVarP(&chatFlags.system, "system", "s", "", "system prompt")
	f.BoolVar(&chatFlags.stream, "stream", true, "stream the reply")
	f.IntVar(&chatFlags.maxOutputTokens, "max-output-tokens", 0, "limit on generated tokens")
	f.StringVar(&chatFlags.reasoningEffort, "reasoning-effort", "", "low, medium or high")
	f.StringVar(&chatFlags.sessionKey, "session-key", "", "session routing key")
	f.StringVar(&chatFlags.agentID, "agent-id", "", "agent id")
}

// buildChatOptions turns the chat flags into call options
func buildChatOptions(prompt string) (llm.CallOptions, error) {
	var opts llm.CallOptions

	if chatFlags.system != "" {
		opts.Prompt = append(opts.Prompt, llm.Message{
			Role:    llm.RoleSystem,
			Content: []llm.Part{{Type: llm.PartText, Text: chatFlags.system}},
		})
	}
	opts.Prompt = append(opts.Prompt, llm.Message{
		Role:    llm.RoleUser,
		Content: []llm.Part{{Type: llm.PartText, Text: prompt}},
	})

	if chatFlags.maxOutputTokens > 0 {
		n := chatFlags.maxOutputTokens
		opts.MaxOutputTokens = &n
	}

	providerOpts := converter.ProviderOptions{
		ReasoningEffort: chatFlags.reasoningEffort,
		SessionKey:      chatFlags.sessionKey,
		AgentID:         chatFlags.agentID,
	}
	raw, err := jsonx.Marshal(providerOpts)
	if err != nil {
		return opts, err
	}
	opts.ProviderOptions = map[string]json.RawMessage{converter.ProviderKey: raw}

	return opts, nil
}

func runChat(ctx context.Context, prompt string, out io.Writer) error {
	provider, err := newProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	modelID := chatFlags.model
	if modelID == "" {
		modelID = cfg.Provider.DefaultModel
	}
	model := provider.LanguageModel(modelID)

	opts, err := buildChatOptions(prompt)
	if err != nil {
		return err
	}

	rec := &storage.Record{Model: modelID}
	if chatFlags.stream {
		rec.Mode = metrics.ModeStream
		err = streamChat(ctx, model, opts, out, rec)
	} else {
		rec.Mode = metrics.ModeGenerate
		err = generateChat(ctx, model, opts, out, rec)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n[%s] input=%d output=%d total=%d\n",
		rec.FinishReason, rec.InputTokens, rec.OutputTokens, rec.TotalTokens)

	if cfg.Storage.Enabled {
		store, err := storage.NewUsageStore(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Put(rec); err != nil {
			logger.Error("failed to record usage", zap.Error(err))
		}
	}
	return nil
}

func generateChat(ctx context.Context, model llm.LanguageModel, opts llm.CallOptions, out io.Writer, rec *storage.Record) error {
	result, err := model.DoGenerate(ctx, opts)
	if err != nil {
		return err
	}
	printWarnings(result.Warnings)

	for _, c := range result.Content {
		switch c.Type {
		case llm.ContentText:
			fmt.Fprint(out, c.Text)
		case llm.ContentReasoning:
			fmt.Fprintf(os.Stderr, "[reasoning] %s\n", c.Text)
		case llm.ContentToolCall:
			fmt.Fprintf(out, "\n[tool-call %s] %s(%s)\n", c.ToolCallID, c.ToolName, c.Input)
		}
	}

	rec.ResponseID = result.Response.ID
	fillUsage(rec, result.FinishReason, result.Usage)
	return nil
}

func streamChat(ctx context.Context, model llm.LanguageModel, opts llm.CallOptions, out io.Writer, rec *storage.Record) error {
	result, err := model.DoStream(ctx, opts)
	if err != nil {
		return err
	}
	defer result.Stream.Close()
	printWarnings(result.Warnings)

	finished := false
	for {
		part, err := result.Stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		switch part.Type {
		case llm.StreamResponseMetadata:
			rec.ResponseID = part.ID
		case llm.StreamTextDelta:
			fmt.Fprint(out, part.Delta)
		case llm.StreamReasoningDelta:
			fmt.Fprintf(os.Stderr, "[reasoning] %s\n", part.Delta)
		case llm.StreamToolCall:
			fmt.Fprintf(out, "\n[tool-call %s] %s(%s)\n", part.ToolCallID, part.ToolName, part.Input)
		case llm.StreamError:
			fmt.Fprintf(os.Stderr, "[error] %v\n", part.Err)
		case llm.StreamFinish:
			finished = true
			fillUsage(rec, *part.FinishReason, *part.Usage)
		}
	}

	if !finished {
		return errors.New("stream ended without a finish event")
	}
	return nil
}

func fillUsage(rec *storage.Record, finish llm.FinishReason, usage llm.Usage) {
	rec.FinishReason = string(finish.Unified)
	rec.InputTokens = usage.InputTokens
	rec.OutputTokens = usage.OutputTokens
	rec.TotalTokens = usage.TotalTokens
}

func printWarnings(warnings []llm.Warning) {
	for _, w := range warnings {
		subject := w.Setting
		if subject == "" {
			subject = w.Tool
		}
		fmt.Fprintf(os.Stderr, "[warning] %s %s %s\n", w.Type, subject, w.Details)
	}
}
