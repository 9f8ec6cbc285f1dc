package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"

	"github.com/ollama/ollama/api"
)

// contextFloor is Ollama's default context window. Prompts that need more
// get an explicit num_ctx.
const contextFloor = 4096

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *GraphOllamaClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	return c.GenerateChat(ctx, []ai.ChatMessage{{Role: "user", Message: prompt}}, opts...)
}

// GenerateChat sends a multi-turn conversation and returns assistant text.
func (c *GraphOllamaClient) GenerateChat(
	ctx context.Context,
	messages []ai.ChatMessage,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.NewGenerateOptions(c.chatModel, opts...)

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+len(messages))
	for _, sys := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sys})
	}
	promptTokens := 0
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		msgs = append(msgs, api.Message{Role: role, Content: m.Message})
		promptTokens += c.tokenCount(m.Message)
	}

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{},
	}
	if options.Temperature != nil {
		req.Options["temperature"] = *options.Temperature
	}
	if options.MaxTokens > 0 {
		req.Options["num_predict"] = options.MaxTokens
	}
	if options.Format != nil {
		format, err := json.Marshal(options.Format.Schema)
		if err != nil {
			return "", fmt.Errorf("marshal response format: %w", err)
		}
		req.Format = format
	}

	needed := promptTokens + options.MaxTokens + 200
	if needed > contextFloor {
		req.Options["num_ctx"] = needed
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama chat (%s): %w", options.Model, err)
	}

	c.Record(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	return final.Message.Content, nil
}
