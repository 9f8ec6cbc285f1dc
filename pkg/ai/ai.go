package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a model answers without any content.
var ErrEmptyResponse = errors.New("model returned an empty response")

// ChatMessage represents a single message in a chat conversation.
// It is used when generating multi-turn chat completions.
//
// Role must be one of:
//   - "user"      → a user-provided message
//   - "assistant" → a message from the AI assistant
type ChatMessage struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

// ResponseFormat asks the backend to constrain its output to a JSON schema.
// Backends that cannot enforce a schema ignore it, so callers must still
// validate the returned text.
type ResponseFormat struct {
	Name        string
	Description string
	Schema      any
}

// GenerateOptions holds configuration for AI generation requests.
type GenerateOptions struct {
	Model         string          // Model identifier to use for generation
	SystemPrompts []string        // System prompts prepended to the request
	Temperature   *float64        // Sampling temperature, nil keeps the model default
	MaxTokens     int             // Upper bound on generated tokens, 0 means unbounded
	Format        *ResponseFormat // Optional structured output hint
}

// ModelMetrics contains performance metrics from AI model operations.
type ModelMetrics struct {
	Requests       int     `json:"requests"`
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// GenerateOption is a functional option for configuring AI generation requests.
type GenerateOption func(*GenerateOptions)

// NewGenerateOptions applies opts on top of the given default model.
func NewGenerateOptions(model string, opts ...GenerateOption) GenerateOptions {
	options := GenerateOptions{Model: model}
	for _, o := range opts {
		o(&options)
	}
	return options
}

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
// Extraction runs at 0 so repeated runs over the same text agree.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = &temp
	}
}

// WithMaxTokens bounds the number of generated tokens.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithFormat attaches a JSON schema derived from out (see GenerateSchema).
func WithFormat(name, description string, out any) GenerateOption {
	return func(o *GenerateOptions) {
		o.Format = &ResponseFormat{
			Name:        name,
			Description: description,
			Schema:      GenerateSchema(out),
		}
	}
}

// GraphAIClient is the language model collaborator used for knowledge
// extraction and for grounded answers. Implementations must honour ctx
// cancellation and must not retry failed calls.
type GraphAIClient interface {
	GenerateCompletion(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (string, error)

	GenerateChat(
		ctx context.Context,
		messages []ChatMessage,
		opts ...GenerateOption,
	) (string, error)

	ResetMetrics()
	GetMetrics() ModelMetrics
}
