package openai

import (
	"time"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// GraphOpenAIClient implements ai.GraphAIClient against any OpenAI compatible
// chat completions endpoint.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	ai.MetricsRecorder

	chatModel string

	ChatClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration parameters for creating
// a new GraphOpenAIClient.
//
// ChatURL may point to any compatible server, empty means api.openai.com.
// Timeout bounds every request, 0 keeps the SDK default.
type NewGraphOpenAIClientParams struct {
	ChatModel string
	ChatURL   string
	ChatKey   string
	Timeout   time.Duration
}

// NewGraphOpenAIClient creates a client for the given endpoint.
// The SDK's automatic retries are disabled: a failed call is reported to the
// caller once.
//
// Example:
//
//	client := openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
//		ChatModel: "gpt-4o-mini",
//		ChatKey:   os.Getenv("AI_CHAT_KEY"),
//	})
func NewGraphOpenAIClient(
	params NewGraphOpenAIClientParams,
) *GraphOpenAIClient {
	options := []option.RequestOption{
		option.WithAPIKey(params.ChatKey),
		option.WithMaxRetries(0),
	}
	if params.ChatURL != "" {
		options = append(options, option.WithBaseURL(params.ChatURL))
	}
	if params.Timeout > 0 {
		options = append(options, option.WithRequestTimeout(params.Timeout))
	}

	client := openai.NewClient(options...)

	return &GraphOpenAIClient{
		chatModel:  params.ChatModel,
		ChatClient: &client,
	}
}
