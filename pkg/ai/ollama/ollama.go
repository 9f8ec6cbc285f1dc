package ollama

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/semaphore"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:11434"

// GraphOllamaClient implements the ai.GraphAIClient interface using Ollama as the backend.
type GraphOllamaClient struct {
	ai.MetricsRecorder

	chatModel string
	timeout   time.Duration

	reqLock *semaphore.Weighted

	countOnce   sync.Once
	countTokens func(string) int

	baseURL    *url.URL
	httpClient *http.Client

	Client *api.Client
}

// NewGraphOllamaClientParams contains configuration options for creating a new GraphOllamaClient.
//
// Timeout bounds every single request, 0 disables it.
// MaxConcurrentRequests limits in-flight requests and defaults to 1.
type NewGraphOllamaClientParams struct {
	ChatModel string

	BaseURL string
	ApiKey  string

	Timeout               time.Duration
	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient creates a new Ollama-based AI client with the specified configuration.
// It connects to the Ollama server at the given BaseURL (or DefaultBaseURL if empty).
func NewGraphOllamaClient(
	params NewGraphOllamaClientParams,
) (*GraphOllamaClient, error) {
	raw := params.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	var rt http.RoundTripper = http.DefaultTransport
	if params.ApiKey != "" {
		rt = &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		}
	}
	httpClient := &http.Client{Transport: rt}

	maxReq := params.MaxConcurrentRequests
	if maxReq <= 0 {
		maxReq = 1
	}

	return &GraphOllamaClient{
		chatModel: params.ChatModel,
		timeout:   params.Timeout,

		reqLock: semaphore.NewWeighted(maxReq),

		baseURL:    u,
		httpClient: httpClient,

		Client: api.NewClient(u, httpClient),
	}, nil
}

// tokenCount estimates the prompt size so num_ctx can be raised for long
// prompts. It returns 0 when no tokenizer is available.
func (c *GraphOllamaClient) tokenCount(text string) int {
	c.countOnce.Do(func() {
		if c.countTokens != nil {
			return
		}
		enc, err := tiktoken.GetEncoding("o200k_base")
		if err != nil {
			c.countTokens = func(string) int { return 0 }
			return
		}
		c.countTokens = func(s string) int {
			return len(enc.Encode(s, nil, nil))
		}
	})
	return c.countTokens(text)
}
