package query

import (
	"errors"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store"

	"go.opentelemetry.io/otel"
)

// DefaultRecommendLimit is the number of ranked crops a recommendation
// considers: the winner plus two alternatives.
const DefaultRecommendLimit = 3

var tracer = otel.Tracer("github.com/OFFIS-RIT/cropgraph/backend/pkg/query")

type queryOptions struct {
	SystemPrompts  []string
	Model          string
	RecommendLimit int
	Tracer         Tracer
}

// QueryOption is a functional option for configuring query behavior.
type QueryOption func(*queryOptions)

// WithSystemPrompts returns a QueryOption that appends additional system
// prompts after the built-in grounding prompt.
func WithSystemPrompts(prompts ...string) QueryOption {
	return func(o *queryOptions) {
		o.SystemPrompts = append(o.SystemPrompts, prompts...)
	}
}

// WithModel returns a QueryOption that specifies which AI model to use
// for generating answers and explanations.
func WithModel(model string) QueryOption {
	return func(o *queryOptions) {
		o.Model = model
	}
}

// WithRecommendLimit overrides how many ranked crops are fetched.
func WithRecommendLimit(n int) QueryOption {
	return func(o *queryOptions) {
		o.RecommendLimit = n
	}
}

// WithTracer attaches a sink for retrieval and ranking events.
func WithTracer(t Tracer) QueryOption {
	return func(o *queryOptions) {
		o.Tracer = t
	}
}

// QueryClient answers free-text questions and soil recommendations from the
// graph. It holds no per-request state and is safe for concurrent use when
// its collaborators are.
type QueryClient struct {
	aiClient ai.GraphAIClient
	storage  store.GraphStorage
	options  queryOptions
}

// NewQueryClient creates a QueryClient.
//
// Example:
//
//	qc, err := query.NewQueryClient(aiClient, storage)
//	if err != nil {
//		log.Fatal(err)
//	}
//	answer, err := qc.GraphRAG(ctx, "Which crops need potassium?")
func NewQueryClient(aiClient ai.GraphAIClient, storage store.GraphStorage, opts ...QueryOption) (*QueryClient, error) {
	if aiClient == nil {
		return nil, errors.New("query client requires an AI client")
	}
	if storage == nil {
		return nil, errors.New("query client requires a graph storage")
	}

	o := queryOptions{RecommendLimit: DefaultRecommendLimit}
	for _, opt := range opts {
		opt(&o)
	}
	if o.RecommendLimit <= 0 {
		o.RecommendLimit = DefaultRecommendLimit
	}

	return &QueryClient{
		aiClient: aiClient,
		storage:  storage,
		options:  o,
	}, nil
}

func (c *QueryClient) generateOptions(system ...string) []ai.GenerateOption {
	var opts []ai.GenerateOption
	if prompts := append(system, c.options.SystemPrompts...); len(prompts) > 0 {
		opts = append(opts, ai.WithSystemPrompts(prompts...))
	}
	if c.options.Model != "" {
		opts = append(opts, ai.WithModel(c.options.Model))
	}
	return opts
}
