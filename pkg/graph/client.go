package graph

import (
	"errors"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store"

	"go.opentelemetry.io/otel"
)

const (
	// DefaultMaxChars bounds the document prefix sent to the model.
	DefaultMaxChars = 2000
	// DefaultMaxTokens bounds the extraction response length.
	DefaultMaxTokens = 512
)

var tracer = otel.Tracer("github.com/OFFIS-RIT/cropgraph/backend/pkg/graph")

// GraphClient drives knowledge extraction and the ingestion pipeline.
// Documents are processed one at a time; a GraphClient is not meant to be
// shared between concurrent pipeline runs.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	aiClient  ai.GraphAIClient
	storage   store.GraphStorage
	maxChars  int
	maxTokens int
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// MaxChars is the number of code points of a document passed to the model,
// MaxTokens bounds the model output. Zero values select the defaults.
type NewGraphClientParams struct {
	AIClient  ai.GraphAIClient
	Storage   store.GraphStorage
	MaxChars  int
	MaxTokens int
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		AIClient: aiClient,
//		Storage:  storage,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	report, err := client.ProcessDocuments(ctx, files, nil)
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	if params.AIClient == nil {
		return nil, errors.New("graph client requires an AI client")
	}
	if params.Storage == nil {
		return nil, errors.New("graph client requires a graph storage")
	}

	maxChars := params.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &GraphClient{
		aiClient:  params.AIClient,
		storage:   params.Storage,
		maxChars:  maxChars,
		maxTokens: maxTokens,
	}, nil
}
