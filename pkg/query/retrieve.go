package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type nutrientKeyword struct {
	keyword  string
	nutrient string
}

// Checked in this order, the first hit wins.
var nutrientKeywords = []nutrientKeyword{
	{keyword: "potassium", nutrient: store.NutrientPotassium},
	{keyword: "nitrogen", nutrient: store.NutrientNitrogen},
	{keyword: "phosphorus", nutrient: store.NutrientPhosphorus},
}

// DetectNutrient returns the nutrient named in query, matched as a
// case-insensitive substring. ok is false when no nutrient is mentioned.
func DetectNutrient(query string) (nutrient string, ok bool) {
	q := strings.ToLower(query)
	for _, k := range nutrientKeywords {
		if strings.Contains(q, k.keyword) {
			return k.nutrient, true
		}
	}
	return "", false
}

// Retrieve runs the nutrient query when query names a nutrient and the
// general suitability query otherwise. Rows keep the store order; an empty
// result is not an error.
func (c *QueryClient) Retrieve(ctx context.Context, query string) ([]common.CropRow, error) {
	if nutrient, ok := DetectNutrient(query); ok {
		recordEvent(c.options.Tracer, TraceEvent{Kind: TraceEventNutrientDetected, Nutrient: nutrient})

		rows, err := c.storage.NutrientCrops(ctx, nutrient)
		if err != nil {
			return nil, fmt.Errorf("retrieve crops requiring %s: %w", nutrient, err)
		}
		out := make([]common.CropRow, 0, len(rows))
		for _, r := range rows {
			out = append(out, r)
		}
		recordRows(c.options.Tracer, out)
		return out, nil
	}

	rows, err := c.storage.SuitableCrops(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve suitable crops: %w", err)
	}
	out := make([]common.CropRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, r)
	}
	recordRows(c.options.Tracer, out)
	return out, nil
}

func recordRows(t Tracer, rows []common.CropRow) {
	if t == nil {
		return
	}
	crops := make([]string, 0, len(rows))
	for _, r := range rows {
		crops = append(crops, r.CropName())
	}
	t.Record(TraceEvent{Kind: TraceEventRowsRetrieved, Crops: crops})
}

// BuildGraphContext renders one sentence per row, newline separated.
func BuildGraphContext(rows []common.CropRow) string {
	if len(rows) == 0 {
		return ""
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, r.Sentence())
	}
	return strings.Join(lines, "\n")
}

// GraphRAG answers query from the graph: retrieve rows, render them and let
// the model answer using only that context. The model is called even when
// nothing was retrieved; the system prompt tells it to say so.
func (c *QueryClient) GraphRAG(ctx context.Context, query string) (common.QueryAnswer, error) {
	ctx, span := tracer.Start(ctx, "query.graph_rag")
	defer span.End()

	rows, err := c.Retrieve(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return common.QueryAnswer{}, err
	}
	graphContext := BuildGraphContext(rows)
	span.SetAttributes(attribute.Int("query.rows", len(rows)))

	start := time.Now()
	answer, err := c.aiClient.GenerateCompletion(
		ctx,
		fmt.Sprintf(ai.AnswerPrompt, query, graphContext),
		c.generateOptions(ai.AnswerSystemPrompt)...,
	)
	event := TraceEvent{Kind: TraceEventLLMCall, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		event.Error = err.Error()
		recordEvent(c.options.Tracer, event)
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm call failed")
		return common.QueryAnswer{}, fmt.Errorf("%w: %w", graph.ErrLLMService, err)
	}
	recordEvent(c.options.Tracer, event)

	return common.QueryAnswer{
		Query:        query,
		GraphContext: graphContext,
		Answer:       answer,
	}, nil
}
