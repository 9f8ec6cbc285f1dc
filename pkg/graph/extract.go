package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/util"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type extractEntity struct {
	Name string `json:"name" jsonschema_description:"Name of the entity as it appears in the text"`
	Type string `json:"type" jsonschema_description:"Short type label, e.g. Crop, Soil, Nutrient"`
}

type extractRelation struct {
	Source   string `json:"source" jsonschema_description:"Name of the source entity"`
	Relation string `json:"relation" jsonschema_description:"Relation label in upper snake case, e.g. GROWS_IN"`
	Target   string `json:"target" jsonschema_description:"Name of the target entity"`
}

type extractResponse struct {
	Entities  []extractEntity   `json:"entities" jsonschema_description:"Entities found in the text"`
	Relations []extractRelation `json:"relations" jsonschema_description:"Relations between the entities"`
}

// ExtractKnowledge asks the model for the entities and relations of text.
// Only the first maxChars code points are sent. The reply is parsed
// strictly: the first embedded JSON object wins, anything else fails with
// ErrExtractionParse. Model errors are wrapped in ErrLLMService.
func (g *GraphClient) ExtractKnowledge(ctx context.Context, text string) (common.KnowledgeGraph, error) {
	ctx, span := tracer.Start(ctx, "graph.extract_knowledge")
	defer span.End()

	start := time.Now()
	input := util.TruncateRunes(text, g.maxChars)
	span.SetAttributes(
		attribute.Int("graph.input_chars", len([]rune(input))),
		attribute.Bool("graph.truncated", len(input) < len(text)),
	)

	out, err := g.aiClient.GenerateCompletion(
		ctx,
		fmt.Sprintf(ai.ExtractPrompt, input),
		ai.WithTemperature(0),
		ai.WithMaxTokens(g.maxTokens),
		ai.WithFormat(
			"knowledge_graph",
			"Entities and relations extracted from a text document.",
			&extractResponse{},
		),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm call failed")
		return common.KnowledgeGraph{}, fmt.Errorf("%w: %w", ErrLLMService, err)
	}

	obj, err := ai.ExtractJSONObject(out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no json object")
		return common.KnowledgeGraph{}, fmt.Errorf("%w: %w", ErrExtractionParse, err)
	}

	kg, skipped, err := knowledgeFromObject(obj)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected json shape")
		return common.KnowledgeGraph{}, fmt.Errorf("%w: %w", ErrExtractionParse, err)
	}

	duration := time.Since(start)
	span.SetAttributes(
		attribute.Int("graph.entities", len(kg.Entities)),
		attribute.Int("graph.relations", len(kg.Relations)),
		attribute.Int("graph.skipped", skipped),
	)
	logger.Info("Extraction completed",
		"duration", duration.Round(time.Millisecond),
		"entities", len(kg.Entities),
		"relations", len(kg.Relations),
		"skipped", skipped,
	)

	return kg, nil
}

// knowledgeFromObject maps a decoded object onto the extraction shape.
// Missing lists become empty ones; items with blank names are skipped and
// counted. Values of the wrong JSON type are an error.
func knowledgeFromObject(obj map[string]any) (common.KnowledgeGraph, int, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return common.KnowledgeGraph{}, 0, err
	}
	var res extractResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return common.KnowledgeGraph{}, 0, err
	}

	kg := common.KnowledgeGraph{
		Entities:  make([]common.Entity, 0, len(res.Entities)),
		Relations: make([]common.Relation, 0, len(res.Relations)),
	}
	skipped := 0
	for _, e := range res.Entities {
		if strings.TrimSpace(e.Name) == "" {
			skipped++
			continue
		}
		kg.Entities = append(kg.Entities, common.Entity{Name: e.Name, Type: e.Type})
	}
	for _, r := range res.Relations {
		if strings.TrimSpace(r.Source) == "" ||
			strings.TrimSpace(r.Target) == "" ||
			strings.TrimSpace(r.Relation) == "" {
			skipped++
			continue
		}
		kg.Relations = append(kg.Relations, common.Relation{
			Source:   r.Source,
			Relation: r.Relation,
			Target:   r.Target,
		})
	}

	return kg, skipped, nil
}
