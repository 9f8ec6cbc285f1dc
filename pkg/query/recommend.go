package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// NoSuitableCrops is the explanation returned when no crop grows in a soil
// matching the input.
const NoSuitableCrops = "No crops are suitable for the given soil conditions."

// RankCrops returns the best matching crops for in, lowest score first.
func (c *QueryClient) RankCrops(ctx context.Context, in common.SoilInput, limit int) ([]common.CropScore, error) {
	ranked, err := c.storage.RankCrops(ctx, in, limit)
	if err != nil {
		return nil, fmt.Errorf("rank crops: %w", err)
	}
	recordEvent(c.options.Tracer, TraceEvent{Kind: TraceEventCropsRanked, Scores: ranked})
	return ranked, nil
}

// Recommend ranks the crops for in and asks the model to explain the top
// one. Without a ranked crop the model is not called and Crop is nil.
func (c *QueryClient) Recommend(ctx context.Context, in common.SoilInput) (common.Recommendation, error) {
	ctx, span := tracer.Start(ctx, "query.recommend")
	defer span.End()
	span.SetAttributes(attribute.String("query.soil_type", in.SoilType))

	ranked, err := c.RankCrops(ctx, in, c.options.RecommendLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ranking failed")
		return common.Recommendation{}, err
	}
	if len(ranked) == 0 {
		logger.Debug("[Query] No crop matches soil", "soil_type", in.SoilType)
		return common.Recommendation{
			Crop:         nil,
			Alternatives: []string{},
			Explanation:  NoSuitableCrops,
		}, nil
	}

	top := ranked[0].Crop
	alternatives := make([]string, 0, len(ranked)-1)
	for _, r := range ranked[1:] {
		alternatives = append(alternatives, r.Crop)
	}
	span.SetAttributes(attribute.String("query.crop", top))

	prompt := fmt.Sprintf(ai.RecommendPrompt,
		common.FormatNumber(in.Nitrogen),
		common.FormatNumber(in.Phosphorus),
		common.FormatNumber(in.Potassium),
		common.FormatNumber(in.Temperature),
		common.FormatNumber(in.PH),
		common.FormatNumber(in.Moisture),
		common.FormatNumber(in.Salinity),
		in.SoilType,
		top,
		strings.Join(alternatives, ", "),
	)

	start := time.Now()
	explanation, err := c.aiClient.GenerateCompletion(ctx, prompt, c.generateOptions()...)
	event := TraceEvent{Kind: TraceEventLLMCall, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		event.Error = err.Error()
		recordEvent(c.options.Tracer, event)
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm call failed")
		return common.Recommendation{}, fmt.Errorf("%w: %w", graph.ErrLLMService, err)
	}
	recordEvent(c.options.Tracer, event)

	return common.Recommendation{
		Crop:         &top,
		Alternatives: alternatives,
		Explanation:  explanation,
	}, nil
}
