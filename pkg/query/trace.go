package query

import (
	"sync"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
)

type TraceEventKind string

const (
	TraceEventNutrientDetected TraceEventKind = "nutrient_detected"
	TraceEventRowsRetrieved    TraceEventKind = "rows_retrieved"
	TraceEventCropsRanked      TraceEventKind = "crops_ranked"
	TraceEventLLMCall          TraceEventKind = "llm_call"
)

// TraceEvent is an extensible event envelope for query tracing.
// Additive changes to this struct are backward compatible for implementers.
type TraceEvent struct {
	Kind TraceEventKind

	Nutrient   string
	Crops      []string
	Scores     []common.CropScore
	DurationMs int64
	Error      string
}

// Tracer is a sink for query tracing events.
//
// Implementers can forward events to logs, telemetry, or custom post-processing
// pipelines.
type Tracer interface {
	Record(event TraceEvent)
}

// MultiTracer fan-outs trace events to multiple tracers.
type MultiTracer []Tracer

func (m MultiTracer) Record(event TraceEvent) {
	for _, t := range m {
		if t == nil {
			continue
		}
		t.Record(event)
	}
}

func recordEvent(t Tracer, event TraceEvent) {
	if t == nil {
		return
	}
	t.Record(event)
}

// QueryTrace collects what a query run looked at: the detected nutrient,
// the crops retrieved or ranked and the model calls made.
//
// QueryTrace is safe for concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	nutrient string
	crops    []string
	scores   []common.CropScore
	llmCalls int
	errors   []string
}

type QueryTraceSnapshot struct {
	Nutrient string             `json:"nutrient,omitempty"`
	Crops    []string           `json:"crops"`
	Scores   []common.CropScore `json:"scores,omitempty"`
	LLMCalls int                `json:"llm_calls"`
	Errors   []string           `json:"errors,omitempty"`
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventNutrientDetected:
		t.nutrient = event.Nutrient
	case TraceEventRowsRetrieved:
		t.crops = append(t.crops, event.Crops...)
	case TraceEventCropsRanked:
		t.scores = append(t.scores, event.Scores...)
		for _, s := range event.Scores {
			t.crops = append(t.crops, s.Crop)
		}
	case TraceEventLLMCall:
		t.llmCalls++
	default:
		return
	}
	if event.Error != "" {
		t.errors = append(t.errors, event.Error)
	}
}

// Snapshot copies the collected data. Crops keep the order they were seen in.
func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return QueryTraceSnapshot{
		Nutrient: t.nutrient,
		Crops:    append([]string{}, t.crops...),
		Scores:   append([]common.CropScore(nil), t.scores...),
		LLMCalls: t.llmCalls,
		Errors:   append([]string(nil), t.errors...),
	}
}
