package ai

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schemaProbe struct {
	Name  string   `json:"name" jsonschema_description:"Name of the thing"`
	Items []string `json:"items"`
}

func TestGenerateSchema_PointerAndValue(t *testing.T) {
	a, err := json.Marshal(GenerateSchema(&schemaProbe{}))
	require.NoError(t, err)
	b, err := json.Marshal(GenerateSchema(schemaProbe{}))
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))

	var schema map[string]any
	require.NoError(t, json.Unmarshal(a, &schema))
	assert.Equal(t, false, schema["additionalProperties"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "items")
}

func TestMetricsRecorder(t *testing.T) {
	var r MetricsRecorder
	r.Record(ModelMetrics{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, DurationMs: 500})
	r.Record(ModelMetrics{InputTokens: 20, OutputTokens: 5, TotalTokens: 25, DurationMs: 500})

	m := r.GetMetrics()
	assert.Equal(t, 2, m.Requests)
	assert.Equal(t, 30, m.InputTokens)
	assert.Equal(t, 10, m.OutputTokens)
	assert.Equal(t, 40, m.TotalTokens)
	assert.Equal(t, int64(1000), m.DurationMs)
	assert.InDelta(t, 40.0, m.TokenPerSecond, 0.001)

	r.ResetMetrics()
	assert.Equal(t, ModelMetrics{}, r.GetMetrics())
}

func TestMetricsRecorder_Concurrent(t *testing.T) {
	var r MetricsRecorder
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record(ModelMetrics{TotalTokens: 1})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.GetMetrics().Requests)
}

func TestNewGenerateOptions(t *testing.T) {
	o := NewGenerateOptions("base",
		WithModel("other"),
		WithSystemPrompts("a", "b"),
		WithTemperature(0),
		WithMaxTokens(64),
	)
	assert.Equal(t, "other", o.Model)
	assert.Equal(t, []string{"a", "b"}, o.SystemPrompts)
	require.NotNil(t, o.Temperature)
	assert.Equal(t, 0.0, *o.Temperature)
	assert.Equal(t, 64, o.MaxTokens)
	assert.Nil(t, o.Format)

	assert.Nil(t, NewGenerateOptions("base").Temperature)
}
