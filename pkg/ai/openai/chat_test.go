package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Rice fits best."}}],
  "usage": {"prompt_tokens": 11, "completion_tokens": 4, "total_tokens": 15}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *GraphOpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGraphOpenAIClient(NewGraphOpenAIClientParams{
		ChatModel: "gpt-4o-mini",
		ChatURL:   srv.URL + "/v1/",
		ChatKey:   "test-key",
	})
}

func TestGenerateChat_RequestShape(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	out, err := c.GenerateChat(
		context.Background(),
		[]ai.ChatMessage{{Message: "Question"}},
		ai.WithSystemPrompts("You are an agronomy expert."),
		ai.WithTemperature(0),
		ai.WithMaxTokens(512),
	)
	require.NoError(t, err)
	assert.Equal(t, "Rice fits best.", out)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, float64(0), body["temperature"])
	assert.Equal(t, float64(512), body["max_completion_tokens"])

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])

	m := c.GetMetrics()
	assert.Equal(t, 1, m.Requests)
	assert.Equal(t, 15, m.TotalTokens)
}

func TestGenerateCompletion_DefaultTemperatureOmitted(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	_, err := c.GenerateCompletion(context.Background(), "Explain")
	require.NoError(t, err)
	assert.NotContains(t, body, "temperature")
	assert.NotContains(t, body, "response_format")
}

func TestGenerateCompletion_JSONSchemaFormat(t *testing.T) {
	type kg struct {
		Entities []string `json:"entities"`
	}
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	_, err := c.GenerateCompletion(context.Background(), "x", ai.WithFormat("knowledge_graph", "entities", &kg{}))
	require.NoError(t, err)

	rf, ok := body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", rf["type"])
	schema := rf["json_schema"].(map[string]any)
	assert.Equal(t, "knowledge_graph", schema["name"])
	assert.Equal(t, true, schema["strict"])
}

func TestGenerateChat_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	})

	_, err := c.GenerateCompletion(context.Background(), "x")
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestGenerateChat_ErrorIsNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})

	_, err := c.GenerateCompletion(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
