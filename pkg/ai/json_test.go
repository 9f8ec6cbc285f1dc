package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject_EmbeddedObject(t *testing.T) {
	want := map[string]any{
		"entities": []any{
			map[string]any{"name": "Rice", "type": "Crop"},
		},
		"relations": []any{},
	}
	object := `{"entities":[{"name":"Rice","type":"Crop"}],"relations":[]}`

	prefixes := []string{"", "Here is the JSON:\n", "```json\n", "noise { not json ", "}}}", "{{"}
	suffixes := []string{"", "\n```", " trailing words", " {\"second\": true}", "}", "{"}

	for _, prefix := range prefixes {
		for _, suffix := range suffixes {
			got, err := ExtractJSONObject(prefix + object + suffix)
			require.NoError(t, err, "prefix=%q suffix=%q", prefix, suffix)
			assert.Equal(t, want, got, "prefix=%q suffix=%q", prefix, suffix)
		}
	}
}

func TestExtractJSONObject_FirstObjectWins(t *testing.T) {
	got, err := ExtractJSONObject(`{"a": 1} {"b": 2}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, got)
}

func TestExtractJSONObject_SkipsMalformedCandidates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{
			name:  "unquoted key before valid object",
			input: `{name: 'John'} then {"name":"John"}`,
			want:  map[string]any{"name": "John"},
		},
		{
			name:  "inner object of a broken outer object",
			input: `{"outer": {"inner": true}`,
			want:  map[string]any{"inner": true},
		},
		{
			name:  "surrounding whitespace",
			input: "\n\t  {\"k\": \"v\"}  \n",
			want:  map[string]any{"k": "v"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractJSONObject_NoObject(t *testing.T) {
	inputs := []string{
		"",
		"I could not find any entities.",
		`["not", "an", "object"]`,
		`{"name": "John"`,
		`{name: 'John'}`,
		`{"name":"John",}`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			got, err := ExtractJSONObject("  " + input + "  ")
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, ErrNoJSONFound))

			var nf *NoJSONFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, input, nf.Raw)
		})
	}
}
