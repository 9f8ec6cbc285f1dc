package jsonlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeRedactsCredentials(t *testing.T) {
	got := sanitize([]any{"uri", "bolt://db:7687", "NEO4J_PASSWORD", "hunter2", "api_key", "sk-1"})
	assert.Equal(t, []any{"uri", "bolt://db:7687", "NEO4J_PASSWORD", "[REDACTED]", "api_key", "[REDACTED]"}, got)
}

func TestSanitizeKeepsDanglingKey(t *testing.T) {
	got := sanitize([]any{"doc", "a.txt", "orphan"})
	assert.Equal(t, []any{"doc", "a.txt", "orphan"}, got)
}
