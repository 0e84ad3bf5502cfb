package reranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple text", "error handling retry", []string{"error", "handling", "retry"}},
		{"stopwords filtered", "the error handling and retry", []string{"error", "handling", "retry"}},
		{"punctuation removed", "error, handling; retry!", []string{"error", "handling", "retry"}},
		{"short tokens filtered", "a an to error handling", []string{"error", "handling"}},
		{"case normalization", "ERROR Handling RETRY", []string{"error", "handling", "retry"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenize(tt.input))
		})
	}
}

func TestTermOverlap(t *testing.T) {
	assert.Equal(t, 0.0, termOverlap(nil, []string{"x"}))
	assert.Equal(t, 1.0, termOverlap([]string{"error", "retry"}, []string{"retry", "error", "more"}))
	assert.Equal(t, 0.5, termOverlap([]string{"error", "retry"}, []string{"error"}))
	// duplicate query terms count once
	assert.Equal(t, 0.5, termOverlap([]string{"error", "error", "retry"}, []string{"error"}))
}
