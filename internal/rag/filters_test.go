package rag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/ragcore/internal/rag"
)

func TestMatchFilters(t *testing.T) {
	metadata := map[string]interface{}{
		"category": "Electronics",
		"price":    "$1,200.50",
		"rating":   4.5,
		"stock":    12,
		"brand":    "Acme",
	}

	tests := []struct {
		name    string
		filters map[string]interface{}
		want    bool
	}{
		{"no filters", nil, true},
		{"nil expected matches", map[string]interface{}{"anything": nil}, true},
		{"missing key", map[string]interface{}{"color": "red"}, false},
		{"equality ignores case", map[string]interface{}{"category": "electronics"}, true},
		{"equality mismatch", map[string]interface{}{"category": "books"}, false},
		{"number against string form", map[string]interface{}{"stock": "12"}, true},
		{"membership", map[string]interface{}{"brand": []interface{}{"Other", "ACME"}}, true},
		{"membership typed slice", map[string]interface{}{"brand": []string{"x", "acme"}}, true},
		{"membership miss", map[string]interface{}{"brand": []string{"x", "y"}}, false},
		{"range inside", map[string]interface{}{"price": map[string]interface{}{"min": 1000, "max": 1500}}, true},
		{"range inclusive", map[string]interface{}{"rating": map[string]interface{}{"min": 4.5, "max": 4.5}}, true},
		{"range below", map[string]interface{}{"price": map[string]interface{}{"min": 1300}}, false},
		{"range above", map[string]interface{}{"stock": map[string]interface{}{"max": 10}}, false},
		{"range string bounds", map[string]interface{}{"stock": map[string]interface{}{"min": "10 units"}}, true},
		{"typed range", map[string]interface{}{"rating": map[string]float64{"min": 4}}, true},
		{"range unparsable value", map[string]interface{}{"brand": map[string]interface{}{"min": 1}}, false},
		{"all must match", map[string]interface{}{"category": "electronics", "brand": "other"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rag.MatchFilters(metadata, tt.filters))
		})
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, rag.Confidence(nil))
	assert.InDelta(t, 0.6, rag.Confidence([]rag.Document{{Similarity: 0.4}, {Similarity: 0.8}}), 1e-9)
	assert.Equal(t, 1.0, rag.Confidence([]rag.Document{{Similarity: 1.7}}))
	assert.Equal(t, 0.0, rag.Confidence([]rag.Document{{Similarity: -0.3}}))
}

func TestAdvancedConfidence(t *testing.T) {
	assert.Equal(t, 0.0, rag.AdvancedConfidence(nil))
	assert.InDelta(t, 0.65, rag.AdvancedConfidence([]rag.Document{
		{Score: 1.0, Similarity: 0.4},
		{Score: 0.6, Similarity: 0.6},
	}), 1e-9)
	assert.Equal(t, 1.0, rag.AdvancedConfidence([]rag.Document{{Score: 3, Similarity: 1}}))
	assert.Equal(t, 0.0, rag.AdvancedConfidence([]rag.Document{{Score: -1, Similarity: -1}}))
}
