package vectorstore_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/ragcore/internal/vectorstore"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite clamps to zero", []float32{1, 0}, []float32{-1, 0}, 0},
		{"zero norm", []float32{0, 0, 0}, []float32{1, 0, 0}, 0},
		{"dimension mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
		{"nan", []float32{float32(math.NaN()), 1}, []float32{1, 1}, 0},
		{"partial", []float32{1, 0, 0}, []float32{0.9, 0.1, 0}, 0.9 / math.Sqrt(0.82)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := vectorstore.CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{0.3, -0.2, 0.9}
	b := []float32{0.1, 0.5, 0.4}
	assert.Equal(t, vectorstore.CosineSimilarity(a, b), vectorstore.CosineSimilarity(b, a))
}

func TestMatchesFilter(t *testing.T) {
	meta := map[string]interface{}{
		"entityType": "doc",
		"priority":   3,
		"score":      float64(2.5),
		"published":  true,
		"tags":       []interface{}{"a", "b"},
	}
	tests := []struct {
		name   string
		filter map[string]interface{}
		want   bool
	}{
		{"nil filter", nil, true},
		{"empty filter", map[string]interface{}{}, true},
		{"string equal", map[string]interface{}{"entityType": "doc"}, true},
		{"string differs", map[string]interface{}{"entityType": "note"}, false},
		{"string is case sensitive", map[string]interface{}{"entityType": "Doc"}, false},
		{"int matches float64", map[string]interface{}{"priority": float64(3)}, true},
		{"int64 matches int", map[string]interface{}{"priority": int64(3)}, true},
		{"float matches", map[string]interface{}{"score": float32(2.5)}, true},
		{"number vs string", map[string]interface{}{"priority": "3"}, false},
		{"bool", map[string]interface{}{"published": true}, true},
		{"slice deep equal", map[string]interface{}{"tags": []interface{}{"a", "b"}}, true},
		{"missing key", map[string]interface{}{"author": "x"}, false},
		{"all keys must match", map[string]interface{}{"entityType": "doc", "published": false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vectorstore.MatchesFilter(meta, tt.filter))
		})
	}
}
