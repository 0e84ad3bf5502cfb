package vectorstore

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// CosineSimilarity returns dot(a,b)/(|a||b|) clamped to [0, 1]. Empty,
// zero-norm or different-length vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	switch {
	case math.IsNaN(sim) || sim < 0:
		return 0
	case sim > 1:
		return 1
	default:
		return sim
	}
}

// MatchesFilter reports whether every filter key is present in metadata
// with an equal value. Numbers compare by value regardless of kind, so
// int 3 matches float64 3. A nil or empty filter matches everything.
func MatchesFilter(metadata, filter map[string]interface{}) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// validateRecord enforces the id and vector preconditions shared by every
// backend.
func validateRecord(id string, vector []float32) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrValidation)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: vector cannot be empty for id %q", ErrValidation, id)
	}
	return nil
}

func validateQuery(query []float32) error {
	if len(query) == 0 {
		return fmt.Errorf("%w: query vector cannot be empty", ErrValidation)
	}
	return nil
}

// rank scores candidates against query and applies the shared search
// semantics. Ties keep ascending id order so results are reproducible.
func rank(query []float32, candidates []Record, filter map[string]interface{}, limit int, threshold float64, backend string) []SearchResult {
	if limit <= 0 {
		return []SearchResult{}
	}
	results := make([]SearchResult, 0, len(candidates))
	for _, rec := range candidates {
		if !MatchesFilter(rec.Metadata, filter) {
			continue
		}
		sim := CosineSimilarity(query, rec.Vector)
		if sim < threshold {
			continue
		}
		results = append(results, newSearchResult(rec, sim, backend))
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Record.ID < results[j].Record.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func newSearchResult(rec Record, sim float64, backend string) SearchResult {
	return SearchResult{
		Record:     rec,
		Similarity: sim,
		Distance:   1 - sim,
		SearchMetadata: map[string]interface{}{
			"backend": backend,
		},
	}
}

func copyVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	return append([]float32(nil), v...)
}

// copyMetadata deep-copies nested maps and slices so callers cannot reach
// stored state through shared references.
func copyMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyMetadata(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case []float32:
		return copyVector(val)
	case []float64:
		return append([]float64(nil), val...)
	default:
		return v
	}
}

func copyRecord(r Record) Record {
	r.Vector = copyVector(r.Vector)
	r.Metadata = copyMetadata(r.Metadata)
	return r
}
