package rag

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// MatchFilters reports whether metadata satisfies every filter.
//
// A nil expected value always matches and a missing metadata key never
// does. Slices match when any element equals the actual value. A map is
// a numeric range with optional inclusive "min" and "max" bounds. Anything
// else is a case-insensitive comparison of string forms.
func MatchFilters(metadata, filters map[string]interface{}) bool {
	for key, expected := range filters {
		if !matchFilter(metadata, key, expected) {
			return false
		}
	}
	return true
}

func matchFilter(metadata map[string]interface{}, key string, expected interface{}) bool {
	if expected == nil {
		return true
	}
	actual, ok := metadata[key]
	if !ok || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case map[string]interface{}:
		return inRange(actual, exp["min"], exp["max"])
	case map[string]float64:
		lo, hasLo := exp["min"]
		hi, hasHi := exp["max"]
		var min, max interface{}
		if hasLo {
			min = lo
		}
		if hasHi {
			max = hi
		}
		return inRange(actual, min, max)
	}

	rv := reflect.ValueOf(expected)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if valuesEqual(actual, rv.Index(i).Interface()) {
				return true
			}
		}
		return false
	}
	return valuesEqual(actual, expected)
}

func inRange(actual, min, max interface{}) bool {
	v, ok := parseNumber(actual)
	if !ok {
		return false
	}
	if lo, ok := parseNumber(min); ok && v < lo {
		return false
	}
	if hi, ok := parseNumber(max); ok && v > hi {
		return false
	}
	return true
}

func valuesEqual(actual, expected interface{}) bool {
	if actual == nil || expected == nil {
		return false
	}
	return strings.EqualFold(fmt.Sprint(actual), fmt.Sprint(expected))
}

// parseNumber coerces v to a float. Strings are stripped of everything
// but digits, dots and minus signs first, so "$1,200" parses as 1200.
func parseNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	normalized := nonNumeric.ReplaceAllString(fmt.Sprint(v), "")
	if normalized == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Confidence is the mean similarity of docs clamped to [0,1], or 0 when
// there are none.
func Confidence(docs []Document) float64 {
	if len(docs) == 0 {
		return 0
	}
	var sum float64
	for _, d := range docs {
		sum += d.Similarity
	}
	return clampUnit(sum / float64(len(docs)))
}

// AdvancedConfidence averages the mean native score and the mean similarity
// of docs, clamped to [0,1]. Re-ranking rewrites Similarity but never Score,
// so both signals contribute.
func AdvancedConfidence(docs []Document) float64 {
	if len(docs) == 0 {
		return 0
	}
	var score, sim float64
	for _, d := range docs {
		score += d.Score
		sim += d.Similarity
	}
	n := float64(len(docs))
	return clampUnit((score/n + sim/n) / 2)
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
