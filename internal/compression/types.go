package compression

import "strings"

// Level selects how aggressively context is reduced.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ParseLevel maps a name to a Level. Empty selects medium; anything else
// that is not recognised selects low, which keeps all passages.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case "", LevelMedium:
		return LevelMedium
	case LevelHigh:
		return LevelHigh
	default:
		return LevelLow
	}
}

// Passage is one retrieved document's text and native score.
type Passage struct {
	Content string
	Score   float64
}
