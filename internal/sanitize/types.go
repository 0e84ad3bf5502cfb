package sanitize

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig indicates a sanitizer configuration error.
var ErrInvalidConfig = errors.New("invalid sanitizer config")

// Mode controls what happens to detected PII.
type Mode string

const (
	// ModePassThrough leaves text untouched and skips detection.
	ModePassThrough Mode = "PASS_THROUGH"
	// ModeDetectOnly reports detections without changing the text.
	ModeDetectOnly Mode = "DETECT_ONLY"
	// ModeRedact replaces every detection with its mask.
	ModeRedact Mode = "REDACT"
)

// ParseMode parses a mode name case-insensitively. Empty means PASS_THROUGH.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ModePassThrough:
		return ModePassThrough, nil
	case ModeDetectOnly:
		return ModeDetectOnly, nil
	case ModeRedact:
		return ModeRedact, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
	}
}

// Detection is one PII span. Offsets are byte offsets into the original
// text; the matched value itself is never kept.
type Detection struct {
	Type        string  `json:"type"`
	FieldName   string  `json:"fieldName"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	MaskedValue string  `json:"maskedValue"`
	Confidence  float64 `json:"confidence"`
}

// Result is the outcome of sanitizing one text.
type Result struct {
	OriginalText      string                 `json:"-"`
	ProcessedText     string                 `json:"processedText"`
	PIIDetected       bool                   `json:"piiDetected"`
	Mode              Mode                   `json:"mode"`
	Detections        []Detection            `json:"detections"`
	EncryptedOriginal string                 `json:"encryptedOriginal,omitempty"`
	EncryptionSalt    string                 `json:"encryptionSalt,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// FieldNames returns the distinct field names detected, in order.
func (r *Result) FieldNames() []string {
	seen := make(map[string]bool, len(r.Detections))
	var names []string
	for _, d := range r.Detections {
		if !seen[d.FieldName] {
			seen[d.FieldName] = true
			names = append(names, d.FieldName)
		}
	}
	return names
}

func passThrough(text string, metadata map[string]interface{}) *Result {
	return &Result{
		OriginalText:  text,
		ProcessedText: text,
		Mode:          ModePassThrough,
		Detections:    []Detection{},
		Metadata:      metadata,
	}
}
