package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern defines one PII detector.
type Pattern struct {
	Type        string  `koanf:"type"`
	Regex       string  `koanf:"regex"`
	FieldName   string  `koanf:"field_name"`
	Replacement string  `koanf:"replacement"`
	Confidence  float64 `koanf:"confidence"`
}

// DefaultPatterns returns the built-in detectors. Order matters: on
// overlap the earlier pattern wins, so SSN and card numbers are listed
// before the looser phone pattern.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Type:        "EMAIL",
			Regex:       `\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`,
			FieldName:   "email",
			Replacement: "[REDACTED_EMAIL]",
			Confidence:  0.95,
		},
		{
			Type:        "SSN",
			Regex:       `\b\d{3}-\d{2}-\d{4}\b`,
			FieldName:   "ssn",
			Replacement: "[REDACTED_SSN]",
			Confidence:  0.9,
		},
		{
			Type:        "CREDIT_CARD",
			Regex:       `\b(?:\d{4}[ -]?){3}\d{4}\b`,
			FieldName:   "credit_card",
			Replacement: "[REDACTED_CARD]",
			Confidence:  0.85,
		},
		{
			Type:        "PHONE",
			Regex:       `(?:\+?1[ .-]?)?(?:\(\d{3}\)\s?|\b\d{3}[ .-]?)\d{3}[ .-]?\d{4}\b`,
			FieldName:   "phone",
			Replacement: "[REDACTED_PHONE]",
			Confidence:  0.8,
		},
		{
			Type:        "IP_ADDRESS",
			Regex:       `\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`,
			FieldName:   "ip_address",
			Replacement: "[REDACTED_IP]",
			Confidence:  0.75,
		},
	}
}

type compiledPattern struct {
	Pattern
	re *regexp.Regexp
}

func compilePatterns(patterns []Pattern) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for i, p := range patterns {
		if p.Type == "" {
			return nil, fmt.Errorf("%w: pattern %d: type is required", ErrInvalidConfig, i)
		}
		re, err := regexp.Compile("(?i)" + p.Regex)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %s: %v", ErrInvalidConfig, p.Type, err)
		}
		p.Type = strings.ToUpper(p.Type)
		if p.FieldName == "" {
			p.FieldName = strings.ToLower(p.Type)
		}
		if p.Replacement == "" {
			p.Replacement = "[REDACTED_" + p.Type + "]"
		}
		out = append(out, compiledPattern{Pattern: p, re: re})
	}
	return out, nil
}
