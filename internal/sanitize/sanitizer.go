package sanitize

import (
	"context"
	"crypto/rand"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragcore/internal/logging"
)

// Sanitizer inspects and optionally redacts text.
type Sanitizer interface {
	// Sanitize applies the configured mode.
	Sanitize(ctx context.Context, text string) (*Result, error)

	// Analyze reports detections without changing the text.
	Analyze(ctx context.Context, text string) (*Result, error)
}

// Config configures a PIISanitizer.
type Config struct {
	Enabled                bool
	Mode                   Mode
	StoreEncryptedOriginal bool
	EncryptionSecret       string
	AuditLogging           bool

	// DetectCredentials adds gitleaks-based CREDENTIAL detections.
	DetectCredentials bool
	// AllowlistPath is an optional TOML allowlist for credential detection.
	AllowlistPath string

	// Patterns replaces DefaultPatterns when non-empty.
	Patterns []Pattern
}

// PIISanitizer is the pattern-based Sanitizer.
type PIISanitizer struct {
	config      Config
	patterns    []compiledPattern
	credentials *credentialDetector
	logger      *logging.Logger
	random      io.Reader
	now         func() time.Time
}

// New builds a sanitizer from cfg.
func New(cfg Config, logger *logging.Logger) (*PIISanitizer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModePassThrough
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}

	defs := cfg.Patterns
	if len(defs) == 0 {
		defs = DefaultPatterns()
	}
	patterns, err := compilePatterns(defs)
	if err != nil {
		return nil, err
	}

	s := &PIISanitizer{
		config:   cfg,
		patterns: patterns,
		logger:   logger.Named("pii"),
		random:   rand.Reader,
		now:      time.Now,
	}

	if cfg.Enabled && cfg.DetectCredentials {
		allowlist, err := LoadAllowlist(cfg.AllowlistPath)
		if err != nil {
			return nil, err
		}
		if s.credentials, err = newCredentialDetector(allowlist); err != nil {
			return nil, err
		}
	}

	logger.Info(context.Background(), "pii sanitizer initialized",
		zap.Bool("enabled", cfg.Enabled),
		zap.String("mode", string(cfg.Mode)),
		zap.Int("patterns", len(patterns)),
		zap.Bool("credentials", s.credentials != nil))
	return s, nil
}

// Sanitize detects PII and, in REDACT mode, masks it. Empty text, a
// disabled sanitizer and PASS_THROUGH mode all return the text unchanged.
func (s *PIISanitizer) Sanitize(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return passThrough(text, map[string]interface{}{}), nil
	}
	if !s.config.Enabled || s.config.Mode == ModePassThrough {
		return s.result(text, text, nil, ModePassThrough, nil), nil
	}

	detections := s.detect(text)
	processed := text
	if len(detections) > 0 && s.config.Mode == ModeRedact {
		processed = redact(text, detections)
	}

	res := s.result(text, processed, detections, s.config.Mode, map[string]interface{}{
		"patternsEvaluated":   len(s.patterns),
		"auditLoggingEnabled": s.config.AuditLogging,
	})

	if res.PIIDetected && s.config.StoreEncryptedOriginal {
		encrypted, salt, err := secureOriginal(text, s.config.EncryptionSecret, s.random)
		if err != nil {
			s.logger.Warn(ctx, "failed to secure original text", zap.Error(err))
		} else {
			res.EncryptedOriginal, res.EncryptionSalt = encrypted, salt
		}
	}

	if res.PIIDetected && s.config.AuditLogging {
		s.logger.Info(ctx, "pii detected",
			zap.Int("detections", len(detections)),
			zap.String("mode", string(s.config.Mode)),
			zap.Strings("fields", res.FieldNames()))
	}
	return res, nil
}

// Analyze runs detection in DETECT_ONLY mode regardless of configuration.
func (s *PIISanitizer) Analyze(_ context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return passThrough(text, map[string]interface{}{}), nil
	}
	if !s.config.Enabled {
		return s.result(text, text, nil, ModePassThrough, map[string]interface{}{"analysisOnly": true}), nil
	}
	return s.result(text, text, s.detect(text), ModeDetectOnly, map[string]interface{}{
		"analysisOnly":      true,
		"patternsEvaluated": len(s.patterns),
	}), nil
}

func (s *PIISanitizer) result(original, processed string, detections []Detection, mode Mode, extra map[string]interface{}) *Result {
	if detections == nil {
		detections = []Detection{}
	}
	metadata := map[string]interface{}{
		"piiDetected": len(detections) > 0,
		"modeApplied": string(mode),
		"timestamp":   s.now().UTC().Format(time.RFC3339),
	}
	for k, v := range extra {
		metadata[k] = v
	}
	return &Result{
		OriginalText:  original,
		ProcessedText: processed,
		PIIDetected:   len(detections) > 0,
		Mode:          mode,
		Detections:    detections,
		Metadata:      metadata,
	}
}

// detect returns non-overlapping detections sorted by start offset. A
// candidate that overlaps an already accepted match is dropped.
func (s *PIISanitizer) detect(text string) []Detection {
	var found []Detection
	accept := func(d Detection) {
		for _, existing := range found {
			if d.Start < existing.End && existing.Start < d.End {
				return
			}
		}
		found = append(found, d)
	}

	// Credentials go first: tokens often contain digit runs the phone
	// pattern would otherwise claim.
	if s.credentials != nil {
		for _, span := range s.credentials.spans(text) {
			accept(Detection{
				Type:        credentialType,
				FieldName:   "credential",
				Start:       span[0],
				End:         span[1],
				MaskedValue: "[REDACTED_CREDENTIAL]",
				Confidence:  0.9,
			})
		}
	}
	for _, p := range s.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			accept(Detection{
				Type:        p.Type,
				FieldName:   p.FieldName,
				Start:       loc[0],
				End:         loc[1],
				MaskedValue: p.Replacement,
				Confidence:  p.Confidence,
			})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].Start < found[j].Start })
	return found
}

func redact(text string, detections []Detection) string {
	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for _, d := range detections {
		b.WriteString(text[cursor:d.Start])
		b.WriteString(d.MaskedValue)
		cursor = d.End
	}
	b.WriteString(text[cursor:])
	return b.String()
}

// Noop returns every text unchanged with no detections.
type Noop struct{}

// Sanitize implements Sanitizer.
func (Noop) Sanitize(_ context.Context, text string) (*Result, error) {
	return passThrough(text, map[string]interface{}{}), nil
}

// Analyze implements Sanitizer.
func (Noop) Analyze(_ context.Context, text string) (*Result, error) {
	return passThrough(text, map[string]interface{}{"analysisOnly": true}), nil
}

var (
	_ Sanitizer = (*PIISanitizer)(nil)
	_ Sanitizer = Noop{}
)
