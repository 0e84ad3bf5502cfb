package sanitize

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

const credentialType = "CREDENTIAL"

// Allowlist holds content patterns that are never reported as credentials.
type Allowlist struct {
	Regexes []string
}

// LoadAllowlist reads a gitleaks-style TOML allowlist:
//
//	[allowlist]
//	regexes = ['''example-key-\d+''']
//
// A missing file yields an empty allowlist.
func LoadAllowlist(path string) (*Allowlist, error) {
	if path == "" {
		return &Allowlist{}, nil
	}
	var doc struct {
		Allowlist struct {
			Regexes []string
		}
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Allowlist{}, nil
		}
		return nil, fmt.Errorf("%w: allowlist %s: %v", ErrInvalidConfig, path, err)
	}
	for _, pattern := range doc.Allowlist.Regexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: allowlist regex %q: %v", ErrInvalidConfig, pattern, err)
		}
	}
	return &Allowlist{Regexes: doc.Allowlist.Regexes}, nil
}

// credentialDetector finds secrets with the default gitleaks rule set.
type credentialDetector struct {
	detector *detect.Detector
}

func newCredentialDetector(allowlist *Allowlist) (*credentialDetector, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("loading gitleaks rules: %w", err)
	}
	if allowlist != nil && len(allowlist.Regexes) > 0 {
		extra := &gitleaksConfig.Allowlist{Description: "ragcore allowlist"}
		for _, pattern := range allowlist.Regexes {
			extra.Regexes = append(extra.Regexes, (*gitleaksRegexp.Regexp)(regexp.MustCompile(pattern)))
		}
		detector.Config.Allowlists = append(detector.Config.Allowlists, extra)
	}
	return &credentialDetector{detector: detector}, nil
}

// spans returns the byte ranges of every secret gitleaks reports. Findings
// carry the secret rather than byte offsets, so each secret is located in
// text directly.
func (c *credentialDetector) spans(text string) [][2]int {
	var out [][2]int
	seen := make(map[string]bool)
	for _, f := range c.detector.DetectString(text) {
		secret := f.Secret
		if secret == "" {
			secret = f.Match
		}
		if secret == "" || seen[secret] {
			continue
		}
		seen[secret] = true
		for offset := 0; ; {
			i := strings.Index(text[offset:], secret)
			if i < 0 {
				break
			}
			start := offset + i
			out = append(out, [2]int{start, start + len(secret)})
			offset = start + len(secret)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
