package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix is stripped from environment variables before mapping.
	EnvPrefix = "RAGCORE_"
)

// envSections lists config paths that environment variables may target.
// Longer entries win so that RAGCORE_VECTORSTORE_CHROMEM_PATH maps to
// vectorstore.chromem.path rather than vectorstore.chromem_path.
var envSections = []string{
	"logging",
	"logging_output",
	"logging_sampling",
	"embeddings",
	"vectorstore",
	"vectorstore_chromem",
	"vectorstore_qdrant",
	"entity_index",
	"generator",
	"pii",
	"rag",
	"server",
	"telemetry",
}

// Load reads configuration from an optional YAML file, then applies
// RAGCORE_-prefixed environment overrides.
//
// Precedence (highest to lowest):
//  1. Environment variables (RAGCORE_EMBEDDINGS_PROVIDER, ...)
//  2. YAML config file at path (skipped when path is empty)
//  3. Defaults
//
// The file must not be world-writable and must be smaller than 1MB.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// readConfigFile opens the file once and validates it through the same
// descriptor to avoid a TOCTOU race.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("config path is a directory")
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o002 != 0 {
		return fmt.Errorf("insecure config file permissions: %v (world-writable)", info.Mode().Perm())
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// envKey maps RAGCORE_SECTION_FIELD_NAME to section.field_name using the
// longest matching section in envSections.
//
//	RAGCORE_EMBEDDINGS_MODEL_PATH     -> embeddings.model_path
//	RAGCORE_VECTORSTORE_QDRANT_HOST   -> vectorstore.qdrant.host
//	RAGCORE_ENTITY_INDEX_ENABLED      -> entity_index.enabled
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))

	sections := sortedSections()
	for _, section := range sections {
		prefix := section + "_"
		if strings.HasPrefix(lower, prefix) {
			field := strings.TrimPrefix(lower, prefix)
			return sectionPath(section) + "." + field
		}
	}
	return lower
}

func sortedSections() []string {
	out := append([]string(nil), envSections...)
	sort.Slice(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// sectionPath turns a nested env section into its dotted koanf path.
func sectionPath(section string) string {
	switch section {
	case "logging_output":
		return "logging.output"
	case "logging_sampling":
		return "logging.sampling"
	case "vectorstore_chromem":
		return "vectorstore.chromem"
	case "vectorstore_qdrant":
		return "vectorstore.qdrant"
	default:
		return section
	}
}
