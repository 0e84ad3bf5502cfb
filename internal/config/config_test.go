package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "onnx", cfg.Embeddings.Provider)
	assert.Equal(t, 512, cfg.Embeddings.MaxSequenceLength)
	assert.Equal(t, "memory", cfg.VectorStore.Provider)
	assert.Equal(t, "none", cfg.Generator.Provider)
	assert.Equal(t, "PASS_THROUGH", cfg.PII.Mode)
	assert.Equal(t, 0.7, cfg.RAG.DefaultThreshold)
	assert.Equal(t, 5, cfg.RAG.MediumContextDocs)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.HTTPPort)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: console
embeddings:
  provider: tei
  dimension: 768
vectorstore:
  provider: chromem
  chromem:
    path: /tmp/ragcore-test
    compress: true
generator:
  provider: anthropic
  api_key: sk-test
  timeout: 30s
pii:
  enabled: true
  mode: REDACT
rag:
  default_threshold: 0.5
`, 0o600)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, zapcore.DebugLevel, cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Logging.Output.Stderr, "defaults survive partial sections")
	assert.Equal(t, "tei", cfg.Embeddings.Provider)
	assert.Equal(t, "http://localhost:8080", cfg.Embeddings.BaseURL)
	assert.Equal(t, 768, cfg.Embeddings.Dimension)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, "/tmp/ragcore-test", cfg.VectorStore.Chromem.Path)
	assert.True(t, cfg.VectorStore.Chromem.Compress)
	assert.Equal(t, "sk-test", cfg.Generator.APIKey.Value())
	assert.Equal(t, 30*time.Second, cfg.Generator.Timeout.Duration())
	assert.Equal(t, "REDACT", cfg.PII.Mode)
	assert.Equal(t, 0.5, cfg.RAG.DefaultThreshold)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "embeddings:\n  provider: tei\n", 0o600)

	t.Setenv("RAGCORE_EMBEDDINGS_PROVIDER", "fastembed")
	t.Setenv("RAGCORE_VECTORSTORE_QDRANT_HOST", "qdrant.internal")
	t.Setenv("RAGCORE_ENTITY_INDEX_ENABLED", "true")
	t.Setenv("RAGCORE_SERVER_HTTP_PORT", "8181")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
	assert.True(t, cfg.EntityIndex.Enabled)
	assert.Equal(t, 8181, cfg.Server.HTTPPort)
}

func TestLoad_RejectsWorldWritable(t *testing.T) {
	path := writeConfig(t, "rag:\n  default_limit: 3\n", 0o666)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "world-writable")
}

func TestLoad_RejectsOversizedFile(t *testing.T) {
	big := make([]byte, maxConfigFileSize+10)
	for i := range big {
		big[i] = '#'
	}
	path := writeConfig(t, string(big), 0o600)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"embeddings provider", func(c *Config) { c.Embeddings.Provider = "word2vec" }},
		{"sequence length", func(c *Config) { c.Embeddings.MaxSequenceLength = 1 }},
		{"store provider", func(c *Config) { c.VectorStore.Provider = "lucene" }},
		{"generator provider", func(c *Config) { c.Generator.Provider = "gpt" }},
		{"pii mode", func(c *Config) { c.PII.Mode = "ENCRYPT" }},
		{"threshold", func(c *Config) { c.RAG.DefaultThreshold = 1.5 }},
		{"port", func(c *Config) { c.Server.HTTPPort = 70000 }},
		{"logging", func(c *Config) { c.Logging.Format = "yaml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"RAGCORE_EMBEDDINGS_MODEL_PATH":      "embeddings.model_path",
		"RAGCORE_VECTORSTORE_PROVIDER":       "vectorstore.provider",
		"RAGCORE_VECTORSTORE_CHROMEM_PATH":   "vectorstore.chromem.path",
		"RAGCORE_LOGGING_OUTPUT_STDOUT":      "logging.output.stdout",
		"RAGCORE_PII_STORE_ENCRYPTED_ORIGINAL": "pii.store_encrypted_original",
		"RAGCORE_UNKNOWN":                    "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestSecret(t *testing.T) {
	s := Secret("hunter2")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "hunter2", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(struct{ Key Secret }{s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Key":"[REDACTED]"}`, string(data))

	assert.Equal(t, "", Secret("").String())
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())
	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
