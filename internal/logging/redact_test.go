package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encodeEntry(t *testing.T, enc zapcore.Encoder, fields ...zap.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "msg", Time: time.Unix(0, 0)}, fields)
	require.NoError(t, err)
	defer buf.Free()
	return buf.String()
}

func TestRedactingEncoder(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	tests := []struct {
		name     string
		field    zap.Field
		contains string
		absent   string
	}{
		{"sensitive key", zap.String("api_key", "sk-abc"), `"api_key":"[REDACTED]"`, "sk-abc"},
		{"case insensitive key", zap.String("Password", "hunter2"), `"Password":"[REDACTED]"`, "hunter2"},
		{"value pattern", zap.String("header", "Bearer abc.def"), `"header":"[REDACTED:pattern]"`, "abc.def"},
		{"plain field", zap.String("query", "red shoes"), `"query":"red shoes"`, ""},
		{"reflected", zap.Any("secret", map[string]string{"k": "v"}), `"secret":"[REDACTED]"`, `"k"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := encodeEntry(t, enc.Clone(), tt.field)
			assert.Contains(t, out, tt.contains)
			if tt.absent != "" {
				assert.NotContains(t, out, tt.absent)
			}
		})
	}
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{Enabled: false})
	require.NoError(t, err)

	out := encodeEntry(t, enc, zap.String("password", "visible"))
	assert.Contains(t, out, "visible")
}

func TestRedactingEncoder_InvalidPattern(t *testing.T) {
	_, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{Enabled: true, Patterns: []string{"("}})
	assert.Error(t, err)
}

func TestRedactedString(t *testing.T) {
	f := RedactedString("token", "abcdef")
	assert.Equal(t, "[REDACTED:6]", f.String)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad format", func(c *Config) { c.Format = "text" }, true},
		{"no output", func(c *Config) { c.Output = OutputConfig{} }, true},
		{"zero tick", func(c *Config) { c.Sampling.Tick = 0 }, true},
		{"negative skip", func(c *Config) { c.Caller.Skip = -1 }, true},
		{"empty field value", func(c *Config) { c.Fields["env"] = "" }, true},
		{"bad pattern", func(c *Config) { c.Redaction.Patterns = []string{"[a-"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
