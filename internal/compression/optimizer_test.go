package compression

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/ragcore/internal/generator"
	"github.com/fyrsmithlabs/ragcore/internal/logging"
)

func passages(n int) []Passage {
	out := make([]Passage, n)
	for i := range out {
		out[i] = Passage{Content: string(rune('a' + i)), Score: float64(i) / 10}
	}
	return out
}

func newTestOptimizer(t *testing.T, gen generator.Generator, opts ...Option) (*Optimizer, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	o, err := NewOptimizer(gen, append(opts, WithMeterProvider(mp))...)
	require.NoError(t, err)
	return o, reader
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelMedium, ParseLevel(""))
	assert.Equal(t, LevelMedium, ParseLevel("Medium"))
	assert.Equal(t, LevelHigh, ParseLevel("high"))
	assert.Equal(t, LevelLow, ParseLevel("low"))
	assert.Equal(t, LevelLow, ParseLevel("extreme"))
}

func TestOptimize_Empty(t *testing.T) {
	o, _ := newTestOptimizer(t, nil)
	for _, level := range []Level{LevelLow, LevelMedium, LevelHigh} {
		assert.Equal(t, "", o.Optimize(context.Background(), nil, level))
	}
}

func TestOptimize_Low(t *testing.T) {
	o, _ := newTestOptimizer(t, nil)
	assert.Equal(t, "a\n\nb\n\nc", o.Optimize(context.Background(), passages(3), LevelLow))
}

func TestOptimize_Medium(t *testing.T) {
	o, _ := newTestOptimizer(t, nil)

	// scores rise with the letter, so the top five are g..c
	got := o.Optimize(context.Background(), passages(7), LevelMedium)
	assert.Equal(t, "g\n\nf\n\ne\n\nd\n\nc", got)

	ties := []Passage{{Content: "x", Score: 0.5}, {Content: "y", Score: 0.5}, {Content: "z", Score: 0.9}}
	assert.Equal(t, "z\n\nx\n\ny", o.Optimize(context.Background(), ties, LevelMedium))
}

func TestOptimize_MediumDocsOption(t *testing.T) {
	o, _ := newTestOptimizer(t, nil, WithMediumDocs(2))
	assert.Equal(t, "g\n\nf", o.Optimize(context.Background(), passages(7), LevelMedium))
}

func TestOptimize_High(t *testing.T) {
	var prompt string
	gen := generator.Func(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "tight context", nil
	})
	o, reader := newTestOptimizer(t, gen)

	got := o.Optimize(context.Background(), passages(2), LevelHigh)
	assert.Equal(t, "tight context", got)
	assert.True(t, strings.HasPrefix(prompt, "Optimize this context for better AI generation. Remove redundancy, improve clarity, and maintain key information:\n\n"))
	assert.True(t, strings.HasSuffix(prompt, "a\n\nb"))

	assert.Equal(t, int64(1), operationCount(t, reader, "ok"))
}

func TestOptimize_HighFallsBackToMedium(t *testing.T) {
	tests := []struct {
		name string
		gen  generator.Generator
	}{
		{"generator error", generator.Func(func(context.Context, string) (string, error) {
			return "", errors.New("llm down")
		})},
		{"empty output", generator.Func(func(context.Context, string) (string, error) {
			return "   ", nil
		})},
		{"no generator", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := logging.NewTestLogger()
			o, reader := newTestOptimizer(t, tt.gen, WithLogger(logger.Logger))

			got := o.Optimize(context.Background(), passages(7), LevelHigh)
			assert.Equal(t, "g\n\nf\n\ne\n\nd\n\nc", got)
			logger.AssertLogged(t, zapcore.WarnLevel, "context optimization failed")
			assert.Equal(t, int64(1), operationCount(t, reader, "fallback"))
		})
	}
}

func operationCount(t *testing.T, reader *sdkmetric.ManualReader, outcome string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "compression.operations_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value("outcome"); ok && v.AsString() == outcome {
					total += dp.Value
				}
			}
			return total
		}
	}
	return 0
}
