package embeddings

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestMetrics(t *testing.T) (*Metrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := &Metrics{
		meter:  mp.Meter(embeddingsInstrumentationName),
		logger: zap.NewNop(),
	}
	m.init()
	return m, reader
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetrics_RecordGeneration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGeneration(ctx, "bge-small", "batch_embed", 100*time.Millisecond, 10, nil)
	m.RecordGeneration(ctx, "bge-small", "embed", 50*time.Millisecond, 1, nil)
	m.RecordGeneration(ctx, "bge-small", "batch_embed", 25*time.Millisecond, 5, errors.New("boom"))
	m.RecordGeneration(ctx, "bge-small", "embed", time.Millisecond, 0, ErrProviderUnavailable)

	data := collect(t, reader)

	hist, ok := data["ragcore.embedding.generation_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok, "duration histogram missing")
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(4), count)
	assert.Len(t, hist.DataPoints, 2, "one series per operation")

	sizes, ok := data["ragcore.embedding.batch_size"].(metricdata.Histogram[int64])
	require.True(t, ok, "batch size histogram missing")
	count = 0
	for _, dp := range sizes.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)

	errs, ok := data["ragcore.embedding.errors_total"].(metricdata.Sum[int64])
	require.True(t, ok, "errors counter missing")
	byReason := map[string]int64{}
	for _, dp := range errs.DataPoints {
		reason, _ := dp.Attributes.Value("reason")
		byReason[reason.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"backend": 1, "unavailable": 1}, byReason)
}

func TestErrorReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrEmptyInput, "empty_input"},
		{fmt.Errorf("wrapped: %w", ErrProviderUnavailable), "unavailable"},
		{ErrFormat, "format"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("connection reset"), "backend"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorReason(tt.err), tt.err.Error())
	}
}

func TestNewMetrics_NilLogger(t *testing.T) {
	m := NewMetrics(nil)
	require.NotNil(t, m)
	m.RecordGeneration(context.Background(), "m", "embed", time.Millisecond, 1, nil)
}
