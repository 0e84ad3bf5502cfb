package embeddings

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const embeddingsInstrumentationName = "github.com/fyrsmithlabs/ragcore/internal/embeddings"

// Metrics records latency, batch sizes and failures of embedding calls.
// Instruments that fail to register are left nil and skipped.
type Metrics struct {
	meter     metric.Meter
	logger    *zap.Logger
	duration  metric.Float64Histogram
	batchSize metric.Int64Histogram
	errors    metric.Int64Counter
}

// NewMetrics registers the instruments on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(embeddingsInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error
	if m.duration, err = m.meter.Float64Histogram("ragcore.embedding.generation_duration_seconds",
		metric.WithDescription("Embedding call latency by model and operation (embed, batch_embed)"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	); err != nil {
		m.logger.Warn("embedding duration histogram unavailable", zap.Error(err))
	}
	if m.batchSize, err = m.meter.Int64Histogram("ragcore.embedding.batch_size",
		metric.WithDescription("Texts per embedding call"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250, 500),
	); err != nil {
		m.logger.Warn("embedding batch size histogram unavailable", zap.Error(err))
	}
	if m.errors, err = m.meter.Int64Counter("ragcore.embedding.errors_total",
		metric.WithDescription("Failed embedding calls by model, operation and reason"),
		metric.WithUnit("{error}"),
	); err != nil {
		m.logger.Warn("embedding error counter unavailable", zap.Error(err))
	}
}

// RecordGeneration records one embedding call. Failed calls are also
// counted with a reason derived from the package's sentinel errors.
func (m *Metrics) RecordGeneration(ctx context.Context, model, operation string, duration time.Duration, batchSize int, err error) {
	opt := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", operation),
	)
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), opt)
	}
	if batchSize > 0 && m.batchSize != nil {
		m.batchSize.Record(ctx, int64(batchSize), opt)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, opt, metric.WithAttributes(attribute.String("reason", errorReason(err))))
	}
}

// errorReason buckets an embedding error for metric labels.
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "backend"
	}
}
