package compression

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragcore/internal/generator"
	"github.com/fyrsmithlabs/ragcore/internal/logging"
)

const (
	tracerName = "github.com/fyrsmithlabs/ragcore/internal/compression"
	meterName  = "compression"

	// DefaultMediumDocs is how many passages the medium level keeps.
	DefaultMediumDocs = 5

	passageSeparator = "\n\n"
	optimizePrompt   = "Optimize this context for better AI generation. Remove redundancy, improve clarity, and maintain key information:\n\n"
)

// Optimizer reduces a passage list to a single context string.
type Optimizer struct {
	generator  generator.Generator
	mediumDocs int
	logger     *logging.Logger

	tracer trace.Tracer
	meter  metric.Meter

	operations metric.Int64Counter
	duration   metric.Float64Histogram
	ratio      metric.Float64Histogram
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithMediumDocs overrides how many passages the medium level keeps.
func WithMediumDocs(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.mediumDocs = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeterProvider records metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Optimizer) {
		if mp != nil {
			o.meter = mp.Meter(meterName)
		}
	}
}

// NewOptimizer creates an Optimizer. gen may be nil, in which case the
// high level always degrades to medium.
func NewOptimizer(gen generator.Generator, opts ...Option) (*Optimizer, error) {
	o := &Optimizer{
		generator:  gen,
		mediumDocs: DefaultMediumDocs,
		logger:     logging.NewNop(),
		tracer:     otel.Tracer(tracerName),
		meter:      otel.Meter(meterName),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named("compression")

	if err := o.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return o, nil
}

// Optimize builds the context string for passages at level. An empty
// passage list yields "".
func (o *Optimizer) Optimize(ctx context.Context, passages []Passage, level Level) string {
	if len(passages) == 0 {
		return ""
	}

	ctx, span := o.tracer.Start(ctx, "compression.optimize",
		trace.WithAttributes(
			attribute.String("level", string(level)),
			attribute.Int("passages", len(passages)),
		),
	)
	defer span.End()

	start := time.Now()
	outcome := "ok"

	var out string
	switch level {
	case LevelHigh:
		var err error
		out, err = o.high(ctx, passages)
		if err != nil {
			span.RecordError(err)
			o.logger.Warn(ctx, "high-level context optimization failed", zap.Error(err))
			outcome = "fallback"
			out = o.medium(passages)
		}
	case LevelMedium:
		out = o.medium(passages)
	default:
		out = join(passages)
	}

	inputLen := 0
	for _, p := range passages {
		inputLen += len(p.Content)
	}
	attrs := metric.WithAttributes(attribute.String("level", string(level)))
	o.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("level", string(level)),
		attribute.String("outcome", outcome),
	))
	o.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	if len(out) > 0 {
		o.ratio.Record(ctx, float64(inputLen)/float64(len(out)), attrs)
	}

	span.SetAttributes(
		attribute.String("outcome", outcome),
		attribute.Int("input_length", inputLen),
		attribute.Int("output_length", len(out)),
	)
	return out
}

func (o *Optimizer) high(ctx context.Context, passages []Passage) (string, error) {
	if o.generator == nil {
		return "", fmt.Errorf("%w: no generator configured", generator.ErrGeneration)
	}
	out, err := o.generator.Generate(ctx, optimizePrompt+join(passages))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: empty optimization result", generator.ErrGeneration)
	}
	return out, nil
}

func (o *Optimizer) medium(passages []Passage) string {
	sorted := make([]Passage, len(passages))
	copy(sorted, passages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if len(sorted) > o.mediumDocs {
		sorted = sorted[:o.mediumDocs]
	}
	return join(sorted)
}

func join(passages []Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Content
	}
	return strings.Join(parts, passageSeparator)
}

func (o *Optimizer) initMetrics() error {
	var err error

	o.operations, err = o.meter.Int64Counter(
		"compression.operations_total",
		metric.WithDescription("Total number of context optimizations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create operations counter: %w", err)
	}

	o.duration, err = o.meter.Float64Histogram(
		"compression.duration_seconds",
		metric.WithDescription("Time spent optimizing context"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	o.ratio, err = o.meter.Float64Histogram(
		"compression.ratio",
		metric.WithDescription("Input length over optimized length"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(1.0, 1.5, 2.0, 3.0, 5.0, 10.0, 20.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create ratio histogram: %w", err)
	}
	return nil
}
