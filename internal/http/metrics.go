package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/ragcore/internal/http"

// HTTPMetrics records per-route request metrics and API error classes.
type HTTPMetrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	requestsTotal  metric.Int64Counter
	requestDur     metric.Float64Histogram
	responseSize   metric.Int64Histogram
	activeRequests metric.Int64UpDownCounter
	apiErrors      metric.Int64Counter
}

// NewHTTPMetrics registers the instruments on the global meter provider.
func NewHTTPMetrics(logger *zap.Logger) *HTTPMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &HTTPMetrics{
		meter:  otel.Meter(httpInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *HTTPMetrics) init() {
	var err error
	if m.requestsTotal, err = m.meter.Int64Counter("ragcore.http.requests_total",
		metric.WithDescription("HTTP requests by method, route template and status code"),
		metric.WithUnit("{request}"),
	); err != nil {
		m.logger.Warn("http request counter unavailable", zap.Error(err))
	}
	if m.requestDur, err = m.meter.Float64Histogram("ragcore.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency by method, route template and status code. Retrieval routes include embedding and generation time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	); err != nil {
		m.logger.Warn("http duration histogram unavailable", zap.Error(err))
	}
	if m.responseSize, err = m.meter.Int64Histogram("ragcore.http.response_size_bytes",
		metric.WithDescription("HTTP response body size. Embedding responses grow with batch size and dimension."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(100, 1000, 10000, 100000, 1000000, 10000000),
	); err != nil {
		m.logger.Warn("http response size histogram unavailable", zap.Error(err))
	}
	if m.activeRequests, err = m.meter.Int64UpDownCounter("ragcore.http.active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"),
	); err != nil {
		m.logger.Warn("http active request gauge unavailable", zap.Error(err))
	}
	if m.apiErrors, err = m.meter.Int64Counter("ragcore.http.api_errors_total",
		metric.WithDescription("Failed API operations by operation and class (validation, unavailable, not_found, internal)"),
		metric.WithUnit("{error}"),
	); err != nil {
		m.logger.Warn("http api error counter unavailable", zap.Error(err))
	}
}

// RecordAPIError counts one failed operation.
func (m *HTTPMetrics) RecordAPIError(ctx context.Context, op, class string) {
	if m.apiErrors == nil {
		return
	}
	m.apiErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("class", class),
	))
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()

			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, 1)
				defer m.activeRequests.Add(ctx, -1)
			}

			err := next(c)

			opt := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", normalizePath(c.Path())),
				attribute.Int("status", c.Response().Status),
			)
			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, opt)
			}
			if m.requestDur != nil {
				m.requestDur.Record(ctx, time.Since(start).Seconds(), opt)
			}
			if m.responseSize != nil {
				m.responseSize.Record(ctx, c.Response().Size, opt)
			}
			return err
		}
	}
}

// normalizePath labels a request by its route template, so parameterized
// routes like /v1/vectors/:id share one series. Requests that matched no
// route have no template.
func normalizePath(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}
