package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestMetrics(t *testing.T) (*HTTPMetrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := &HTTPMetrics{
		meter:  mp.Meter(httpInstrumentationName),
		logger: zap.NewNop(),
	}
	m.init()
	return m, reader
}

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	m, reader := newTestMetrics(t)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/v1/vectors/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
	})

	for _, path := range []string{"/health", "/v1/vectors/a", "/v1/vectors/b"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			found[md.Name] = true
			switch md.Name {
			case "ragcore.http.requests_total":
				sum, ok := md.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				byEndpoint := map[string]int64{}
				for _, dp := range sum.DataPoints {
					endpoint, _ := dp.Attributes.Value(attribute.Key("endpoint"))
					byEndpoint[endpoint.AsString()] += dp.Value
				}
				assert.Equal(t, map[string]int64{"/health": 1, "/v1/vectors/:id": 2}, byEndpoint)
			case "ragcore.http.request_duration_seconds":
				hist, ok := md.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				var total uint64
				for _, dp := range hist.DataPoints {
					total += dp.Count
				}
				assert.Equal(t, uint64(3), total)
			}
		}
	}

	assert.True(t, found["ragcore.http.requests_total"], "requests counter not found")
	assert.True(t, found["ragcore.http.request_duration_seconds"], "duration histogram not found")
	assert.True(t, found["ragcore.http.response_size_bytes"], "response size histogram not found")
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unmatched"},
		{"/health", "/health"},
		{"/v1/vectors/:id", "/v1/vectors/:id"},
		{"/v1/documents/:type/:id", "/v1/documents/:type/:id"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizePath(tt.input), tt.input)
	}
}

func TestHTTPMetrics_RecordAPIError(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordAPIError(ctx, "embedding", "unavailable")
	m.RecordAPIError(ctx, "embedding", "unavailable")
	m.RecordAPIError(ctx, "store", "validation")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	got := map[string]int64{}
	for _, md := range rm.ScopeMetrics[0].Metrics {
		if md.Name != "ragcore.http.api_errors_total" {
			continue
		}
		for _, dp := range md.Data.(metricdata.Sum[int64]).DataPoints {
			op, _ := dp.Attributes.Value("operation")
			class, _ := dp.Attributes.Value("class")
			got[op.AsString()+"/"+class.AsString()] += dp.Value
		}
	}
	assert.Equal(t, map[string]int64{"embedding/unavailable": 2, "store/validation": 1}, got)
}
