package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/vezlo/ai-validator/internal/logging"
	"github.com/vezlo/ai-validator/internal/telemetry"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))

	m := NewHTTPMetrics(mp.Meter(httpInstrumentationName), nil)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/api/v1/validate", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	})

	for _, r := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/health", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/validate", nil),
	} {
		e.ServeHTTP(httptest.NewRecorder(), r)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	statuses := map[string]int64{}
	var durations uint64
	foundSize := false
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch md.Name {
			case "aivalidator.http.requests_total":
				sum, ok := md.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					endpoint, _ := dp.Attributes.Value("endpoint")
					status, _ := dp.Attributes.Value("status")
					statuses[endpoint.AsString()+" "+status.Emit()] += dp.Value
				}
			case "aivalidator.http.request_duration_seconds":
				hist, ok := md.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				for _, dp := range hist.DataPoints {
					durations += dp.Count
				}
			case "aivalidator.http.response_size_bytes":
				foundSize = true
			}
		}
	}

	assert.Equal(t, map[string]int64{
		"/health 200":          1,
		"/api/v1/validate 400": 1,
	}, statuses)
	assert.Equal(t, uint64(2), durations)
	assert.True(t, foundSize, "response size histogram not found")
}

func TestServer_RecordsHTTPMetricsWithTelemetry(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	server, err := NewServer(&fakeValidator{result: passResult}, logging.NewNop(), nil, WithTelemetry(tt.Telemetry))
	require.NoError(t, err)

	serve(server, http.MethodGet, "/health", "")

	assert.True(t, tt.HasMetric(context.Background(), "aivalidator.http.requests_total"))
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "/unmatched"},
		{"/health", "/health"},
		{"/api/v1/validate", "/api/v1/validate"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizePath(tt.input))
	}
}
