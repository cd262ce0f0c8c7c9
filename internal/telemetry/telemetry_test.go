package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/vezlo/ai-validator/internal/config"
	"github.com/vezlo/ai-validator/internal/logging"
)

type recordingLogExporter struct {
	mu     sync.Mutex
	bodies []string
}

func (e *recordingLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.bodies = append(e.bodies, r.Body().AsString())
	}
	return nil
}

func (e *recordingLogExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingLogExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingLogExporter) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...)
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.Nil(t, tel.LoggerProvider())
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.Equal(t, HealthStatus{Reason: "shut down"}, tel.Health())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""

	tel, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestNew_WithInMemoryExporter(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.MetricsEnabled = false
	cfg.LogsEnabled = false
	exp := tracetest.NewInMemoryExporter()

	tel, err := New(context.Background(), cfg, WithTraceExporter(exp))
	require.NoError(t, err)
	assert.True(t, tel.Health().Healthy)

	_, span := tel.Tracer("test").Start(context.Background(), "validator.Validate")
	span.End()
	require.NoError(t, tel.tracerProvider.ForceFlush(context.Background()))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "validator.Validate", spans[0].Name)

	require.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.Health().Healthy)
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		_ = tel.Tracer("test")
		_ = tel.Meter("test")
		assert.Nil(t, tel.LoggerProvider())
		_ = tel.Shutdown(context.Background())
	})
	assert.Equal(t, HealthStatus{Degraded: true}, tel.Health())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"disabled skips checks", func(c *Config) { c.Endpoint = "" }, ""},
		{"local insecure", func(c *Config) { c.Enabled = true }, ""},
		{"remote insecure", func(c *Config) {
			c.Enabled = true
			c.Endpoint = "otel.example.com:4317"
		}, "insecure connections"},
		{"remote tls", func(c *Config) {
			c.Enabled = true
			c.Endpoint = "https://otel.example.com:4318"
			c.Protocol = ProtocolHTTP
			c.Insecure = false
		}, ""},
		{"bad protocol", func(c *Config) {
			c.Enabled = true
			c.Protocol = "udp"
		}, "protocol"},
		{"bad sampling", func(c *Config) {
			c.Enabled = true
			c.SamplingRate = 2
		}, "sampling rate"},
		{"zero export interval", func(c *Config) {
			c.Enabled = true
			c.ExportInterval = 0
		}, "export interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	tests := map[string]bool{
		"localhost:4317":        true,
		"127.0.0.1:4317":        true,
		"[::1]:4317":            true,
		"http://localhost:4318": true,
		"collector:4317":        false,
		"10.0.0.5:4317":         false,
	}
	for endpoint, want := range tests {
		assert.Equal(t, want, isLocalEndpoint(endpoint), endpoint)
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.TelemetryConfig{
		Enabled:     true,
		Endpoint:    "localhost:4318",
		Protocol:    ProtocolHTTP,
		Insecure:    true,
		ServiceName: "validator-test",
	}, "1.2.3")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "localhost:4318", cfg.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, "validator-test", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.NoError(t, cfg.Validate())
}

func TestTestTelemetry_Recording(t *testing.T) {
	tt := NewTestTelemetry()
	ctx := context.Background()

	_, span := tt.Tracer("test").Start(ctx, "validator.check.accuracy")
	span.SetAttributes(attribute.String("check", "accuracy"), attribute.Bool("failed", false))
	span.End()

	tt.AssertSpanExists(t, "validator.check.accuracy")
	tt.AssertSpanAttribute(t, "validator.check.accuracy", "check", "accuracy")
	tt.AssertSpanAttribute(t, "validator.check.accuracy", "failed", false)

	hist, err := tt.Meter("test").Float64Histogram("aivalidator.validate.duration")
	require.NoError(t, err)
	hist.Record(ctx, 0.25)
	assert.True(t, tt.HasMetric(ctx, "aivalidator.validate.duration"))
	assert.False(t, tt.HasMetric(ctx, "missing"))
}

func TestNew_LogsFlowThroughZapBridge(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.MetricsEnabled = false
	exp := &recordingLogExporter{}

	tel, err := New(context.Background(), cfg,
		WithTraceExporter(tracetest.NewInMemoryExporter()),
		WithLogExporter(exp),
	)
	require.NoError(t, err)
	require.NotNil(t, tel.LoggerProvider())

	logger, err := logging.NewLogger(logging.NewDefaultConfig(), tel.LoggerProvider())
	require.NoError(t, err)
	logger.Warn(context.Background(), "grader fallback", zap.String("check", "context"))

	require.NoError(t, tel.loggerProvider.ForceFlush(context.Background()))
	assert.Equal(t, []string{"grader fallback"}, exp.all())
	require.NoError(t, tel.Shutdown(context.Background()))
}
