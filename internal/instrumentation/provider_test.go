package instrumentation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func newTestProvider(t *testing.T, config Config) *Provider {
	t.Helper()

	if config.ServiceName == "" {
		config.ServiceName = "gmailer-test"
	}
	config.ServiceVersion = "1.0.0"

	p, err := NewProvider(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}

func TestNewProvider_Disabled(t *testing.T) {
	p := newTestProvider(t, Config{Enabled: false})

	assert.False(t, p.Enabled())
	assert.Nil(t, p.registry)
	assert.Nil(t, p.tracerProvider)

	// The zero recorder accepts calls.
	require.NotNil(t, p.Metrics())
	p.Metrics().RecordGmailOperation(context.Background(), OperationList, StatusSuccess, time.Millisecond)

	assert.NoError(t, p.WriteMetricsTextfile(filepath.Join(t.TempDir(), "gmailer.prom")))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Prometheus(t *testing.T) {
	p := newTestProvider(t, Config{
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})

	assert.True(t, p.Enabled())
	require.NotNil(t, p.registry)

	p.Metrics().RecordGmailOperation(context.Background(), OperationSend, StatusSuccess, 250*time.Millisecond)

	families, err := p.registry.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "gmail_api_operations_total")

	// Tracing is off.
	assert.Nil(t, p.tracerProvider)
}

func TestNewProvider_StdoutWritesToExportOutput(t *testing.T) {
	var out bytes.Buffer
	config := Config{
		ServiceName:       "gmailer-test",
		ServiceVersion:    "1.0.0",
		Enabled:           true,
		MetricsExporter:   ExporterStdout,
		TracingExporter:   ExporterStdout,
		TraceSamplingRate: 1.0,
		ExportOutput:      &out,
	}

	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx := context.Background()
	p, err := NewProvider(ctx, config)
	require.NoError(t, err)
	assert.Nil(t, p.registry)

	// Call spans go through the global tracer provider installed above.
	_, span := StartCallSpan(ctx, ServiceGmail, OperationList)
	EndSpan(span, nil)
	p.Metrics().RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)

	require.NoError(t, p.Shutdown(ctx))

	assert.Contains(t, out.String(), "google.gmail.list")
	assert.Contains(t, out.String(), "oauth_token_refresh_total")
}

func TestNewProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "unknown metrics exporter",
			config:  Config{Enabled: true, MetricsExporter: "statsd"},
			wantErr: "unsupported metrics exporter: statsd",
		},
		{
			name:    "unknown tracing exporter",
			config:  Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: "jaeger"},
			wantErr: "unsupported tracing exporter: jaeger",
		},
		{
			name:    "otlp metrics without endpoint",
			config:  Config{Enabled: true, MetricsExporter: ExporterOTLP},
			wantErr: "OTLP endpoint is required",
		},
		{
			name:    "otlp tracing without endpoint",
			config:  Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: ExporterOTLP},
			wantErr: "failed to initialize tracer provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.ServiceName = "gmailer-test"
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProvider_WriteMetricsTextfile(t *testing.T) {
	p := newTestProvider(t, Config{
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
	})

	ctx := context.Background()
	p.Metrics().RecordGmailOperation(ctx, OperationList, StatusSuccess, 100*time.Millisecond)
	p.Metrics().RecordGmailOperation(ctx, OperationGet, StatusError, 100*time.Millisecond)
	p.Metrics().RecordAttachmentSkipped(ctx)

	path := filepath.Join(t.TempDir(), "gmailer.prom")
	require.NoError(t, p.WriteMetricsTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "gmail_api_operations_total")
	assert.Contains(t, content, `operation="list"`)
	assert.Contains(t, content, `status="error"`)
	assert.Contains(t, content, "mail_attachments_skipped_total")

	t.Run("empty path is a no-op", func(t *testing.T) {
		assert.NoError(t, p.WriteMetricsTextfile(""))
	})

	t.Run("unwritable directory", func(t *testing.T) {
		err := p.WriteMetricsTextfile(filepath.Join(t.TempDir(), "missing", "gmailer.prom"))
		assert.ErrorContains(t, err, "failed to write metrics textfile")
	})
}
