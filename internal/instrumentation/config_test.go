package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var instrumentationEnv = []string{
	"OTEL_SERVICE_NAME",
	"OTEL_SERVICE_INSTANCE_ID",
	"INSTRUMENTATION_ENABLED",
	"METRICS_EXPORTER",
	"TRACING_EXPORTER",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_EXPORTER_OTLP_INSECURE",
	"OTEL_TRACES_SAMPLER_ARG",
	"METRICS_TEXTFILE",
}

// clearEnv empties the instrumentation variables for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range instrumentationEnv {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	clearEnv(t)

	assert.Equal(t, Config{
		ServiceName:       "gmailer",
		ServiceVersion:    "unknown",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
	}, DefaultConfig())
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OTEL_SERVICE_NAME", "gmailer-cron")
	t.Setenv("OTEL_SERVICE_INSTANCE_ID", "host-1")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", ExporterStdout)
	t.Setenv("TRACING_EXPORTER", ExporterOTLP)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "1")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("METRICS_TEXTFILE", "/var/lib/node_exporter/gmailer.prom")

	assert.Equal(t, Config{
		ServiceName:       "gmailer-cron",
		ServiceVersion:    "unknown",
		ServiceInstanceID: "host-1",
		Enabled:           false,
		MetricsExporter:   ExporterStdout,
		TracingExporter:   ExporterOTLP,
		OTLPEndpoint:      "collector:4318",
		OTLPInsecure:      true,
		TraceSamplingRate: 0.5,
		MetricsTextfile:   "/var/lib/node_exporter/gmailer.prom",
	}, DefaultConfig())
}

func TestDefaultConfig_UnparsableValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("INSTRUMENTATION_ENABLED", "maybe")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "lots")

	config := DefaultConfig()
	assert.True(t, config.Enabled)
	assert.Equal(t, 0.1, config.TraceSamplingRate)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "prometheus without tracing",
			config: Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone},
		},
		{
			name:   "otlp tracing with endpoint",
			config: Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"},
		},
		{
			name:   "textfile with prometheus",
			config: Config{MetricsExporter: ExporterPrometheus, MetricsTextfile: "/tmp/gmailer.prom"},
		},
		{
			name:    "negative sampling rate",
			config:  Config{TraceSamplingRate: -0.5},
			wantErr: "sampling rate",
		},
		{
			name:    "sampling rate above one",
			config:  Config{TraceSamplingRate: 1.5},
			wantErr: "sampling rate",
		},
		{
			name:    "unknown metrics exporter",
			config:  Config{MetricsExporter: "invalid"},
			wantErr: "invalid metrics exporter",
		},
		{
			name:    "unknown tracing exporter",
			config:  Config{TracingExporter: "invalid"},
			wantErr: "invalid tracing exporter",
		},
		{
			name:    "otlp tracing without endpoint",
			config:  Config{TracingExporter: ExporterOTLP},
			wantErr: "OTLP endpoint is required",
		},
		{
			name:    "otlp metrics without endpoint",
			config:  Config{MetricsExporter: ExporterOTLP},
			wantErr: "OTLP endpoint is required",
		},
		{
			name:    "textfile with stdout exporter",
			config:  Config{MetricsExporter: ExporterStdout, MetricsTextfile: "/tmp/gmailer.prom"},
			wantErr: "requires the prometheus exporter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
