package instrumentation

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
)

// Config selects the exporters used by a Provider.
type Config struct {
	// ServiceName and ServiceVersion end up on the otel resource.
	ServiceName    string
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname.
	ServiceInstanceID string

	// Enabled turns metrics and tracing on (INSTRUMENTATION_ENABLED, default true).
	Enabled bool

	// MetricsExporter is one of prometheus, otlp, stdout (default prometheus).
	MetricsExporter string

	// TracingExporter is one of otlp, stdout, none (default none).
	TracingExporter string

	// OTLPEndpoint is host:port of an OTLP/HTTP collector, without scheme.
	OTLPEndpoint string
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio sampler argument, 0.0 to 1.0.
	TraceSamplingRate float64

	// MetricsTextfile is where the prometheus registry is written when the
	// command finishes, in node-exporter textfile format. Empty disables it.
	MetricsTextfile string

	// ExportOutput receives the stdout exporters' output. Defaults to stderr.
	ExportOutput io.Writer
}

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterOTLP, ExporterStdout, ExporterNone}
)

// DefaultConfig reads the instrumentation settings from the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", "gmailer"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: envString("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           envBool("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   envString("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: envFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
		MetricsTextfile:   envString("METRICS_TEXTFILE", ""),
	}
}

// Validate checks exporter names and their required settings.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}
	if c.MetricsExporter != "" && !slices.Contains(metricsExporters, c.MetricsExporter) {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	if c.TracingExporter != "" && !slices.Contains(tracingExporters, c.TracingExporter) {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}
	if c.OTLPEndpoint == "" && (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) {
		return fmt.Errorf("OTLP endpoint is required when using an OTLP exporter")
	}
	if c.MetricsTextfile != "" && c.MetricsExporter != "" && c.MetricsExporter != ExporterPrometheus {
		return fmt.Errorf("metrics textfile requires the prometheus exporter, got %q", c.MetricsExporter)
	}
	return nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// envBool and envFloat fall back to def when the value does not parse.
func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(envString(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(envString(key, ""), 64)
	if err != nil {
		return def
	}
	return v
}

// Metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"

	ServiceGmail = "gmail"
	ServiceOAuth = "oauth"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Operation names used for spans and metric labels.
const (
	OperationSend          = "send"
	OperationList          = "list"
	OperationGet           = "get"
	OperationModify        = "modify"
	OperationBatchDelete   = "batch_delete"
	OperationGetAttachment = "get_attachment"
	OperationRefresh       = "refresh"
	OperationExchange      = "exchange"
)
