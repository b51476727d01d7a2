// Package instrumentation provides OpenTelemetry metrics and tracing for gmailer.
//
// # Metrics
//
// Gmail API Metrics:
//   - gmail_api_operations_total: Counter of Gmail API operations by service, operation, status
//   - gmail_api_operation_duration_seconds: Histogram of Gmail API operation durations
//
// OAuth Metrics:
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//   - oauth_code_exchange_total: Counter of authorization code exchanges by result
//
// Message Builder Metrics:
//   - mail_attachments_skipped_total: Counter of attachment paths that did not exist
//
// # Tracing
//
// Client spans are created for every Gmail call (google.gmail.<operation>)
// and every token endpoint call (google.oauth.<operation>).
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: gmailer)
//   - METRICS_TEXTFILE: Prometheus textfile written when a command exits
//
// A CLI run is too short-lived to be scraped, so the prometheus exporter
// registers with a private registry that WriteMetricsTextfile dumps for the
// node-exporter textfile collector.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordGmailOperation(ctx, instrumentation.OperationList, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
