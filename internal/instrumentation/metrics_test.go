package instrumentation

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func counterValue(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()

	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", data)
	}
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestMetrics_RecordGmailOperation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGmailOperation(ctx, OperationList, StatusSuccess, 200*time.Millisecond)
	m.RecordGmailOperation(ctx, OperationList, StatusSuccess, 100*time.Millisecond)
	m.RecordGmailOperation(ctx, OperationSend, StatusError, 500*time.Millisecond)

	data := collect(t, reader)

	got := counterValue(t, data["gmail_api_operations_total"],
		attribute.String(attrService, ServiceGmail),
		attribute.String(attrOperation, OperationList),
		attribute.String(attrStatus, StatusSuccess),
	)
	if got != 2 {
		t.Errorf("expected 2 successful list operations, got %d", got)
	}

	got = counterValue(t, data["gmail_api_operations_total"],
		attribute.String(attrService, ServiceGmail),
		attribute.String(attrOperation, OperationSend),
		attribute.String(attrStatus, StatusError),
	)
	if got != 1 {
		t.Errorf("expected 1 failed send operation, got %d", got)
	}

	hist, ok := data["gmail_api_operation_duration_seconds"].(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", data["gmail_api_operation_duration_seconds"])
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("expected 3 duration samples, got %d", count)
	}
}

func TestMetrics_RecordOAuth(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	m.RecordOAuthCodeExchange(ctx, OAuthResultSuccess)

	data := collect(t, reader)

	if got := counterValue(t, data["oauth_token_refresh_total"], attribute.String(attrResult, OAuthResultSuccess)); got != 2 {
		t.Errorf("expected 2 successful refreshes, got %d", got)
	}
	if got := counterValue(t, data["oauth_token_refresh_total"], attribute.String(attrResult, OAuthResultFailure)); got != 1 {
		t.Errorf("expected 1 failed refresh, got %d", got)
	}
	if got := counterValue(t, data["oauth_code_exchange_total"], attribute.String(attrResult, OAuthResultSuccess)); got != 1 {
		t.Errorf("expected 1 code exchange, got %d", got)
	}
}

func TestMetrics_RecordAttachmentSkipped(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordAttachmentSkipped(context.Background())

	data := collect(t, reader)
	if got := counterValue(t, data["mail_attachments_skipped_total"]); got != 1 {
		t.Errorf("expected 1 skipped attachment, got %d", got)
	}
}

func TestMetrics_NoOp(t *testing.T) {
	ctx := context.Background()

	// All these should not panic with zero or nil recorders
	for _, m := range []*Metrics{{}, nil} {
		m.RecordGmailOperation(ctx, OperationList, StatusSuccess, 200*time.Millisecond)
		m.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
		m.RecordOAuthCodeExchange(ctx, OAuthResultFailure)
		m.RecordAttachmentSkipped(ctx)
	}
}
