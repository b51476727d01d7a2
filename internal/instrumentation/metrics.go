package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
)

// durationBuckets spans a fast metadata fetch up to a slow 25MB send.
var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics records gmailer's counters and histograms. A nil *Metrics and a
// zero Metrics both record nothing.
type Metrics struct {
	gmailCalls        metric.Int64Counter
	gmailCallDuration metric.Float64Histogram
	tokenRefreshes    metric.Int64Counter
	codeExchanges     metric.Int64Counter
	skippedAttachment metric.Int64Counter
}

// NewMetrics registers every instrument on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	counters := []struct {
		dst              *metric.Int64Counter
		name, desc, unit string
	}{
		{&m.gmailCalls, "gmail_api_operations_total", "Gmail API calls by operation and status", "{operation}"},
		{&m.tokenRefreshes, "oauth_token_refresh_total", "Access token refreshes by result", "{attempt}"},
		{&m.codeExchanges, "oauth_code_exchange_total", "Authorization code exchanges by result", "{attempt}"},
		{&m.skippedAttachment, "mail_attachments_skipped_total", "Attachment paths skipped because the file does not exist", "{attachment}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	var err error
	m.gmailCallDuration, err = meter.Float64Histogram("gmail_api_operation_duration_seconds",
		metric.WithDescription("Gmail API call duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_api_operation_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordGmailOperation counts one Gmail call and records its duration.
// status is StatusSuccess or StatusError.
func (m *Metrics) RecordGmailOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.gmailCalls == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String(attrService, ServiceGmail),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.gmailCalls.Add(ctx, 1, opt)
	m.gmailCallDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordOAuthTokenRefresh counts a refresh attempt. result is
// OAuthResultSuccess or OAuthResultFailure.
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil {
		return
	}
	addResult(ctx, m.tokenRefreshes, result)
}

// RecordOAuthCodeExchange counts an authorization code exchange.
func (m *Metrics) RecordOAuthCodeExchange(ctx context.Context, result string) {
	if m == nil {
		return
	}
	addResult(ctx, m.codeExchanges, result)
}

// RecordAttachmentSkipped counts an attachment path that did not exist.
func (m *Metrics) RecordAttachmentSkipped(ctx context.Context) {
	if m == nil || m.skippedAttachment == nil {
		return
	}
	m.skippedAttachment.Add(ctx, 1)
}

func addResult(ctx context.Context, c metric.Int64Counter, result string) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}
