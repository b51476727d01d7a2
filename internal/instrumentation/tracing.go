package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every gmailer span.
const TracerName = "github.com/teemow/gmailer"

// Span attribute keys.
const (
	SpanAttrService      = "google.service"
	SpanAttrOperation    = "google.operation"
	SpanAttrMessageID    = "gmail.message_id"
	SpanAttrMessageCount = "gmail.message_count"
	SpanAttrGrantType    = "oauth.grant_type"
)

// SpanAttributeBuilder collects span attributes under the keys above.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates an empty SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{}
}

// WithMessageID adds the message id. Empty ids are skipped.
func (b *SpanAttributeBuilder) WithMessageID(id string) *SpanAttributeBuilder {
	if id != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrMessageID, id))
	}
	return b
}

// WithMessageCount adds the number of messages a batch call touches.
func (b *SpanAttributeBuilder) WithMessageCount(n int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrMessageCount, n))
	return b
}

// WithGrantType adds the grant_type sent to the OAuth token endpoint.
func (b *SpanAttributeBuilder) WithGrantType(grantType string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrGrantType, grantType))
	return b
}

// Build returns the collected attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartCallSpan starts a client span named "google.<service>.<operation>"
// from the global tracer provider.
func StartCallSpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)

	return otel.Tracer(TracerName).Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan sets the span status from err and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds a named event to span.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// TraceID returns the trace id of the span in ctx, or "" if there is none.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
