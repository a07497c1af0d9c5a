package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name used for every gateway span.
const TracerName = "github.com/teemow/safegate"

// Span attribute keys.
const (
	SpanAttrAPI            = "safegate.api"
	SpanAttrOperation      = "safegate.operation"
	SpanAttrResourceID     = "safegate.resource_id"
	SpanAttrSession        = "safegate.session"
	SpanAttrBackend        = "safegate.backend"
	SpanAttrUpstreamStatus = "safegate.upstream_status"
)

// SpanAttributeBuilder helps construct span attributes with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 6),
	}
}

// WithOperation adds the API and operation attributes.
func (b *SpanAttributeBuilder) WithOperation(api, operation string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs,
		attribute.String(SpanAttrAPI, api),
		attribute.String(SpanAttrOperation, operation),
	)
	return b
}

// WithResource adds the resource id attribute when non-empty.
func (b *SpanAttributeBuilder) WithResource(id string) *SpanAttributeBuilder {
	if id != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrResourceID, id))
	}
	return b
}

// WithSession adds an already anonymized session identifier.
func (b *SpanAttributeBuilder) WithSession(hash string) *SpanAttributeBuilder {
	if hash != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrSession, hash))
	}
	return b
}

// WithBackend adds the dispatch backend name.
func (b *SpanAttributeBuilder) WithBackend(name string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrBackend, name))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// The caller ends it with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartUpstreamSpan starts a client span named "upstream.<api>.<operation>".
func StartUpstreamSpan(ctx context.Context, api, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append(NewSpanAttributeBuilder().WithOperation(api, operation).Build(), attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "upstream."+api+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID of the span in ctx, or "" without a valid span.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID of the span in ctx, or "" without a valid span.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
