package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope of spans created by this module
const TracerName = "github.com/stacklok/toolhive-mime-registry"

// Attribute keys shared by sync spans
const (
	AttrSourceName   = attribute.Key("source.name")
	AttrSourceFormat = attribute.Key("source.format")
	AttrSyncForce    = attribute.Key("sync.force")
	AttrSyncOutcome  = attribute.Key("sync.outcome")
	AttrDeltaCount   = attribute.Key("delta.count")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a
// no-op span. The no-op span is never the span already carried by ctx, so
// ending it leaves the caller's span open.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, noop.Span{}
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks the span as failed.
// The status description stays generic; details live in the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
