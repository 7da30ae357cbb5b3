package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for pipeline spans.
const TracerName = "housika-receipts"

// Span attribute keys used by the receipt pipeline.
const (
	SpanAttrReceiptNumber = "receipt.number"
	SpanAttrStage         = "receipt.stage"
	SpanAttrDegraded      = "receipt.degraded"
	SpanAttrReason        = "receipt.degraded_reason"
	SpanAttrRawBytes      = "receipt.raw_bytes"
	SpanAttrFinalBytes    = "receipt.final_bytes"
	SpanAttrAssetSource   = "asset.source"
	SpanAttrSink          = "delivery.sink"
)

// SpanOption adds a start attribute to a span.
type SpanOption func() attribute.KeyValue

// WithAttribute adds an attribute to the span.
func WithAttribute(key string, value interface{}) SpanOption {
	return func() attribute.KeyValue { return toAttribute(key, value) }
}

// StartSpan starts an internal span on the global tracer provider.
// The caller must End the returned span.
//
//	ctx, span := telemetry.StartSpan(ctx, "receipt.generate")
//	defer span.End()
func StartSpan(ctx context.Context, spanName string, opts ...SpanOption) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, len(opts))
	for _, opt := range opts {
		attrs = append(attrs, opt())
	}
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartStageSpan starts a span named "receipt.<stage>".
func StartStageSpan(ctx context.Context, stage string, opts ...SpanOption) (context.Context, trace.Span) {
	opts = append(opts, WithAttribute(SpanAttrStage, stage))
	return StartSpan(ctx, fmt.Sprintf("receipt.%s", stage), opts...)
}

// SetAttributes adds alternating key/value pairs to a span.
func SetAttributes(span trace.Span, keyValues ...interface{}) {
	if span == nil {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, toAttribute(key, keyValues[i+1]))
	}
	span.SetAttributes(attrs...)
}

// MarkDegraded records on the span that a best-effort stage fell back.
func MarkDegraded(span trace.Span, reason string) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Bool(SpanAttrDegraded, true),
		attribute.String(SpanAttrReason, reason),
	)
	span.AddEvent("stage degraded", trace.WithAttributes(attribute.String(SpanAttrReason, reason)))
}

// RecordError records err on the span and marks the span as failed.
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
