package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestL_EnrichesEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	ctx := WithContext(context.Background(), zap.New(core))
	ctx = trace.ContextWithSpanContext(ctx, spanCtx)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithReceiptNumber(ctx, "PAY123")

	L(ctx).Warn("logo unavailable")

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "PAY123", fields["receipt_number"])
}

func TestL_NoCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	L(ctx).Info("plain")

	assert.Empty(t, logs.All()[0].ContextMap())
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetReceiptNumber(ctx))
}
