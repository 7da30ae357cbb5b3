package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey        contextKey = "logger"
	requestIDKey     contextKey = "request_id"
	receiptNumberKey contextKey = "receipt_number"
)

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id so L(ctx) adds it to every entry.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithReceiptNumber stores the receipt being generated.
func WithReceiptNumber(ctx context.Context, receiptNumber string) context.Context {
	return context.WithValue(ctx, receiptNumberKey, receiptNumber)
}

// GetRequestID retrieves the request id from context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetReceiptNumber retrieves the receipt number from context.
func GetReceiptNumber(ctx context.Context) string {
	n, _ := ctx.Value(receiptNumberKey).(string)
	return n
}

// L returns the context logger enriched with trace_id, span_id, request_id
// and receipt_number when present.
//
//	logger.L(ctx).Warn("logo unavailable", zap.String("source", src))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the context's correlation fields to l.
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}

	var fields []zap.Field
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if n := GetReceiptNumber(ctx); n != "" {
		fields = append(fields, zap.String("receipt_number", n))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
