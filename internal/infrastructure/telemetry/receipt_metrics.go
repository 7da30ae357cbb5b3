package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when metrics are built without a meter.
var ErrMeterNil = errors.New("receipt metrics: meter cannot be nil")

// Metric attribute keys.
var (
	AttrStage   = attribute.Key("stage")
	AttrOutcome = attribute.Key("outcome")
	AttrSink    = attribute.Key("sink")
)

// Outcome attribute values.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

var (
	durationBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
	sizeBuckets     = []float64{4096, 8192, 16384, 32768, 65536, 131072, 262144}
)

// ReceiptMetrics records pipeline throughput and stage health.
// A nil *ReceiptMetrics records nothing.
type ReceiptMetrics struct {
	generated       metric.Int64Counter
	stageOutcomes   metric.Int64Counter
	saves           metric.Int64Counter
	handlesReleased metric.Int64Counter
	duration        metric.Float64Histogram
	documentBytes   metric.Int64Histogram
}

// NewReceiptMetrics creates the receipt pipeline instruments on meter.
func NewReceiptMetrics(meter metric.Meter) (*ReceiptMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	rm := &ReceiptMetrics{}
	var err error
	counter := func(name, desc, unit string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			err = fmt.Errorf("failed to create counter %s: %w", name, err)
		}
		return c
	}

	rm.generated = counter("housika_receipts_generated_total", "Receipt generation calls by outcome", "{receipts}")
	rm.stageOutcomes = counter("housika_receipt_stage_total", "Best-effort stage results by stage and outcome", "{stages}")
	rm.saves = counter("housika_receipt_saves_total", "Receipt save attempts by sink and outcome", "{saves}")
	rm.handlesReleased = counter("housika_receipt_handles_released_total", "Transient receipt handles released", "{handles}")
	if err != nil {
		return nil, err
	}

	if rm.duration, err = meter.Float64Histogram("housika_receipt_generation_duration_seconds",
		metric.WithDescription("End-to-end receipt generation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	if rm.documentBytes, err = meter.Int64Histogram("housika_receipt_document_bytes",
		metric.WithDescription("Receipt size before and after compression"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(sizeBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create size histogram: %w", err)
	}

	return rm, nil
}

// RecordGenerated records a finished generation call.
func (m *ReceiptMetrics) RecordGenerated(ctx context.Context, d time.Duration, rawBytes, finalBytes int) {
	if m == nil {
		return
	}
	m.generated.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(OutcomeOK)))
	m.duration.Record(ctx, d.Seconds())
	m.documentBytes.Record(ctx, int64(rawBytes), metric.WithAttributes(AttrStage.String("layout")))
	m.documentBytes.Record(ctx, int64(finalBytes), metric.WithAttributes(AttrStage.String("compress")))
}

// RecordFailed records a generation call that returned no document.
func (m *ReceiptMetrics) RecordFailed(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.generated.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(OutcomeFailed)))
	m.duration.Record(ctx, d.Seconds())
}

// RecordStage records whether a best-effort stage produced its value.
func (m *ReceiptMetrics) RecordStage(ctx context.Context, stage string, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeDegraded
	}
	m.stageOutcomes.Add(ctx, 1, metric.WithAttributes(AttrStage.String(stage), AttrOutcome.String(outcome)))
}

// RecordSave records a delivery attempt.
func (m *ReceiptMetrics) RecordSave(ctx context.Context, sink string, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeFailed
	}
	m.saves.Add(ctx, 1, metric.WithAttributes(AttrSink.String(sink), AttrOutcome.String(outcome)))
}

// RecordReleased counts released handles.
func (m *ReceiptMetrics) RecordReleased(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.handlesReleased.Add(ctx, int64(n))
}
