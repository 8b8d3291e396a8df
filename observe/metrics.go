package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/toolgate/gate"
)

// Metrics records gate decisions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordDecision records one check, its duration and any fault.
	RecordDecision(ctx context.Context, meta CallMeta, d gate.Decision, duration time.Duration, err error)
}

type metricsImpl struct {
	decisions    metric.Int64Counter
	faults       metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics registers the gate instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	decisions, err := meter.Int64Counter(
		"gate.decisions.total",
		metric.WithDescription("Gate decisions by outcome and reason"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	faults, err := meter.Int64Counter(
		"gate.faults.total",
		metric.WithDescription("Checks that ended in a store or configuration fault"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"gate.check.duration_ms",
		metric.WithDescription("Gate check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		decisions:    decisions,
		faults:       faults,
		durationHist: durationHist,
	}, nil
}

// RecordDecision records metrics for one check. Tenant and user ids are left
// out of the attributes to keep cardinality bounded.
func (m *metricsImpl) RecordDecision(ctx context.Context, meta CallMeta, d gate.Decision, duration time.Duration, err error) {
	outcome := metric.WithAttributes(
		attribute.String("outcome", d.Outcome()),
		attribute.String("reason", string(d.Reason)),
	)
	m.decisions.Add(ctx, 1, outcome)

	if err != nil || d.Cause != nil {
		m.faults.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", meta.Tool)))
	}

	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, outcome)
}

type noopMetrics struct{}

func (m *noopMetrics) RecordDecision(context.Context, CallMeta, gate.Decision, time.Duration, error) {}
