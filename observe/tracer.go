package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/toolgate/gate"
)

// CallMeta identifies a gated call for telemetry purposes.
type CallMeta struct {
	TenantID string
	UserID   string
	Tool     string
}

// MetaFromCall converts a gate call.
func MetaFromCall(call gate.Call) CallMeta {
	return CallMeta{TenantID: call.TenantID, UserID: call.UserID, Tool: call.Tool}
}

// SpanName returns the deterministic span name: gate.check.<tool>.
func (m CallMeta) SpanName() string {
	return "gate.check." + m.Tool
}

func (m CallMeta) attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("tenant.id", m.TenantID),
		attribute.String("user.id", m.UserID),
		attribute.String("tool.name", m.Tool),
	}
}

// Tracer wraps OpenTelemetry tracing with gate-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a check.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan records the decision, or err when the check faulted, and ends the span.
	EndSpan(span trace.Span, d gate.Decision, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(meta.attributes()...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, d gate.Decision, err error) {
	span.SetAttributes(
		attribute.String("gate.outcome", d.Outcome()),
		attribute.Bool("gate.allowed", d.Allowed),
	)
	if d.Reason != gate.ReasonNone {
		span.SetAttributes(attribute.String("gate.reason", string(d.Reason)))
	}
	if d.Remaining != nil {
		span.SetAttributes(attribute.Int("gate.remaining", *d.Remaining))
	}

	// Denials are a normal outcome; only faults mark the span as failed.
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ gate.Decision, _ error) {
	span.End()
}
