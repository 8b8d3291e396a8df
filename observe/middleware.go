package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/toolgate/gate"
)

// Middleware wraps gate checks with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe CheckFunc.
//   - Context: the span context is passed to the wrapped check.
//   - Errors: decisions and errors from the wrapped check are returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	now     func() time.Time
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Wrap decorates fn. Faults log at error, fail-closed configuration faults at
// warn, denials at info and admits at debug.
func (m *Middleware) Wrap(fn gate.CheckFunc) gate.CheckFunc {
	return func(ctx context.Context, call gate.Call) (gate.Decision, error) {
		meta := MetaFromCall(call)
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := m.now()

		d, err := fn(ctx, call)

		duration := m.now().Sub(start)
		m.tracer.EndSpan(span, d, err)
		m.metrics.RecordDecision(ctx, meta, d, duration, err)

		log := m.logger.WithCall(meta)
		fields := []Field{
			{Key: "outcome", Value: d.Outcome()},
			{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
		}
		if d.Reason != gate.ReasonNone {
			fields = append(fields, Field{Key: "reason", Value: string(d.Reason)})
		}
		if d.Remaining != nil {
			fields = append(fields, Field{Key: "remaining", Value: *d.Remaining})
		}

		switch {
		case err != nil:
			log.Error(ctx, "gate check failed", append(fields, Field{Key: "error", Value: err})...)
		case d.Cause != nil:
			log.Warn(ctx, "gate check failed closed", append(fields, Field{Key: "error", Value: d.Cause})...)
		case !d.Allowed:
			log.Info(ctx, "tool call denied", fields...)
		default:
			log.Debug(ctx, "tool call admitted", fields...)
		}

		return d, err
	}
}

// Gate returns Wrap as a gate.Middleware.
func (m *Middleware) Gate() gate.Middleware {
	return m.Wrap
}

// MiddlewareFromObserver builds a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
