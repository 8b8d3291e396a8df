package observe

import (
	"context"
	"testing"
	"time"

	"github.com/jonwraymond/toolgate/gate"
)

func TestLoggerContract_WithCall(t *testing.T) {
	logger := &noopLogger{}
	if logger.WithCall(CallMeta{Tool: "noop"}) == nil {
		t.Fatalf("WithCall should return non-nil logger")
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := &noopMetrics{}
	metrics.RecordDecision(context.Background(), CallMeta{Tool: "noop"}, gate.Decision{}, 10*time.Millisecond, nil)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), CallMeta{Tool: "noop"})
	tracer.EndSpan(span, gate.Decision{}, nil)
}
