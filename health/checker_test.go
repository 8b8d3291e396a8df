package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestResultHelpers(t *testing.T) {
	if r := Healthy("ok"); r.Status != StatusHealthy || r.Message != "ok" {
		t.Errorf("Healthy() = %+v", r)
	}
	if r := Degraded("slow"); r.Status != StatusDegraded || r.Message != "slow" {
		t.Errorf("Degraded() = %+v", r)
	}

	err := errors.New("down")
	r := Unhealthy("failed", err)
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, err) {
		t.Errorf("Unhealthy() = %+v", r)
	}

	r = Healthy("ok").WithDetails(map[string]any{"k": 1})
	if r.Details["k"] != 1 {
		t.Errorf("WithDetails() details = %v", r.Details)
	}
}

func TestCheckerFunc(t *testing.T) {
	c := NewCheckerFunc("fn", func(context.Context) Result {
		return Degraded("meh")
	})
	if c.Name() != "fn" {
		t.Errorf("Name() = %q, want fn", c.Name())
	}
	if r := c.Check(context.Background()); r.Status != StatusDegraded {
		t.Errorf("Check() status = %v, want degraded", r.Status)
	}
}
