package health

import (
	"context"

	"github.com/jonwraymond/toolgate/kv"
)

// Pinger is satisfied by every kv.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker reports a key-value store unhealthy when it cannot be pinged.
type StoreChecker struct {
	name  string
	store Pinger
}

// NewStoreChecker checks store under name.
func NewStoreChecker(name string, store Pinger) *StoreChecker {
	return &StoreChecker{name: name, store: store}
}

// Name returns the checker name.
func (c *StoreChecker) Name() string {
	return c.name
}

// Check pings the store once.
func (c *StoreChecker) Check(ctx context.Context) Result {
	if err := c.store.Ping(ctx); err != nil {
		return Unhealthy("store unreachable", err)
	}
	return Healthy("store reachable")
}

// BreakerSource exposes the state of a circuit breaker, as kv.Guarded does.
type BreakerSource interface {
	BreakerState() kv.BreakerState
}

// BreakerChecker reports an open circuit as degraded: the gate is up but
// every check is currently failing fast.
type BreakerChecker struct {
	name   string
	source BreakerSource
}

// NewBreakerChecker checks source under name.
func NewBreakerChecker(name string, source BreakerSource) *BreakerChecker {
	return &BreakerChecker{name: name, source: source}
}

// Name returns the checker name.
func (c *BreakerChecker) Name() string {
	return c.name
}

// Check reads the breaker state without touching the store.
func (c *BreakerChecker) Check(context.Context) Result {
	state := c.source.BreakerState()
	details := map[string]any{"state": state.String()}
	switch state {
	case kv.BreakerClosed:
		return Healthy("circuit closed").WithDetails(details)
	case kv.BreakerHalfOpen:
		return Degraded("circuit probing").WithDetails(details)
	default:
		return Degraded("circuit open").WithDetails(details)
	}
}

var (
	_ Checker = (*StoreChecker)(nil)
	_ Checker = (*BreakerChecker)(nil)
	_ Pinger  = (kv.Store)(nil)
)
