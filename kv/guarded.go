package kv

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// GuardConfig configures a Guarded store.
type GuardConfig struct {
	// Timeout bounds each individual backend call.
	// Default: 250ms
	Timeout time.Duration

	// MaxAttempts is the number of attempts for idempotent operations
	// (Get, Set, Ping), including the first. IncrCapped is never retried.
	// Default: 2
	MaxAttempts int

	// InitialDelay is the backoff before the first retry.
	// Default: 10ms
	InitialDelay time.Duration

	// MaxDelay caps the backoff between retries.
	// Default: 100ms
	MaxDelay time.Duration

	// Breaker configures the circuit breaker.
	Breaker BreakerConfig

	// OnRetry is called before each retry attempt.
	OnRetry func(op string, attempt int, err error)
}

// Guarded decorates a Store with per-call timeouts, bounded retry and a
// circuit breaker. A timeout or open circuit is reported as a fault, never
// as absence.
type Guarded struct {
	inner   Store
	counter CappedCounter
	config  GuardConfig
	breaker *breaker
}

// GuardOption configures a Guarded store.
type GuardOption func(*guardOptions)

type guardOptions struct {
	now Clock
}

// WithGuardClock replaces the clock used by the circuit breaker.
func WithGuardClock(now Clock) GuardOption {
	return func(o *guardOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewGuarded wraps inner. If inner implements CappedCounter, so does the
// returned store.
func NewGuarded(inner Store, config GuardConfig, opts ...GuardOption) *Guarded {
	o := guardOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if config.Timeout <= 0 {
		config.Timeout = 250 * time.Millisecond
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 2
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 10 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 100 * time.Millisecond
	}

	g := &Guarded{
		inner:   inner,
		config:  config,
		breaker: newBreaker(config.Breaker, o.now),
	}
	if c, ok := inner.(CappedCounter); ok {
		g.counter = c
	}
	return g
}

// Get reads through the guard.
func (g *Guarded) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		val []byte
		ok  bool
	)
	err := g.do(ctx, "get", key, true, func(ctx context.Context) error {
		var err error
		val, ok, err = g.inner.Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return val, ok, nil
}

// Set writes through the guard.
func (g *Guarded) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.do(ctx, "set", key, true, func(ctx context.Context) error {
		return g.inner.Set(ctx, key, value, ttl)
	})
}

// Ping checks the backend through the guard.
func (g *Guarded) Ping(ctx context.Context) error {
	return g.do(ctx, "ping", "", true, g.inner.Ping)
}

// IncrCapped forwards to the inner counter with a single attempt.
// If inner is not a CappedCounter it fails with a fault.
func (g *Guarded) IncrCapped(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	if g.counter == nil {
		return 0, false, Fault("incr", key, errors.New("backend does not support capped increments"))
	}
	var (
		count int64
		ok    bool
	)
	err := g.do(ctx, "incr", key, false, func(ctx context.Context) error {
		var err error
		count, ok, err = g.counter.IncrCapped(ctx, key, limit, ttl)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return count, ok, nil
}

// SupportsCappedCounter reports whether IncrCapped is backed by the inner store.
func (g *Guarded) SupportsCappedCounter() bool {
	return g.counter != nil
}

// BreakerState returns the current circuit state.
func (g *Guarded) BreakerState() BreakerState {
	return g.breaker.State()
}

func (g *Guarded) do(ctx context.Context, op, key string, idempotent bool, call func(context.Context) error) error {
	attempts := 1
	if idempotent {
		attempts = g.config.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := g.breaker.allow(); err != nil {
			return Fault(op, key, err)
		}

		err := g.attempt(ctx, call)
		// Caller cancellation says nothing about backend health.
		g.breaker.record(err != nil && ctx.Err() == nil && !errors.Is(err, ErrInvalidKey))
		if err == nil {
			return nil
		}
		lastErr = Fault(op, key, err)

		if !g.retryable(ctx, err) || attempt == attempts {
			break
		}
		if g.config.OnRetry != nil {
			g.config.OnRetry(op, attempt, err)
		}

		select {
		case <-ctx.Done():
			return Fault(op, key, ctx.Err())
		case <-time.After(g.delay(attempt)):
		}
	}
	return lastErr
}

func (g *Guarded) attempt(ctx context.Context, call func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	err := call(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	return err
}

func (g *Guarded) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ErrInvalidKey) && !errors.Is(err, context.Canceled)
}

func (g *Guarded) delay(attempt int) time.Duration {
	d := time.Duration(float64(g.config.InitialDelay) * math.Pow(2, float64(attempt-1)))
	if d > g.config.MaxDelay {
		d = g.config.MaxDelay
	}
	if d > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d/4) + 1))
	}
	return d
}

var (
	_ Store         = (*Guarded)(nil)
	_ CappedCounter = (*Guarded)(nil)
)
