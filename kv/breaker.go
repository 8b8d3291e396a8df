package kv

import (
	"sync"
	"time"
)

// BreakerState represents the circuit breaker state.
type BreakerState int

const (
	// BreakerClosed means calls flow normally.
	BreakerClosed BreakerState = iota
	// BreakerOpen means calls are rejected with ErrCircuitOpen.
	BreakerOpen
	// BreakerHalfOpen means a limited number of probe calls are allowed.
	BreakerHalfOpen
)

// String returns the string representation of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive faults before opening.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 10 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of probes allowed while half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called on every transition.
	OnStateChange func(from, to BreakerState)
}

type breaker struct {
	config BreakerConfig
	now    Clock

	mu            sync.Mutex
	state         BreakerState
	failures      int
	openedAt      time.Time
	halfOpenCount int
}

func newBreaker(config BreakerConfig, now Clock) *breaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 10 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	return &breaker{config: config, now: now}
}

// allow reserves a slot for one call or reports ErrCircuitOpen.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentLocked() {
	case BreakerOpen:
		return ErrCircuitOpen
	case BreakerHalfOpen:
		if b.halfOpenCount >= b.config.HalfOpenMaxRequests {
			return ErrCircuitOpen
		}
		b.halfOpenCount++
	}
	return nil
}

// record feeds the outcome of one call back into the breaker.
func (b *breaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		if !failed {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.config.MaxFailures {
			b.transitionLocked(BreakerOpen)
		}
	case BreakerHalfOpen:
		if failed {
			b.transitionLocked(BreakerOpen)
			return
		}
		b.failures = 0
		b.transitionLocked(BreakerClosed)
	}
}

func (b *breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked()
}

func (b *breaker) currentLocked() BreakerState {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.config.ResetTimeout {
		b.transitionLocked(BreakerHalfOpen)
	}
	return b.state
}

func (b *breaker) transitionLocked(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	switch to {
	case BreakerOpen:
		b.openedAt = b.now()
	case BreakerHalfOpen:
		b.halfOpenCount = 0
	}
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(from, to)
	}
}
