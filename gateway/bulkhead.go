package gateway

import (
	"context"
	"sync"
	"time"
)

// Stats reports in-flight request counters.
type Stats struct {
	Active      int
	MaxActive   int
	MaxInFlight int
	Rejected    int64
}

// bulkhead caps the number of requests handled at once.
type bulkhead struct {
	maxWait time.Duration
	sem     chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
	rejected  int64
}

func newBulkhead(maxInFlight int, maxWait time.Duration) *bulkhead {
	return &bulkhead{
		maxWait: maxWait,
		sem:     make(chan struct{}, maxInFlight),
	}
}

// acquire takes a slot, waiting up to maxWait for one to free up.
func (b *bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		b.admit()
		return nil
	default:
	}

	if b.maxWait <= 0 {
		b.reject()
		return ErrBusy
	}

	timer := time.NewTimer(b.maxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		b.admit()
		return nil
	case <-timer.C:
		b.reject()
		return ErrBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *bulkhead) release() {
	select {
	case <-b.sem:
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	default:
	}
}

func (b *bulkhead) admit() {
	b.mu.Lock()
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	b.mu.Unlock()
}

func (b *bulkhead) reject() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}

func (b *bulkhead) stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Active:      b.active,
		MaxActive:   b.maxActive,
		MaxInFlight: cap(b.sem),
		Rejected:    b.rejected,
	}
}
