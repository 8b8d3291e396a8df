package kv

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Clock returns the current time. Tests substitute a controllable clock.
type Clock func() time.Time

// Memory is an in-process Store with lazy expiry.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     Clock
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock replaces the wall clock used for expiry decisions.
func WithClock(now Clock) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a copy of the stored value. Expired entries are removed.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, Fault("get", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookupLocked(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set stores a copy of value. A ttl of zero stores without expiry.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return Fault("set", key, err)
	}
	if err := ValidateKey(key); err != nil {
		return Fault("set", key, err)
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	entry := &memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes a key. Idempotent.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Ping succeeds unless ctx is already done.
func (m *Memory) Ping(ctx context.Context) error {
	return Fault("ping", "", ctx.Err())
}

// IncrCapped implements CappedCounter under the store mutex.
func (m *Memory) IncrCapped(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, Fault("incr", key, err)
	}
	if err := ValidateKey(key); err != nil {
		return 0, false, Fault("incr", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	entry, ok := m.lookupLocked(key)
	if ok {
		parsed, err := strconv.ParseInt(string(entry.value), 10, 64)
		if err != nil {
			return 0, false, Fault("incr", key, err)
		}
		count = parsed
	}

	if count >= limit {
		return count, false, nil
	}

	count++
	if !ok {
		entry = &memoryEntry{}
		if ttl > 0 {
			entry.expiresAt = m.now().Add(ttl)
		}
		m.entries[key] = entry
	}
	entry.value = []byte(strconv.FormatInt(count, 10))
	return count, true, nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for _, e := range m.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (m *Memory) lookupLocked(key string) (*memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if entry.expired(m.now()) {
		delete(m.entries, key)
		return nil, false
	}
	return entry, true
}

var (
	_ Store         = (*Memory)(nil)
	_ CappedCounter = (*Memory)(nil)
)
