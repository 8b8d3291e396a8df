package kv

import (
	"context"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a key.
const MaxKeyLength = 1024

// Store is the minimal key-value contract the gate depends on.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods must honor cancellation/deadlines.
// - Errors: absence is reported as (nil, false, nil); every other failure
// wraps ErrStoreFault.
type Store interface {
	// Get returns the stored value, or ok=false if the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key. A ttl of zero stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// CappedCounter is implemented by stores that can increment a counter
// atomically against a cap.
//
// IncrCapped increments the integer at key only if its current value is
// below limit. The ttl is applied when the counter is created and is not
// refreshed by later increments. It returns the value after the call and
// whether the increment happened.
type CappedCounter interface {
	IncrCapped(ctx context.Context, key string, limit int64, ttl time.Duration) (count int64, ok bool, err error)
}

// ValidateKey checks that key is usable by every adapter.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
