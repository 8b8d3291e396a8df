package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryCache_GetSetDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if v, ok := c.Get(ctx, "nonexistent"); ok || v != nil {
		t.Errorf("Get on empty cache = (%v, %v), want (nil, false)", v, ok)
	}

	if err := c.Set(ctx, "k", "value", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get(ctx, "k")
	if !ok || got != "value" {
		t.Errorf("Get = (%v, %v), want (value, true)", got, ok)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Get after Delete should return ok=false")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete on missing key should not error, got: %v", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	c := NewMemoryCache(WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "k", 1, 5*time.Second)

	clock.Advance(4 * time.Second)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("entry expired early")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry still present after ttl")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after lazy eviction", c.Len())
	}
}

func TestMemoryCache_ZeroTTLIsNoop(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", 1, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("zero TTL should not cache")
	}
}

func TestMemoryCache_InvalidKey(t *testing.T) {
	c := NewMemoryCache()
	tests := []struct {
		key  string
		want error
	}{
		{"", ErrInvalidKey},
		{"  ", ErrInvalidKey},
		{"a\nb", ErrInvalidKey},
		{string(make([]byte, MaxKeyLength+1)), ErrKeyTooLong},
	}
	for _, tt := range tests {
		if err := c.Set(context.Background(), tt.key, 1, time.Minute); err != tt.want {
			t.Errorf("Set(%q) error = %v, want %v", tt.key, err, tt.want)
		}
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				switch j % 3 {
				case 0:
					_ = c.Set(ctx, "shared", id, time.Minute)
				case 1:
					_, _ = c.Get(ctx, "shared")
				case 2:
					_ = c.Delete(ctx, "shared")
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryCache_SweepsExpiredWhenFull(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Unix(0, 0)}
	c := NewMemoryCache(WithClock(clock.Now), WithMaxEntries(3))

	for _, k := range []string{"u1", "u2", "u3"} {
		_ = c.Set(ctx, k, 1, time.Second)
	}
	clock.Advance(2 * time.Second)

	_ = c.Set(ctx, "u4", 1, time.Second)
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after sweep", c.Len())
	}
	if _, ok := c.Get(ctx, "u4"); !ok {
		t.Error("Get(u4) missed after sweep")
	}
}

func TestMemoryCache_EvictsSoonestWhenFullOfLiveEntries(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Unix(0, 0)}
	c := NewMemoryCache(WithClock(clock.Now), WithMaxEntries(2))

	_ = c.Set(ctx, "short", 1, time.Second)
	_ = c.Set(ctx, "long", 1, time.Minute)
	_ = c.Set(ctx, "new", 1, time.Minute)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get(ctx, "short"); ok {
		t.Error("entry closest to expiry survived eviction")
	}
	for _, k := range []string{"long", "new"} {
		if _, ok := c.Get(ctx, k); !ok {
			t.Errorf("Get(%s) missed", k)
		}
	}

	// Overwriting an existing key never evicts.
	_ = c.Set(ctx, "long", 2, time.Minute)
	if c.Len() != 2 {
		t.Errorf("Len() = %d after overwrite, want 2", c.Len())
	}
}

func TestMemoryCache_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Unix(0, 0)}
	c := NewMemoryCache(WithClock(clock.Now))

	_ = c.Set(ctx, "a", 1, time.Second)
	_ = c.Set(ctx, "b", 1, time.Minute)
	clock.Advance(2 * time.Second)

	if n := c.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}
