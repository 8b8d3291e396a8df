package quota

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/toolgate/kv"
	"github.com/jonwraymond/toolgate/policy"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	clock    *fakeClock
	mem      *kv.Memory
	policies *policy.KVStore
}

func newFixture(t *testing.T, docs map[string]*policy.Policy) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	mem := kv.NewMemory(kv.WithClock(clock.Now))
	policies := policy.NewKVStore(mem)
	for key, p := range docs {
		if err := policies.Put(context.Background(), key, p); err != nil {
			t.Fatalf("Put(%q) error = %v", key, err)
		}
	}
	return &fixture{clock: clock, mem: mem, policies: policies}
}

func (f *fixture) limiter(t *testing.T, config Config) *Limiter {
	t.Helper()
	l, err := NewLimiter(f.policies, f.mem, config)
	if err != nil {
		t.Fatalf("NewLimiter() error = %v", err)
	}
	return l
}

func limits(rl ...policy.RateLimit) *policy.Policy {
	return &policy.Policy{RateLimits: rl}
}

func TestLimiter_SequentialCalls(t *testing.T) {
	for _, atomicMode := range []bool{false, true} {
		name := "read-then-write"
		if atomicMode {
			name = "atomic"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, map[string]*policy.Policy{
				"permissions:u1": limits(policy.RateLimit{Pattern: "search", Max: 3}),
			})
			config := DefaultConfig()
			config.Atomic = atomicMode
			l := f.limiter(t, config)
			if l.Atomic() != atomicMode {
				t.Fatalf("Atomic() = %v, want %v", l.Atomic(), atomicMode)
			}

			wantAllowed := []bool{true, true, true, false}
			wantRemaining := []int{2, 1, 0, 0}
			for i := range wantAllowed {
				got, err := l.CheckAndConsume(context.Background(), Subject{TenantID: "t1", UserID: "u1"}, "search")
				if err != nil {
					t.Fatalf("call %d: error = %v", i, err)
				}
				if got.Allowed != wantAllowed[i] || got.Remaining != wantRemaining[i] || got.Limit != 3 {
					t.Errorf("call %d = %+v, want allowed=%v remaining=%d", i, got, wantAllowed[i], wantRemaining[i])
				}
			}

			raw, _, _ := f.mem.Get(context.Background(), "ratelimit:u1:search")
			if string(raw) != "3" {
				t.Errorf("counter = %q, want 3", raw)
			}
		})
	}
}

func TestLimiter_WindowExpiry(t *testing.T) {
	f := newFixture(t, map[string]*policy.Policy{
		"permissions:u1": limits(policy.RateLimit{Pattern: "default", Max: 2}),
	})
	l := f.limiter(t, DefaultConfig())
	ctx := context.Background()
	s := Subject{TenantID: "t1", UserID: "u1"}

	for i := 0; i < 3; i++ {
		_, _ = l.CheckAndConsume(ctx, s, "x")
	}
	if got, _ := l.CheckAndConsume(ctx, s, "x"); got.Allowed {
		t.Fatalf("exhausted call = %+v, want denied", got)
	}

	f.clock.Advance(DefaultWindow)
	got, err := l.CheckAndConsume(ctx, s, "x")
	if err != nil {
		t.Fatalf("CheckAndConsume() error = %v", err)
	}
	if !got.Allowed || got.Remaining != 1 {
		t.Errorf("after window = %+v, want allowed with remaining 1", got)
	}
}

func TestLimiter_WriteRefreshesWindow(t *testing.T) {
	f := newFixture(t, map[string]*policy.Policy{
		"permissions:u1": limits(policy.RateLimit{Pattern: "default", Max: 5}),
	})
	l := f.limiter(t, DefaultConfig())
	ctx := context.Background()
	s := Subject{UserID: "u1"}

	_, _ = l.CheckAndConsume(ctx, s, "x")
	f.clock.Advance(40 * time.Second)
	_, _ = l.CheckAndConsume(ctx, s, "x")
	f.clock.Advance(40 * time.Second)

	got, _ := l.CheckAndConsume(ctx, s, "x")
	if got.Remaining != 2 {
		t.Errorf("Remaining = %d, want 2 (window refreshed by the previous write)", got.Remaining)
	}
}

func TestLimiter_Limit(t *testing.T) {
	f := newFixture(t, map[string]*policy.Policy{
		"permissions:u1": limits(
			policy.RateLimit{Pattern: "finance_*", Max: 5},
			policy.RateLimit{Pattern: "finance_quote", Max: 1},
			policy.RateLimit{Pattern: "default", Max: 20},
		),
		"permissions:u2":         limits(policy.RateLimit{Pattern: "other", Max: 7}),
		"permissions:t1:u3":      limits(policy.RateLimit{Pattern: "default", Max: 9}),
		"permissions:t1:default": {Tools: []string{"finance_*"}, RateLimits: []policy.RateLimit{{Pattern: "default", Max: 2}}},
	})

	tests := []struct {
		name    string
		scope   KeyScope
		subject Subject
		tool    string
		want    int
	}{
		{name: "first match wins", scope: ScopeUser, subject: Subject{"t1", "u1"}, tool: "finance_quote", want: 5},
		{name: "user default", scope: ScopeUser, subject: Subject{"t1", "u1"}, tool: "search", want: 20},
		{name: "user policy without match uses global", scope: ScopeUser, subject: Subject{"t1", "u2"}, tool: "search", want: 100},
		{name: "user policy without match skips tenant", scope: ScopeUser, subject: Subject{"t1", "u2"}, tool: "finance_quote", want: 100},
		{name: "tenant default", scope: ScopeUser, subject: Subject{"t1", "nobody"}, tool: "finance_quote", want: 2},
		{name: "global default", scope: ScopeUser, subject: Subject{"t9", "nobody"}, tool: "x", want: 100},
		{name: "tenant scope reads tenant key", scope: ScopeTenant, subject: Subject{"t1", "u3"}, tool: "x", want: 9},
		{name: "tenant scope ignores legacy key", scope: ScopeTenant, subject: Subject{"t1", "u1"}, tool: "x", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.KeyScope = tt.scope
			got, err := f.limiter(t, config).Limit(context.Background(), tt.subject, tt.tool)
			if err != nil {
				t.Fatalf("Limit() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Limit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLimiter_ZeroLimitAlwaysRejects(t *testing.T) {
	for _, atomicMode := range []bool{false, true} {
		f := newFixture(t, map[string]*policy.Policy{
			"permissions:u1": limits(policy.RateLimit{Pattern: "blocked_*", Max: 0}),
		})
		config := DefaultConfig()
		config.Atomic = atomicMode
		l := f.limiter(t, config)

		got, err := l.CheckAndConsume(context.Background(), Subject{UserID: "u1"}, "blocked_tool")
		if err != nil {
			t.Fatalf("CheckAndConsume() error = %v", err)
		}
		if got.Allowed || got.Remaining != 0 {
			t.Errorf("atomic=%v: got %+v, want denied with remaining 0", atomicMode, got)
		}
		if f.mem.Len() != 1 {
			t.Errorf("atomic=%v: store has %d entries, want only the policy", atomicMode, f.mem.Len())
		}
	}
}

func TestLimiter_NoDefaultLimit(t *testing.T) {
	f := newFixture(t, map[string]*policy.Policy{
		"permissions:u1": limits(policy.RateLimit{Pattern: "search", Max: 1}),
	})
	config := DefaultConfig()
	config.DefaultLimit = NoDefaultLimit
	l := f.limiter(t, config)

	if _, err := l.CheckAndConsume(context.Background(), Subject{UserID: "u1"}, "search"); err != nil {
		t.Errorf("matched pattern: error = %v", err)
	}
	if _, err := l.CheckAndConsume(context.Background(), Subject{UserID: "u2"}, "search"); !errors.Is(err, ErrNoDefaultLimit) {
		t.Errorf("unmatched: error = %v, want ErrNoDefaultLimit", err)
	}
}

func TestLimiter_CancelledCallerConsumesNothing(t *testing.T) {
	for _, atomicMode := range []bool{false, true} {
		f := newFixture(t, nil)
		config := DefaultConfig()
		config.Atomic = atomicMode
		l := f.limiter(t, config)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := l.CheckAndConsume(ctx, Subject{UserID: "u1"}, "x"); !kv.IsFault(err) {
			t.Errorf("atomic=%v: error = %v, want fault", atomicMode, err)
		}
		if f.mem.Len() != 0 {
			t.Errorf("atomic=%v: counter written by cancelled caller", atomicMode)
		}
	}
}

func TestLimiter_CorruptCounterIsFault(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.mem.Set(context.Background(), "ratelimit:u1:x", []byte("many"), time.Minute)

	_, err := f.limiter(t, DefaultConfig()).CheckAndConsume(context.Background(), Subject{UserID: "u1"}, "x")
	if !kv.IsFault(err) {
		t.Errorf("error = %v, want fault", err)
	}
}

func TestLimiter_StoreFaultPropagates(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	store := kv.NewRedis(rdb)

	l, err := NewLimiter(policy.NewKVStore(store), store, DefaultConfig())
	if err != nil {
		t.Fatalf("NewLimiter() error = %v", err)
	}

	mr.SetError("LOADING")
	got, err := l.CheckAndConsume(context.Background(), Subject{UserID: "u1"}, "x")
	if !kv.IsFault(err) {
		t.Errorf("error = %v, want fault", err)
	}
	if got.Allowed {
		t.Error("fault reported as allowed")
	}
}

func TestLimiter_Redis(t *testing.T) {
	for _, atomicMode := range []bool{false, true} {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		store := kv.NewRedis(rdb)
		mr.Set("permissions:u1", `{"tools":[],"rate_limits":{"default":2}}`)

		config := DefaultConfig()
		config.Atomic = atomicMode
		l, err := NewLimiter(policy.NewKVStore(store), store, config)
		if err != nil {
			t.Fatalf("NewLimiter() error = %v", err)
		}
		ctx := context.Background()
		s := Subject{UserID: "u1"}

		for i, want := range []bool{true, true, false} {
			got, err := l.CheckAndConsume(ctx, s, "x")
			if err != nil {
				t.Fatalf("call %d: error = %v", i, err)
			}
			if got.Allowed != want {
				t.Errorf("atomic=%v call %d: allowed = %v, want %v", atomicMode, i, got.Allowed, want)
			}
		}
		if ttl := mr.TTL("ratelimit:u1:x"); ttl <= 0 || ttl > DefaultWindow {
			t.Errorf("atomic=%v: counter ttl = %s, want within window", atomicMode, ttl)
		}

		mr.FastForward(DefaultWindow)
		if got, _ := l.CheckAndConsume(ctx, s, "x"); !got.Allowed || got.Remaining != 1 {
			t.Errorf("atomic=%v: after window = %+v", atomicMode, got)
		}
	}
}

func TestLimiter_ConcurrentOvershootIsBounded(t *testing.T) {
	const (
		limit   = 5
		callers = 50
	)

	run := func(t *testing.T, atomicMode bool) int64 {
		f := newFixture(t, map[string]*policy.Policy{
			"permissions:u1": limits(policy.RateLimit{Pattern: "default", Max: limit}),
		})
		config := DefaultConfig()
		config.Atomic = atomicMode
		l := f.limiter(t, config)

		var admitted atomic.Int64
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				got, err := l.CheckAndConsume(context.Background(), Subject{UserID: "u1"}, "x")
				if err != nil {
					t.Errorf("CheckAndConsume() error = %v", err)
					return
				}
				if got.Remaining < 0 {
					t.Errorf("Remaining = %d, want non-negative", got.Remaining)
				}
				if got.Allowed {
					admitted.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		return admitted.Load()
	}

	t.Run("read-then-write", func(t *testing.T) {
		got := run(t, false)
		if got < limit || got > callers {
			t.Errorf("admitted = %d, want between %d and %d", got, limit, callers)
		}
		t.Logf("admitted %d of %d with limit %d (overshoot %d)", got, callers, limit, got-limit)
	})

	t.Run("atomic", func(t *testing.T) {
		if got := run(t, true); got != limit {
			t.Errorf("admitted = %d, want exactly %d", got, limit)
		}
	})
}

func TestNewLimiter_InvalidConfig(t *testing.T) {
	tests := []Config{
		{DefaultLimit: -5},
		{DefaultLimit: 1, Window: -time.Second},
		{DefaultLimit: 1, KeyScope: "global"},
	}
	for _, config := range tests {
		if _, err := NewLimiter(nil, nil, config); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewLimiter(%+v) error = %v, want ErrInvalidConfig", config, err)
		}
	}
}

func TestLimiter_AtomicFallsBackWithoutCapability(t *testing.T) {
	guarded := kv.NewGuarded(plainStore{kv.NewMemory()}, kv.GuardConfig{})
	config := DefaultConfig()
	config.Atomic = true
	l, err := NewLimiter(policy.NewKVStore(guarded), guarded, config)
	if err != nil {
		t.Fatalf("NewLimiter() error = %v", err)
	}
	if l.Atomic() {
		t.Error("Atomic() = true for a store without capped increments")
	}
	if got, err := l.CheckAndConsume(context.Background(), Subject{UserID: "u1"}, "x"); err != nil || !got.Allowed {
		t.Errorf("CheckAndConsume() = %+v, %v", got, err)
	}
}

// plainStore hides the capped counter of the wrapped store.
type plainStore struct{ kv.Store }

func TestParseKeyScope(t *testing.T) {
	tests := []struct {
		in      string
		want    KeyScope
		wantErr bool
	}{
		{in: "", want: ScopeUser},
		{in: "user", want: ScopeUser},
		{in: "tenant", want: ScopeTenant},
		{in: "Tenant", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseKeyScope(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseKeyScope(%q) = (%q, %v)", tt.in, got, err)
		}
	}
}
