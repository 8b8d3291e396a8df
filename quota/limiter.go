package quota

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jonwraymond/toolgate/kv"
	"github.com/jonwraymond/toolgate/policy"
)

// Subject identifies whose quota a call consumes.
type Subject struct {
	TenantID string
	UserID   string
}

// Result is the outcome of CheckAndConsume.
type Result struct {
	// Allowed is true when the call was admitted and one unit was consumed.
	Allowed bool

	// Remaining is the number of calls left in the current window. It is
	// never negative and is 0 on denial.
	Remaining int

	// Limit is the resolved limit the call was measured against.
	Limit int
}

// Limiter enforces quotas.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: store faults wrap kv.ErrStoreFault; a missing default limit is
// ErrNoDefaultLimit. Quota exhaustion is a Result, not an error.
type Limiter struct {
	policies policy.Store
	counters kv.Store
	capped   kv.CappedCounter
	config   Config
}

// NewLimiter builds a Limiter reading rate policies from policies and
// keeping counters in counters.
func NewLimiter(policies policy.Store, counters kv.Store, config Config) (*Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	l := &Limiter{
		policies: policies,
		counters: counters,
		config:   config.withDefaults(),
	}
	if config.Atomic {
		l.capped = cappedCounter(counters)
	}
	return l, nil
}

// cappedCounter returns the store's atomic counter, if it really has one.
func cappedCounter(store kv.Store) kv.CappedCounter {
	c, ok := store.(kv.CappedCounter)
	if !ok {
		return nil
	}
	if s, ok := store.(interface{ SupportsCappedCounter() bool }); ok && !s.SupportsCappedCounter() {
		return nil
	}
	return c
}

// Atomic reports whether counters are advanced with a capped increment.
func (l *Limiter) Atomic() bool {
	return l.capped != nil
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config {
	return l.config
}

// CheckAndConsume admits or rejects one call by s to toolName. An admitted
// call has already consumed its unit when this returns; callers must not
// use it as a dry-run check.
func (l *Limiter) CheckAndConsume(ctx context.Context, s Subject, toolName string) (Result, error) {
	limit, err := l.Limit(ctx, s, toolName)
	if err != nil {
		return Result{}, err
	}

	key := l.counterKey(s, toolName)
	if l.capped != nil {
		return l.consumeAtomic(ctx, key, limit)
	}
	return l.consume(ctx, key, limit)
}

// Limit resolves the limit that applies to s calling toolName.
//
// The subject's own rate policy decides when present: a matching pattern,
// else its default, else the process-wide default. Without one the tenant's
// default policy is consulted the same way.
func (l *Limiter) Limit(ctx context.Context, s Subject, toolName string) (int, error) {
	p, err := l.policies.Get(ctx, l.ratePolicyKey(s))
	if err != nil {
		return 0, err
	}
	if p == nil {
		p, err = l.policies.Get(ctx, policy.TenantDefaultKey(s.TenantID))
		if err != nil {
			return 0, err
		}
	}
	if limit, ok := p.LimitFor(toolName); ok {
		return limit, nil
	}
	if l.config.DefaultLimit == NoDefaultLimit {
		return 0, ErrNoDefaultLimit
	}
	return l.config.DefaultLimit, nil
}

func (l *Limiter) consume(ctx context.Context, key string, limit int) (Result, error) {
	raw, ok, err := l.counters.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	var count int64
	if ok {
		count, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return Result{}, kv.Fault("decode", key, fmt.Errorf("counter value %q: %w", raw, err))
		}
	}

	if count >= int64(limit) {
		return Result{Allowed: false, Remaining: 0, Limit: limit}, nil
	}

	// A caller that has gone away must not consume quota.
	if err := ctx.Err(); err != nil {
		return Result{}, kv.Fault("set", key, err)
	}
	if err := l.counters.Set(ctx, key, []byte(strconv.FormatInt(count+1, 10)), l.config.Window); err != nil {
		return Result{}, err
	}
	return Result{Allowed: true, Remaining: limit - int(count) - 1, Limit: limit}, nil
}

func (l *Limiter) consumeAtomic(ctx context.Context, key string, limit int) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, kv.Fault("incr", key, err)
	}
	count, ok, err := l.capped.IncrCapped(ctx, key, int64(limit), l.config.Window)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Allowed: false, Remaining: 0, Limit: limit}, nil
	}
	return Result{Allowed: true, Remaining: max(limit-int(count), 0), Limit: limit}, nil
}

func (l *Limiter) ratePolicyKey(s Subject) string {
	if l.config.KeyScope == ScopeTenant {
		return policy.UserKey(s.TenantID, s.UserID)
	}
	return policy.RateLimitKey(s.UserID)
}

func (l *Limiter) counterKey(s Subject, toolName string) string {
	if l.config.KeyScope == ScopeTenant {
		return policy.TenantCounterKey(s.TenantID, s.UserID, toolName)
	}
	return policy.CounterKey(s.UserID, toolName)
}
