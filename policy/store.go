package policy

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/toolgate/cache"
	"github.com/jonwraymond/toolgate/kv"
)

// Store reads policy documents by key.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: an absent policy is (nil, nil). Faults, including undecodable
// documents, satisfy errors.Is(err, kv.ErrStoreFault).
type Store interface {
	Get(ctx context.Context, key string) (*Policy, error)
}

// KVStore exposes JSON documents held in a kv.Store as policies.
type KVStore struct {
	kv kv.Store
}

// NewKVStore wraps a raw key-value store.
func NewKVStore(store kv.Store) *KVStore {
	return &KVStore{kv: store}
}

// Get loads and decodes the document at key.
func (s *KVStore) Get(ctx context.Context, key string) (*Policy, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	p, err := Parse(raw)
	if err != nil {
		return nil, kv.Fault("decode", key, err)
	}
	return p, nil
}

// Put encodes p and writes it without expiry. It is the administrative
// write path and is never called by the decision layers.
func (s *KVStore) Put(ctx context.Context, key string, p *Policy) error {
	doc, err := Encode(p)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, doc, 0)
}

// absent marks a cached negative lookup.
type absent struct{}

// CachedStore fronts a Store with a short-TTL cache. Concurrent misses for
// the same key share one backend load. Absence is cached; faults are not.
type CachedStore struct {
	inner  Store
	cache  cache.Cache
	policy cache.Policy
	group  singleflight.Group
}

// NewCachedStore wraps inner. With a policy whose ShouldCache is false the
// store only coalesces concurrent loads.
func NewCachedStore(inner Store, c cache.Cache, p cache.Policy) *CachedStore {
	if c == nil {
		c = cache.NewMemoryCache()
	}
	return &CachedStore{inner: inner, cache: c, policy: p}
}

// Get returns the cached policy or loads it from the inner store.
func (s *CachedStore) Get(ctx context.Context, key string) (*Policy, error) {
	if v, ok := s.cache.Get(ctx, key); ok {
		return fromCached(v), nil
	}

	// The shared load outlives any one caller; the inner store bounds it.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		p, err := s.inner.Get(loadCtx, key)
		if err != nil {
			return nil, err
		}
		if s.policy.ShouldCache() {
			var v any = absent{}
			if p != nil {
				v = p
			}
			_ = s.cache.Set(loadCtx, key, v, s.policy.EffectiveTTL(0))
		}
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, kv.Fault("get", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		p, _ := res.Val.(*Policy)
		return p, nil
	}
}

// Invalidate drops any cached entry for key.
func (s *CachedStore) Invalidate(ctx context.Context, key string) {
	_ = s.cache.Delete(ctx, key)
	s.group.Forget(key)
}

// TTL returns the effective cache lifetime.
func (s *CachedStore) TTL() time.Duration {
	return s.policy.EffectiveTTL(0)
}

func fromCached(v any) *Policy {
	if p, ok := v.(*Policy); ok {
		return p
	}
	return nil
}

var (
	_ Store = (*KVStore)(nil)
	_ Store = (*CachedStore)(nil)
)
