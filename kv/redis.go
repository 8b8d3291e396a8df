package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrCappedScript increments KEYS[1] only while it is below ARGV[1].
// The expiry (ARGV[2], milliseconds) is set when the counter is created.
// Returns {count, incremented}.
var incrCappedScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local limit = tonumber(ARGV[1])
if current >= limit then
  return {current, 0}
end
local count = redis.call("INCR", KEYS[1])
if count == 1 and tonumber(ARGV[2]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {count, 1}
`)

// Redis is a Store backed by a go-redis client.
type Redis struct {
	rdb redis.UniversalClient
}

// NewRedis wraps an existing client. The caller owns the client lifecycle.
func NewRedis(rdb redis.UniversalClient) *Redis {
	return &Redis{rdb: rdb}
}

// Get returns the value at key. redis.Nil is reported as absence.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, Fault("get", key, err)
	}
	return val, true, nil
}

// Set writes value with SET key value PX ttl.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return Fault("set", key, err)
	}
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return Fault("set", key, err)
	}
	return nil
}

// Ping issues PING.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return Fault("ping", "", err)
	}
	return nil
}

// IncrCapped runs the capped increment script (EVALSHA with EVAL fallback).
func (r *Redis) IncrCapped(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	if err := ValidateKey(key); err != nil {
		return 0, false, Fault("incr", key, err)
	}

	res, err := incrCappedScript.Run(ctx, r.rdb, []string{key}, limit, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, Fault("incr", key, err)
	}
	if len(res) != 2 {
		return 0, false, Fault("incr", key, errors.New("unexpected script reply"))
	}
	return res[0], res[1] == 1, nil
}

var (
	_ Store         = (*Redis)(nil)
	_ CappedCounter = (*Redis)(nil)
)
