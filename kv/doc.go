// Package kv provides the key-value storage contract used by the policy and
// quota layers, together with in-memory and Redis adapters.
//
// The decision logic never talks to a concrete backend. It depends on Store
// (plain get/set with per-entry expiry) and, when available, CappedCounter
// (an atomic increment that refuses to pass a cap).
//
// # Adapters
//
//   - Memory: a process-local map with lazy expiry. Useful for tests and
//     single-instance deployments. The clock is injectable so window expiry
//     can be simulated.
//   - Redis: backed by github.com/redis/go-redis/v9. IncrCapped runs as a
//     Lua script so the read/compare/increment cycle is atomic server side.
//   - Guarded: wraps any Store with a per-operation timeout, bounded retry
//     and a circuit breaker.
//
// # Errors
//
// Every failure returned by an adapter wraps ErrStoreFault. Absence is not an
// error: Get reports it through its boolean result.
package kv
