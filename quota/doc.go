// Package quota enforces per-user, per-tool call quotas over fixed windows.
//
// A Limiter resolves the effective limit for a call from stored rate
// policies, then reads and advances a counter held in a key-value store.
// Windows are implemented with the store's native key expiry: a counter is
// created with a TTL equal to the window and disappears when it elapses.
//
// # Concurrency
//
// By default the counter is advanced with a separate read and write, so
// concurrent calls for the same user and tool can overshoot the limit by up
// to the number of racing callers minus one. With Config.Atomic set and a
// store implementing kv.CappedCounter, the check and increment happen in one
// step and the limit is never exceeded.
package quota
