// Package cache provides a short-TTL cache for policy documents.
//
// It provides a Cache interface with a memory implementation and a Policy
// that bounds how stale a cached entry may be. Caching policies trades
// freshness for fewer store round trips: an edit to a policy becomes visible
// after at most the effective TTL.
package cache
