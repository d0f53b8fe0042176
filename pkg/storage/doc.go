// Package storage wraps the Redis client behind the small set of operations
// the analytics service needs: hash counters, the popularity sorted set,
// capped lists, and TTL management.
package storage
