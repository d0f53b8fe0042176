// Package client is the Go SDK for the analytics service. It batches
// interaction events in memory, flushes them on size or idle triggers,
// retries failed sends with linear backoff, and caches popularity lookups.
package client
