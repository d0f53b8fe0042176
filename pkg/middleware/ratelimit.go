package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/linuxapphub/apphub-analytics/pkg/storage"
)

// RateLimitConfig controls the fixed-window limiter.
type RateLimitConfig struct {
	// RequestsPerWindow is the maximum number of requests allowed per client
	// within a single window.
	RequestsPerWindow int64 `yaml:"requests_per_window"`
	// WindowDuration is the length of the fixed window.
	WindowDuration time.Duration `yaml:"window_duration"`
	// KeyPrefix namespaces limiter counters in Redis.
	KeyPrefix string `yaml:"key_prefix"`
}

// DefaultRateLimitConfig returns the standard limits: 100 requests per minute.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		KeyPrefix:         "rate_limit",
	}
}

// RateLimiter implements fixed-window rate limiting on top of Redis INCR.
// The window starts when the first request arrives for a client and expires
// WindowDuration later; the counter is not sliding. Two concurrent first
// requests can race between INCR and EXPIRE, which at worst lets a burst
// carry into the next window.
type RateLimiter struct {
	store  *storage.Store
	config RateLimitConfig
}

// NewRateLimiter creates a rate limiter using the given store.
func NewRateLimiter(store *storage.Store, config RateLimitConfig) *RateLimiter {
	if config.RequestsPerWindow <= 0 {
		config.RequestsPerWindow = 100
	}
	if config.WindowDuration <= 0 {
		config.WindowDuration = time.Minute
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit"
	}
	return &RateLimiter{store: store, config: config}
}

// Allow records one request for the client and reports whether it is within
// the window's budget. Counting happens before the check, so denied requests
// still consume the counter.
func (rl *RateLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	key := rl.key(clientID)

	count, err := rl.store.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// First request in the window owns the expiry
	if count == 1 {
		if err := rl.store.Expire(ctx, key, rl.config.WindowDuration); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= rl.config.RequestsPerWindow, nil
}

// Remaining reports how many requests the client has left in the current
// window without consuming any.
func (rl *RateLimiter) Remaining(ctx context.Context, clientID string) (int64, error) {
	count, err := rl.store.GetInt(ctx, rl.key(clientID))
	if err != nil {
		return 0, err
	}
	remaining := rl.config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the counter for a client, reopening its window immediately.
func (rl *RateLimiter) Reset(ctx context.Context, clientID string) error {
	return rl.store.Del(ctx, rl.key(clientID))
}

func (rl *RateLimiter) key(clientID string) string {
	return fmt.Sprintf("%s:%s", rl.config.KeyPrefix, clientID)
}
