package storage

import "time"

// Config holds Redis storage configuration
type Config struct {
	RedisURL        string `yaml:"redis_url"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisMaxRetries int    `yaml:"redis_max_retries"`
	RedisPoolSize   int    `yaml:"redis_pool_size"`

	// AggregateTTL is applied to app, daily, and recent-event keys on every
	// write. Global totals never expire.
	AggregateTTL time.Duration `yaml:"aggregate_ttl"`

	// RecentEventsCap bounds the per-app recent-events list.
	RecentEventsCap int64 `yaml:"recent_events_cap"`
}

// DefaultConfig returns the default storage configuration
func DefaultConfig() Config {
	return Config{
		RedisURL:        "redis://localhost:6379/0",
		RedisDB:         -1,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
		AggregateTTL:    30 * 24 * time.Hour,
		RecentEventsCap: 100,
	}
}
