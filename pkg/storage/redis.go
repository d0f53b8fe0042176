package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store wraps the Redis client with the key-value operations the analytics
// service needs: hash counters, the popularity sorted set, capped lists, and
// plain integer counters for rate limiting.
type Store struct {
	client *redis.Client
	config Config
}

// NewStore creates a new Redis-backed store
func NewStore(config Config) (*Store, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	// Override with config values if provided
	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB >= 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisMaxRetries > 0 {
		opts.MaxRetries = config.RedisMaxRetries
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	// Set connection timeouts
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{
		client: client,
		config: config,
	}, nil
}

// Config returns the store configuration
func (s *Store) Config() Config {
	return s.config
}

// HIncrBy increments an integer field of a hash
func (s *Store) HIncrBy(ctx context.Context, key, field string, incr int64) error {
	return s.client.HIncrBy(ctx, key, field, incr).Err()
}

// HSet sets one or more fields of a hash
func (s *Store) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	return s.client.HSet(ctx, key, values).Err()
}

// HGetAll returns every field of a hash. A missing key yields an empty map,
// not an error.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	return fields, nil
}

// ZAdd upserts a member of a sorted set with the given score
func (s *Store) ZAdd(ctx context.Context, key, member string, score float64) error {
	return s.client.ZAdd(ctx, key, &redis.Z{Score: score, Member: member}).Err()
}

// ZRevRangeByScore returns up to limit members with scores in [min, max],
// highest score first.
func (s *Store) ZRevRangeByScore(ctx context.Context, key string, min, max int64, limit int64) ([]string, error) {
	members, err := s.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   strconv.FormatInt(min, 10),
		Max:   strconv.FormatInt(max, 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrangebyscore failed: %w", err)
	}
	return members, nil
}

// PushCapped prepends a value to a list and truncates the list to cap entries,
// oldest evicted first.
func (s *Store) PushCapped(ctx context.Context, key, value string, maxLen int64) error {
	if err := s.client.LPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("redis lpush failed: %w", err)
	}
	if err := s.client.LTrim(ctx, key, 0, maxLen-1).Err(); err != nil {
		return fmt.Errorf("redis ltrim failed: %w", err)
	}
	return nil
}

// LRange returns the list elements in [start, stop]
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.LRange(ctx, key, start, stop).Result()
}

// Incr increments a counter (for rate limiting)
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

// GetInt reads an integer counter; missing keys read as zero
func (s *Store) GetInt(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Expire sets a key's expiration
func (s *Store) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return s.client.Expire(ctx, key, expiration).Err()
}

// TTL returns the remaining time to live of a key
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key).Result()
}

// Del removes keys
func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// CountKeys counts keys matching a pattern using SCAN
func (s *Store) CountKeys(ctx context.Context, pattern string) (int64, error) {
	var count int64
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan failed for pattern %s: %w", pattern, err)
	}
	return count, nil
}

// Ping checks Redis connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client returns the underlying Redis client for health checks
func (s *Store) Client() *redis.Client {
	return s.client
}

// PoolStats returns connection pool statistics
func (s *Store) PoolStats() *redis.PoolStats {
	return s.client.PoolStats()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}
