package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces delivery markers in Redis.
const KeyPrefix = "reminder:sent:"

// ProcessedSet keeps delivery markers in Redis so they survive restarts and
// are shared between worker processes. Markers expire after ttl.
type ProcessedSet struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// NewProcessedSet creates a ProcessedSet on client. A non-positive ttl means 24h.
func NewProcessedSet(client *redis.Client, ttl time.Duration) *ProcessedSet {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ProcessedSet{client: client, ttl: ttl}
}

// Seen reports whether key has been marked and not yet expired.
func (s *ProcessedSet) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, KeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Mark records key as delivered. An existing marker is left untouched, so
// its expiry still counts from the first delivery.
func (s *ProcessedSet) Mark(ctx context.Context, key string) error {
	if err := s.client.SetNX(ctx, KeyPrefix+key, "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return nil
}
