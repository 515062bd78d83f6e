package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-auth/internal/persistence"
)

const keyPrefix = "cache:"

// Manager is a cache-aside layer over the shared Redis connection.
// Values are stored as JSON under the cache: namespace.
type Manager struct {
	redis  *persistence.ConnectionManager
	logger *zap.Logger
	ttl    time.Duration
}

// NewManager builds a cache manager with the given default TTL.
func NewManager(redis *persistence.ConnectionManager, logger *zap.Logger, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Manager{redis: redis, logger: logger, ttl: ttl}
}

// Get unmarshals the cached value into dest. Returns false on a miss.
func (m *Manager) Get(ctx context.Context, key string, dest any) (bool, error) {
	client, err := m.redis.Get(ctx)
	if err != nil {
		return false, err
	}

	data, err := client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a value with the given TTL; ttl <= 0 uses the default.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	client, err := m.redis.Get(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = m.ttl
	}
	return client.Set(ctx, keyPrefix+key, data, ttl).Err()
}

// Delete removes a single cache entry.
func (m *Manager) Delete(ctx context.Context, key string) error {
	client, err := m.redis.Get(ctx)
	if err != nil {
		return err
	}
	return client.Del(ctx, keyPrefix+key).Err()
}

// DeletePattern removes every entry matching the glob pattern.
func (m *Manager) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	client, err := m.redis.Get(ctx)
	if err != nil {
		return 0, err
	}

	var deleted int64
	iter := client.Scan(ctx, 0, keyPrefix+pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// Remember returns the cached value for key, computing and storing it on a
// miss. Concurrent misses may each invoke compute; the last writer wins.
// A failure to persist the computed value is logged but does not fail the
// call, and the computed value is still returned through dest.
func (m *Manager) Remember(ctx context.Context, key string, dest any, ttl time.Duration, compute func(context.Context) (any, error)) error {
	hit, err := m.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	if hit {
		return nil
	}

	value, err := compute(ctx)
	if err != nil {
		return err
	}

	if err := m.Set(ctx, key, value, ttl); err != nil {
		m.logger.Warn("failed to persist computed cache value", zap.String("key", key), zap.Error(err))
	}

	// Round-trip through JSON so hits and misses yield the same shape.
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
