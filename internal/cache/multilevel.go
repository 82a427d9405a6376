package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Cache is the read-through cache used by the services.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type MultiLevelConfig struct {
	L1TTL        time.Duration
	L1MaxEntries int
	Breaker      BreakerConfig
}

// MultiLevelCache checks process memory first, then redis. Redis failures
// degrade to memory-only behaviour instead of failing the request.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	l1TTL   time.Duration
	breaker *Breaker
	metrics *Metrics
	logger  *zap.Logger
}

func NewMultiLevelCache(l2 *RedisCache, config MultiLevelConfig, logger *zap.Logger) *MultiLevelCache {
	if config.L1TTL <= 0 {
		config.L1TTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiLevelCache{
		l1:      NewMemoryCache(config.L1MaxEntries),
		l2:      l2,
		l1TTL:   config.L1TTL,
		breaker: NewBreaker(config.Breaker),
		metrics: &Metrics{},
		logger:  logger,
	}
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, ok := c.l1.Get(key); ok {
		c.metrics.hits.Add(1)
		return decode(data, dest)
	}

	if c.l2 == nil {
		c.metrics.misses.Add(1)
		return ErrCacheMiss
	}

	var data []byte
	err := c.breaker.Execute(func() error {
		var getErr error
		data, getErr = c.l2.Get(ctx, key)
		return getErr
	})
	switch {
	case err == nil:
		c.metrics.hits.Add(1)
		c.l1.Set(key, data, c.l1TTL)
		return decode(data, dest)
	case errors.Is(err, ErrCacheMiss):
		c.metrics.misses.Add(1)
		return ErrCacheMiss
	default:
		c.metrics.errors.Add(1)
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return ErrCacheMiss
	}
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	l1TTL := c.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	c.l1.Set(key, data, l1TTL)
	c.metrics.sets.Add(1)

	if c.l2 == nil {
		return nil
	}
	if err := c.breaker.Execute(func() error { return c.l2.Set(ctx, key, data, ttl) }); err != nil {
		c.metrics.errors.Add(1)
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Delete must reach redis, otherwise a stale entry would outlive an update.
func (c *MultiLevelCache) Delete(ctx context.Context, keys ...string) error {
	c.l1.Delete(keys...)
	c.metrics.deletes.Add(1)

	if c.l2 == nil {
		return nil
	}
	if err := c.l2.Delete(ctx, keys...); err != nil {
		c.metrics.errors.Add(1)
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
	return nil
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"metrics":    c.metrics.Snapshot(),
		"l1_entries": c.l1.Len(),
		"breaker":    c.breaker.State().String(),
	}
	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}
	return stats
}

func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 == nil {
		return nil
	}
	return c.l2.Health(ctx)
}

func decode(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}
