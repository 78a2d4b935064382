package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scanBatch = 500

type RedisCache struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

func NewRedisCache(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (c *RedisCache) key(fingerprint string) string {
	return c.prefix + ":" + fingerprint
}

func (c *RedisCache) Get(ctx context.Context, fingerprint string) (string, bool) {
	answer, err := c.client.Get(ctx, c.key(fingerprint)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.Warn("Exact cache read failed, treating as miss",
			zap.String("fingerprint", fingerprint),
			zap.Error(fmt.Errorf("%w: %w", ErrUnavailable, err)),
		)
		return "", false
	}
	return answer, true
}

func (c *RedisCache) Put(ctx context.Context, fingerprint, answer string, ttl time.Duration) {
	if err := c.client.Set(ctx, c.key(fingerprint), answer, ttl).Err(); err != nil {
		c.logger.Warn("Exact cache write failed",
			zap.String("fingerprint", fingerprint),
			zap.Error(fmt.Errorf("%w: %w", ErrUnavailable, err)),
		)
	}
}

// Clear removes every key under the cache prefix and reports how many went.
func (c *RedisCache) Clear(ctx context.Context) (int, error) {
	removed := 0
	err := c.scan(ctx, func(keys []string) error {
		n, err := c.client.Del(ctx, keys...).Result()
		removed += int(n)
		return err
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clear exact cache: %w", errors.Join(ErrUnavailable, err))
	}

	c.logger.Info("Exact cache cleared", zap.Int("removed", removed))
	return removed, nil
}

func (c *RedisCache) Len(ctx context.Context) (int, error) {
	count := 0
	err := c.scan(ctx, func(keys []string) error {
		count += len(keys)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count exact cache keys: %w", errors.Join(ErrUnavailable, err))
	}
	return count, nil
}

func (c *RedisCache) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+":*", scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
