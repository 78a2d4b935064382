package redisclient

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"family-doctor/pkg/config"
)

// NewClient connects to Redis. An unreachable server is logged, not fatal:
// the exact cache treats every failed call as a miss.
func NewClient(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis is unreachable, exact cache will miss until it recovers",
			zap.String("addr", cfg.Addr),
			zap.Error(err),
		)
		return client
	}

	logger.Info("Redis connection established", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return client
}
