package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// MemoryCache is the in-process ExactCache used when no Redis address is
// configured. Entries are lost on restart.
type MemoryCache struct {
	items  *gocache.Cache
	logger *zap.Logger
}

func NewMemoryCache(defaultTTL, cleanupInterval time.Duration, logger *zap.Logger) *MemoryCache {
	return &MemoryCache{
		items:  gocache.New(defaultTTL, cleanupInterval),
		logger: logger,
	}
}

func (c *MemoryCache) Get(_ context.Context, fingerprint string) (string, bool) {
	value, found := c.items.Get(fingerprint)
	if !found {
		return "", false
	}
	answer, ok := value.(string)
	return answer, ok
}

func (c *MemoryCache) Put(_ context.Context, fingerprint, answer string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(fingerprint, answer, ttl)
}

func (c *MemoryCache) Clear(_ context.Context) (int, error) {
	removed := c.items.ItemCount()
	c.items.Flush()
	c.logger.Info("Exact cache cleared", zap.Int("removed", removed))
	return removed, nil
}

func (c *MemoryCache) Len(_ context.Context) (int, error) {
	return c.items.ItemCount(), nil
}
