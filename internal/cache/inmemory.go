package cache

import (
	"context"
	"strings"
	"time"

	goCache "github.com/patrickmn/go-cache"
	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/logger"
	"go.uber.org/fx"
)

// DefaultExpiration is the default expiration time for cache entries
const DefaultExpiration = 30 * time.Minute

// DefaultCleanupInterval is how often expired items are removed from the cache
const DefaultCleanupInterval = 1 * time.Hour

// InMemoryCache implements the Cache interface using github.com/patrickmn/go-cache
type InMemoryCache struct {
	cache *goCache.Cache
}

var _ Cache = (*InMemoryCache)(nil)

func Module() fx.Option {
	return fx.Provide(NewCache)
}

// NewCache builds the process cache. Entries default to the timezone cache ttl.
func NewCache(cfg *config.Configuration, log *logger.Logger) Cache {
	expiration := cfg.RecurringBills.TimezoneCacheTTL
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	log.Infow("initializing in-memory cache", "default_expiration", expiration)
	return NewInMemoryCache(expiration, DefaultCleanupInterval)
}

// NewInMemoryCache creates a new InMemoryCache instance
func NewInMemoryCache(defaultExpiration, cleanupInterval time.Duration) *InMemoryCache {
	return &InMemoryCache{
		cache: goCache.New(defaultExpiration, cleanupInterval),
	}
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	span := StartCacheSpan(ctx, "inmemory", "get", map[string]interface{}{"key": key})
	defer FinishSpan(span)

	value, found := c.cache.Get(key)
	if found {
		SetSpanSuccess(span)
	}
	return value, found
}

// Set adds a value to the cache with the specified expiration
func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration == 0 {
		expiration = goCache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

// Delete removes a key from the cache
func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

// DeleteByPrefix removes all keys with the given prefix
func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) {
	for k := range c.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			c.cache.Delete(k)
		}
	}
}

// Flush removes all items from the cache
func (c *InMemoryCache) Flush(_ context.Context) {
	c.cache.Flush()
}
