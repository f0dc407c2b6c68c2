package cache

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a typed TTL cache over go-cache.
type Cache[K comparable, V any] struct {
	cache       *gocache.Cache
	mu          sync.RWMutex
	keyToString func(K) string
	logger      *slog.Logger
}

type CacheConfig struct {
	TTL    time.Duration
	Logger *slog.Logger
}

func NewCache[K comparable, V any](config CacheConfig, keyToString func(K) string) *Cache[K, V] {
	if config.TTL == 0 {
		config.TTL = 1 * time.Hour
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	goCacheInstance := gocache.New(config.TTL, config.TTL/2)
	config.Logger.Debug("Cache initialized", "ttl", config.TTL)

	return &Cache[K, V]{
		cache:       goCacheInstance,
		keyToString: keyToString,
		logger:      config.Logger,
	}
}

// StringKey is the key function for caches keyed by string.
func StringKey(s string) string {
	return s
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, found := c.cache.Get(c.keyToString(key))
	if !found {
		var zero V
		return zero, false
	}

	if typedValue, ok := value.(V); ok {
		return typedValue, true
	}

	var zero V
	return zero, false
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Set(c.keyToString(key), value, gocache.DefaultExpiration)
}

func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Set(c.keyToString(key), value, ttl)
}

func (c *Cache[K, V]) InvalidateKey(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stringKey := c.keyToString(key)
	c.cache.Delete(stringKey)
	c.logger.Debug("Cache key invalidated", "key", stringKey)
}

func (c *Cache[K, V]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
		}
	}
	c.logger.Debug("Cache prefix invalidated", "prefix", prefix)
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
}

func (c *Cache[K, V]) Len() int {
	return c.cache.ItemCount()
}
