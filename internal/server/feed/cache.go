package feed

import (
	"time"

	"linkvault/internal/cache"
)

const (
	TypeRSS  = "rss"
	TypeAtom = "atom"
	TypeJSON = "json"
)

const renderTTL = time.Minute

// NewCache holds rendered feed documents keyed by feed type.
func NewCache() *cache.Cache[string, string] {
	return cache.NewCache[string, string](cache.CacheConfig{TTL: renderTTL}, cache.StringKey)
}
