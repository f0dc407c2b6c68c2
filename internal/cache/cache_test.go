package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache(t *testing.T) {
	c := NewCache[string, string](CacheConfig{TTL: time.Minute}, StringKey)

	_, ok := c.Get("notes/a.md")
	assert.False(t, ok)

	c.Set("notes/a.md", "content")
	c.Set("notes/b.md", "other")
	c.Set("hubs/ai.md", "hub")

	v, ok := c.Get("notes/a.md")
	assert.True(t, ok)
	assert.Equal(t, "content", v)
	assert.Equal(t, 3, c.Len())

	c.InvalidateKey("notes/a.md")
	_, ok = c.Get("notes/a.md")
	assert.False(t, ok)

	c.InvalidatePrefix("notes/")
	_, ok = c.Get("notes/b.md")
	assert.False(t, ok)
	_, ok = c.Get("hubs/ai.md")
	assert.True(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache[string, int](CacheConfig{TTL: time.Minute}, StringKey)
	c.SetWithTTL("short", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
}
