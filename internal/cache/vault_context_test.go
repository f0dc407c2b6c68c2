package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkvault/internal/testutil"
	"linkvault/internal/types"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newStore() *testutil.MemoryStore {
	store := testutil.NewMemoryStore()
	store.Folders = []string{"Tech", "Reading"}
	store.Tags = []string{"ai", "go"}
	store.Samples["Tech"] = []types.NoteSample{{Folder: "Tech", Title: "Goroutines"}}
	store.Samples["Reading"] = []types.NoteSample{{Folder: "Reading", Title: "Essays"}}
	return store
}

func TestVaultContextCacheReusesWithinTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewVaultContextCache(time.Hour, WithClock(clock.Now))
	store := newStore()

	first, err := c.Get(context.Background(), store)
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	second, err := c.Get(context.Background(), store)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, store.Calls("ListFolders"))
	assert.Equal(t, 1, store.Calls("ListTags"))
}

func TestVaultContextCacheRefetchesAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewVaultContextCache(time.Hour, WithClock(clock.Now))
	store := newStore()

	first, err := c.Get(context.Background(), store)
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)
	second, err := c.Get(context.Background(), store)
	require.NoError(t, err)
	third, err := c.Get(context.Background(), store)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Same(t, second, third)
	assert.Equal(t, 2, store.Calls("ListFolders"))
	assert.Equal(t, 2, store.Calls("ListTags"))
}

func TestVaultContextCacheInvalidate(t *testing.T) {
	c := NewVaultContextCache(time.Hour)
	store := newStore()

	_, err := c.Get(context.Background(), store)
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.Get(context.Background(), store)
	require.NoError(t, err)

	assert.Equal(t, 2, store.Calls("ListFolders"))
}

func TestVaultContextCacheContents(t *testing.T) {
	c := NewVaultContextCache(time.Hour)
	vc, err := c.Get(context.Background(), newStore())
	require.NoError(t, err)

	assert.Equal(t, []string{"Tech", "Reading"}, vc.Folders)
	assert.Equal(t, []string{"ai", "go"}, vc.Tags)
	assert.Equal(t, []types.NoteSample{
		{Folder: "Tech", Title: "Goroutines"},
		{Folder: "Reading", Title: "Essays"},
	}, vc.RecentNotes)
}

func TestVaultContextCacheToleratesSampleFailure(t *testing.T) {
	store := newStore()
	store.SampleErr["Tech"] = errors.New("boom")

	c := NewVaultContextCache(time.Hour)
	vc, err := c.Get(context.Background(), store)
	require.NoError(t, err)

	assert.Equal(t, []types.NoteSample{{Folder: "Reading", Title: "Essays"}}, vc.RecentNotes)
}

func TestVaultContextCachePropagatesListFailure(t *testing.T) {
	store := newStore()
	store.TagsErr = &types.VaultError{StatusCode: 500, Endpoint: "/tags"}

	c := NewVaultContextCache(time.Hour)
	_, err := c.Get(context.Background(), store)
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to list tags")

	store.TagsErr = nil
	_, err = c.Get(context.Background(), store)
	assert.NoError(t, err)
}

func TestVaultContextCacheCaps(t *testing.T) {
	store := testutil.NewMemoryStore()
	for i := 0; i < 150; i++ {
		store.Folders = append(store.Folders, fmt.Sprintf("F%03d", i))
	}
	for i := 0; i < 250; i++ {
		store.Tags = append(store.Tags, fmt.Sprintf("t%03d", i))
	}

	c := NewVaultContextCache(time.Hour)
	vc, err := c.Get(context.Background(), store)
	require.NoError(t, err)

	assert.Len(t, vc.Folders, types.MaxContextFolders)
	assert.Len(t, vc.Tags, types.MaxContextTags)
	assert.Equal(t, sampleFolders, store.Calls("SampleNotes"))
}
