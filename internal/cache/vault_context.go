package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"linkvault/internal/types"
)

const (
	DefaultContextTTL = time.Hour

	sampleFolders  = 10
	notesPerFolder = 5
)

// VaultContextCache holds the vault inventory used for categorization for a
// bounded time. Concurrent refreshes are allowed; the last writer wins.
type VaultContextCache struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	value     *types.VaultContext
	fetchedAt time.Time
}

type ContextOption func(*VaultContextCache)

// WithClock replaces the time source used for expiry.
func WithClock(now func() time.Time) ContextOption {
	return func(c *VaultContextCache) {
		c.now = now
	}
}

func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *VaultContextCache) {
		c.logger = logger
	}
}

func NewVaultContextCache(ttl time.Duration, opts ...ContextOption) *VaultContextCache {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	c := &VaultContextCache{
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached context while it is younger than the TTL and
// rebuilds it from store otherwise. Folder or tag listing failures are
// returned; note sampling failures are not.
func (c *VaultContextCache) Get(ctx context.Context, store types.NoteStore) (*types.VaultContext, error) {
	c.mu.Lock()
	if c.value != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.fetch(ctx, store)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.value = v
	c.fetchedAt = c.now()
	c.mu.Unlock()

	return v, nil
}

func (c *VaultContextCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = nil
	c.fetchedAt = time.Time{}
	c.logger.Debug("Vault context cache invalidated")
}

func (c *VaultContextCache) fetch(ctx context.Context, store types.NoteStore) (*types.VaultContext, error) {
	var folders, tags []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		folders, err = store.ListFolders(gctx)
		if err != nil {
			return fmt.Errorf("failed to list folders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tags, err = store.ListTags(gctx)
		if err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(folders) > types.MaxContextFolders {
		folders = folders[:types.MaxContextFolders]
	}
	if len(tags) > types.MaxContextTags {
		tags = tags[:types.MaxContextTags]
	}

	sampled := folders
	if len(sampled) > sampleFolders {
		sampled = sampled[:sampleFolders]
	}

	samples := make([][]types.NoteSample, len(sampled))
	var wg sync.WaitGroup
	for i, folder := range sampled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			notes, err := store.SampleNotes(ctx, folder, notesPerFolder)
			if err != nil {
				c.logger.Debug("Skipping folder sample", "folder", folder, "error", err)
				return
			}
			if len(notes) > notesPerFolder {
				notes = notes[:notesPerFolder]
			}
			samples[i] = notes
		}()
	}
	wg.Wait()

	var recent []types.NoteSample
	for _, notes := range samples {
		recent = append(recent, notes...)
	}

	c.logger.Debug("Vault context fetched", "folders", len(folders), "tags", len(tags), "samples", len(recent))

	return &types.VaultContext{
		Folders:      folders,
		Tags:         tags,
		RecentNotes:  recent,
		Organization: types.OrganizationFreeform,
	}, nil
}
