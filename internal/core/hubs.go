package core

import (
	"context"
	"sync"
)

// HubTagSet records which hub notes are already in flight for the current
// batch, keyed by hub path. The first worker to claim a hub owns creating
// it; the rest wait for it before appending.
type HubTagSet struct {
	mu   sync.Mutex
	tags map[string]chan struct{}
}

func NewHubTagSet() *HubTagSet {
	return &HubTagSet{tags: make(map[string]chan struct{})}
}

// Claim marks the hub at path as seen. The first caller gets first=true
// and must call settle once the hub note exists (or creation gave up).
// Later callers get a channel that is closed by settle.
func (s *HubTagSet) Claim(path string) (first bool, ready <-chan struct{}, settle func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.tags[path]; ok {
		return false, ch, func() {}
	}

	ch := make(chan struct{})
	s.tags[path] = ch
	return true, ch, sync.OnceFunc(func() { close(ch) })
}

func (s *HubTagSet) Contains(tag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tags[tag]
	return ok
}

func (s *HubTagSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tags)
}

// InflightSet tracks normalized URLs being processed in the current batch so
// a repeated link waits for the first copy instead of racing it.
type InflightSet struct {
	mu      sync.Mutex
	entries map[string]*InflightClaim
}

func NewInflightSet() *InflightSet {
	return &InflightSet{entries: make(map[string]*InflightClaim)}
}

type InflightClaim struct {
	done    chan struct{}
	created bool
}

// Claim returns the claim for key and whether the caller is its owner.
func (s *InflightSet) Claim(key string) (*InflightClaim, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.entries[key]; ok {
		return c, false
	}

	c := &InflightClaim{done: make(chan struct{})}
	s.entries[key] = c
	return c, true
}

// Release must be called exactly once, by the owner, when its URL reached a
// terminal state.
func (c *InflightClaim) Release(created bool) {
	c.created = created
	close(c.done)
}

// Wait blocks until the owner releases the claim and reports whether it
// created a note.
func (c *InflightClaim) Wait(ctx context.Context) (bool, error) {
	select {
	case <-c.done:
		return c.created, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
