package storage

import (
	"context"
	"sync"

	"linkvault/internal/config"
	"linkvault/internal/types"
)

func init() {
	RegisterFactory("memory", func(context.Context, config.StorageConfig) (StorageInterface, error) {
		return NewMemoryStorage(), nil
	})
}

// MemoryStorage keeps state for the life of the process only.
type MemoryStorage struct {
	mu      sync.RWMutex
	current *types.ProcessingState
	history []types.HistoryEntry
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) State() StateStore {
	return m
}

func (m *MemoryStorage) History() HistoryStore {
	return m
}

func (m *MemoryStorage) Close(ctx context.Context) error {
	return nil
}

func (m *MemoryStorage) GetCurrent(ctx context.Context) (*types.ProcessingState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone(), nil
}

func (m *MemoryStorage) SetCurrent(ctx context.Context, state *types.ProcessingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = state.Clone()
	return nil
}

func (m *MemoryStorage) Append(ctx context.Context, entries ...types.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := make([]types.HistoryEntry, 0, len(entries)+len(m.history))
	for i := len(entries) - 1; i >= 0; i-- {
		merged = append(merged, entries[i])
	}
	merged = append(merged, m.history...)
	if len(merged) > MaxHistory {
		merged = merged[:MaxHistory]
	}
	m.history = merged
	return nil
}

func (m *MemoryStorage) List(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = ClampLimit(limit)
	if limit > len(m.history) {
		limit = len(m.history)
	}
	return append([]types.HistoryEntry(nil), m.history[:limit]...), nil
}
