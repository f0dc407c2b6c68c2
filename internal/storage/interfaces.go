package storage

import (
	"context"

	"linkvault/internal/types"
)

// MaxHistory is how many history entries are retained.
const MaxHistory = 100

type StorageInterface interface {
	State() StateStore
	History() HistoryStore
	Close(ctx context.Context) error
}

// StateStore keeps the snapshot of the current (or last) batch.
type StateStore interface {
	// GetCurrent returns nil without an error when no batch has run yet.
	GetCurrent(ctx context.Context) (*types.ProcessingState, error)
	SetCurrent(ctx context.Context, state *types.ProcessingState) error
}

// HistoryStore is a capped list of finished results, newest first.
type HistoryStore interface {
	Append(ctx context.Context, entries ...types.HistoryEntry) error
	List(ctx context.Context, limit int) ([]types.HistoryEntry, error)
}

// ClampLimit bounds a caller-supplied list size to the retained history.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxHistory {
		return MaxHistory
	}
	return limit
}
