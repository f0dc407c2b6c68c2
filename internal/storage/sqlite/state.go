package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"linkvault/internal/storage"
	"linkvault/internal/types"
)

type stateStore struct {
	db *sql.DB
}

func newStateStore(db *sql.DB) storage.StateStore {
	return &stateStore{db: db}
}

func (s *stateStore) GetCurrent(ctx context.Context) (*types.ProcessingState, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM batch_state WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch state: %w", err)
	}

	var state types.ProcessingState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to decode batch state: %w", err)
	}
	return &state, nil
}

func (s *stateStore) SetCurrent(ctx context.Context, state *types.ProcessingState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode batch state: %w", err)
	}

	query := `
		INSERT INTO batch_state (id, batch_id, state, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			batch_id = excluded.batch_id,
			state = excluded.state,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, state.BatchID, string(data)); err != nil {
		return fmt.Errorf("failed to store batch state: %w", err)
	}
	return nil
}
