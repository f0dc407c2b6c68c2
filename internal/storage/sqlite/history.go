package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"linkvault/internal/storage"
	"linkvault/internal/types"
)

type historyStore struct {
	db *sql.DB
}

func newHistoryStore(db *sql.DB) storage.HistoryStore {
	return &historyStore{db: db}
}

func (s *historyStore) Append(ctx context.Context, entries ...types.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO history (id, batch_id, url, status, result, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	for _, e := range entries {
		data, err := json.Marshal(e.Result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, e.ID, e.BatchID, e.Result.URL, string(e.Result.Status), string(data), e.CompletedAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert history entry: %w", err)
		}
	}

	prune := `DELETE FROM history WHERE seq NOT IN (SELECT seq FROM history ORDER BY seq DESC LIMIT ?)`
	if _, err := tx.ExecContext(ctx, prune, storage.MaxHistory); err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

func (s *historyStore) List(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	query := `
		SELECT id, batch_id, result, completed_at
		FROM history
		ORDER BY seq DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, storage.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var (
			entry types.HistoryEntry
			data  string
		)
		if err := rows.Scan(&entry.ID, &entry.BatchID, &data, &entry.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &entry.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}
