package sqlite

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkvault/internal/config"
	"linkvault/internal/storage"
	"linkvault/internal/types"
)

func openTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := New(t.Context(), filepath.Join(t.TempDir(), "data", "linkvault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(t.Context()) })
	return s
}

func TestStateRoundTrip(t *testing.T) {
	s := openTestDB(t)

	got, err := s.State().GetCurrent(t.Context())
	require.NoError(t, err)
	assert.Nil(t, got)

	state := &types.ProcessingState{
		BatchID:     "b1",
		Active:      true,
		URLs:        []string{"https://example.com/a"},
		URLStatuses: map[string]types.URLStatus{"https://example.com/a": types.StatusExtracting},
		StartedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.State().SetCurrent(t.Context(), state))

	state.BatchID = "b2"
	state.Active = false
	require.NoError(t, s.State().SetCurrent(t.Context(), state))

	got, err = s.State().GetCurrent(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "b2", got.BatchID)
	assert.False(t, got.Active)
	assert.Equal(t, types.StatusExtracting, got.URLStatuses["https://example.com/a"])
}

func TestHistoryCappedNewestFirst(t *testing.T) {
	s := openTestDB(t)

	for batch := 0; batch < 11; batch++ {
		var entries []types.HistoryEntry
		for i := 0; i < 10; i++ {
			n := batch*10 + i
			entries = append(entries, types.HistoryEntry{
				ID:          fmt.Sprintf("e%03d", n),
				BatchID:     fmt.Sprintf("b%d", batch),
				Result:      types.ProcessingResult{URL: fmt.Sprintf("https://example.com/%d", n), Status: types.ResultFailed, ErrorCategory: types.ErrNetwork},
				CompletedAt: time.Unix(int64(n), 0),
			})
		}
		require.NoError(t, s.History().Append(t.Context(), entries...))
	}

	all, err := s.History().List(t.Context(), 500)
	require.NoError(t, err)
	require.Len(t, all, storage.MaxHistory)
	assert.Equal(t, "e109", all[0].ID)
	assert.Equal(t, "e010", all[len(all)-1].ID)
	assert.Equal(t, types.ErrNetwork, all[0].Result.ErrorCategory)
	assert.Equal(t, "b10", all[0].BatchID)

	few, err := s.History().List(t.Context(), 5)
	require.NoError(t, err)
	assert.Len(t, few, 5)
}

func TestFactoryRegistered(t *testing.T) {
	_, err := storage.New(t.Context(), config.StorageConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "f.db")})
	require.NoError(t, err)
}
