package redis

import (
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkvault/internal/storage"
	"linkvault/internal/types"
)

// These tests need a running server, e.g. LINKVAULT_TEST_REDIS=localhost:6379.
func testStorage(t *testing.T) *RedisStorage {
	t.Helper()
	addr := os.Getenv("LINKVAULT_TEST_REDIS")
	if addr == "" {
		t.Skip("LINKVAULT_TEST_REDIS not set")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	require.NoError(t, client.Ping(t.Context()).Err())

	prefix := fmt.Sprintf("linkvault-test-%d", time.Now().UnixNano())
	s := NewWithClient(client, prefix)
	t.Cleanup(func() {
		client.Del(t.Context(), s.stateKey, s.historyKey)
		client.Close()
	})
	return s
}

func TestRedisState(t *testing.T) {
	s := testStorage(t)

	got, err := s.GetCurrent(t.Context())
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.SetCurrent(t.Context(), &types.ProcessingState{BatchID: "b1", Cancelled: true}))
	got, err = s.GetCurrent(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "b1", got.BatchID)
	assert.True(t, got.Cancelled)
}

func TestRedisHistory(t *testing.T) {
	s := testStorage(t)

	for i := 0; i < 105; i++ {
		require.NoError(t, s.Append(t.Context(), types.HistoryEntry{ID: fmt.Sprintf("e%d", i)}))
	}

	all, err := s.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, all, storage.MaxHistory)
	assert.Equal(t, "e104", all[0].ID)
	assert.Equal(t, "e5", all[len(all)-1].ID)
}

func TestKeys(t *testing.T) {
	s := NewWithClient(goredis.NewClient(&goredis.Options{Addr: "localhost:0"}), "")
	assert.Equal(t, "linkvault:state", s.stateKey)
	assert.Equal(t, "linkvault:history", s.historyKey)
}
