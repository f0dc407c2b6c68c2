package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"linkvault/internal/config"
	"linkvault/internal/storage"
	"linkvault/internal/types"
)

func init() {
	storage.RegisterFactory("redis", func(ctx context.Context, cfg config.StorageConfig) (storage.StorageInterface, error) {
		return New(ctx, cfg)
	})
}

// RedisStorage keeps the batch snapshot under one key and history in a
// capped list.
type RedisStorage struct {
	client     goredis.UniversalClient
	stateKey   string
	historyKey string
}

func New(ctx context.Context, cfg config.StorageConfig) (*RedisStorage, error) {
	slog.Info("Initializing Redis storage", "addr", cfg.Addr, "db", cfg.DB)

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewWithClient(client, cfg.Prefix), nil
}

func NewWithClient(client goredis.UniversalClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "linkvault"
	}
	return &RedisStorage{
		client:     client,
		stateKey:   prefix + ":state",
		historyKey: prefix + ":history",
	}
}

func (s *RedisStorage) State() storage.StateStore {
	return s
}

func (s *RedisStorage) History() storage.HistoryStore {
	return s
}

func (s *RedisStorage) Close(ctx context.Context) error {
	return s.client.Close()
}

func (s *RedisStorage) GetCurrent(ctx context.Context) (*types.ProcessingState, error) {
	data, err := s.client.Get(ctx, s.stateKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch state: %w", err)
	}

	var state types.ProcessingState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode batch state: %w", err)
	}
	return &state, nil
}

func (s *RedisStorage) SetCurrent(ctx context.Context, state *types.ProcessingState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode batch state: %w", err)
	}
	if err := s.client.Set(ctx, s.stateKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store batch state: %w", err)
	}
	return nil
}

func (s *RedisStorage) Append(ctx context.Context, entries ...types.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]any, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode history entry: %w", err)
		}
		values = append(values, data)
	}

	// LPUSH puts the last value at the head, which keeps newest first.
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, s.historyKey, values...)
		pipe.LTrim(ctx, s.historyKey, 0, storage.MaxHistory-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *RedisStorage) List(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	limit = storage.ClampLimit(limit)

	raw, err := s.client.LRange(ctx, s.historyKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries := make([]types.HistoryEntry, 0, len(raw))
	for _, r := range raw {
		var e types.HistoryEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			slog.Warn("Skipping undecodable history entry", "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
