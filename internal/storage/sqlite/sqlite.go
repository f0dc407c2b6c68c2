package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"linkvault/internal/config"
	"linkvault/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	storage.RegisterFactory("sqlite", func(ctx context.Context, cfg config.StorageConfig) (storage.StorageInterface, error) {
		return New(ctx, cfg.Path)
	})
}

type SQLiteStorage struct {
	conn    *sql.DB
	state   storage.StateStore
	history storage.HistoryStore
}

func New(ctx context.Context, dbPath string) (*SQLiteStorage, error) {
	slog.Info("Initializing SQLite storage", "path", dbPath)

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000", dbPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("Storage initialized successfully")

	return &SQLiteStorage{
		conn:    conn,
		state:   newStateStore(conn),
		history: newHistoryStore(conn),
	}, nil
}

func runMigrations(conn *sql.DB) error {
	slog.Debug("Running database migrations")

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Debug("Migrations completed successfully")
	return nil
}

func (s *SQLiteStorage) GetConnection() *sql.DB {
	return s.conn
}

func (s *SQLiteStorage) State() storage.StateStore {
	return s.state
}

func (s *SQLiteStorage) History() storage.HistoryStore {
	return s.history
}

func (s *SQLiteStorage) Close(ctx context.Context) error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
