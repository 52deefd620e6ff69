// Package sqlite is the durable kv.Store backend on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fincontrol/internal/kv"
	"fincontrol/internal/log"

	_ "modernc.org/sqlite"
)

const (
	selectValue = `SELECT value FROM kv WHERE key = ?`
	upsertValue = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	deleteValue = `DELETE FROM kv WHERE key = ?`
	deleteAll   = `DELETE FROM kv`
)

type Store struct {
	db     *sql.DB
	logger *log.Logger
}

func Open(dbPath string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Migrations first: they use their own connection and must not race the pool.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.WithComponent(log.ComponentKV).With(log.FieldBackend, "sqlite"),
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	var value string
	err := s.db.QueryRowContext(ctx, selectValue, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.fail(ctx, log.OpGet, key, err)
		return nil, false
	}
	return json.RawMessage(value), true
}

func (s *Store) Set(ctx context.Context, key string, value any) bool {
	b, err := json.Marshal(value)
	if err != nil {
		s.fail(ctx, log.OpSet, key, err)
		return false
	}
	if _, err := s.db.ExecContext(ctx, upsertValue, key, string(b), time.Now().UTC()); err != nil {
		s.fail(ctx, log.OpSet, key, err)
		return false
	}
	return true
}

// SetMany implements kv.Batcher in a single transaction.
func (s *Store) SetMany(ctx context.Context, values map[string]any) bool {
	encoded, err := kv.Encode(values)
	if err != nil {
		s.fail(ctx, log.OpSet, "", err)
		return false
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.fail(ctx, log.OpSet, "", fmt.Errorf("begin tx: %w", err))
		return false
	}
	now := time.Now().UTC()
	for key, b := range encoded {
		if _, err := tx.ExecContext(ctx, upsertValue, key, string(b), now); err != nil {
			_ = tx.Rollback()
			s.fail(ctx, log.OpSet, key, err)
			return false
		}
	}
	if err := tx.Commit(); err != nil {
		s.fail(ctx, log.OpSet, "", fmt.Errorf("commit: %w", err))
		return false
	}
	return true
}

func (s *Store) Remove(ctx context.Context, key string) bool {
	if _, err := s.db.ExecContext(ctx, deleteValue, key); err != nil {
		s.fail(ctx, log.OpRemove, key, err)
		return false
	}
	return true
}

func (s *Store) Clear(ctx context.Context) bool {
	if _, err := s.db.ExecContext(ctx, deleteAll); err != nil {
		s.fail(ctx, log.OpClear, "", err)
		return false
	}
	return true
}

func (s *Store) fail(ctx context.Context, op, key string, err error) {
	s.logger.ErrorContext(ctx, "SQLite key-value operation failed",
		log.FieldOperation, op,
		log.FieldKey, key,
		log.FieldError, err)
}
