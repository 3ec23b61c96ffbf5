// Package sqlite provides a cache.Store backed by a SQLite database. Every
// snapshot envelope is one row of the snapshots table, keyed by its cache key.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asaidimu/go-ninja/core/cache"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS snapshots (
	key TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

const upsertSQL = `INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`

// dbRunner abstracts the methods shared by *sql.DB and *sql.Tx.
type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store keeps snapshot envelopes in a SQLite table.
type Store struct {
	db     *sql.DB
	owned  bool
	logger *zap.Logger
	now    func() time.Time
}

// Ensure Store implements the cache.Store interface.
var _ cache.Store = (*Store)(nil)

// Open opens (or creates) the database at path and prepares the snapshots
// table. The returned store owns the connection and closes it on Close.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	s, err := NewStore(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewStore wraps an existing connection and prepares the snapshots table.
func NewStore(ctx context.Context, db *sql.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "sqlite_store")),
		now:    time.Now,
	}, nil
}

func (s *Store) runner() dbRunner {
	return s.db
}

// Load returns the envelope stored under key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.runner().QueryRowContext(ctx, `SELECT data FROM snapshots WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		s.logger.Error("Failed to load snapshot", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	return data, true, nil
}

// Save replaces the envelope stored under key.
func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	s.logger.Debug("Saving snapshot", zap.String("key", key), zap.Int("bytes", len(data)))
	if _, err := s.runner().ExecContext(ctx, upsertSQL, key, data, s.now().Unix()); err != nil {
		s.logger.Error("Failed to save snapshot", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to save snapshot %s: %w", key, err)
	}
	return nil
}

// Entry describes a stored snapshot without its payload.
type Entry struct {
	Key       string
	Bytes     int
	UpdatedAt time.Time
}

// Entries lists the stored snapshots ordered by key.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.runner().QueryContext(ctx, `SELECT key, length(data), updated_at FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			updated int64
		)
		if err := rows.Scan(&e.Key, &e.Bytes, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.UpdatedAt = time.Unix(updated, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}
	return entries, nil
}

// Delete removes the snapshot stored under key. It reports whether a row was
// removed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	result, err := s.runner().ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the connection when the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
