package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	ckpterrors "github.com/randalmurphal/ckptkit/pkg/ckptkit/errors"
)

// SQLiteBackend stores checkpoints in a single SQLite file keyed by
// destination path. Useful when a run should produce one artifact
// instead of a directory of snapshot files.
type SQLiteBackend struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteBackend creates a SQLite checkpoint backend.
// The dbPath should be a file path (e.g. "./checkpoints.db") or
// ":memory:" for testing.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			path TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			size INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Save implements Interface.
func (s *SQLiteBackend) Save(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (path, data, size, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			data = excluded.data,
			size = excluded.size,
			updated_at = excluded.updated_at
	`, path, data, len(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &ckpterrors.IOError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// Load implements Interface.
func (s *SQLiteBackend) Load(ctx context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE path = ?`, path,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ckpterrors.NotFoundError{Path: path}
	}
	if err != nil {
		return nil, &ckpterrors.IOError{Op: "load", Path: path, Err: err}
	}
	return data, nil
}

// Remove implements Interface.
func (s *SQLiteBackend) Remove(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE path = ?`, path,
	); err != nil {
		return &ckpterrors.IOError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Exists implements PathChecker.
func (s *SQLiteBackend) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrClosed
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM snapshots WHERE path = ?`, path,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &ckpterrors.IOError{Op: "stat", Path: path, Err: err}
	}
	return true, nil
}

// Close implements Interface.
func (s *SQLiteBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
