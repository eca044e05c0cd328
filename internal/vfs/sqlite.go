package vfs

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStamper persists stamps across processes. The UPSERT inside one
// transaction guarantees that concurrent passes touching the same header
// agree on a single "needs indexing" decision per (path, mtime, mode).
type SQLiteStamper struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite opens (or creates) the stamp database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStamper, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create stamp dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open stamp db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping stamp db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stamps (
			path  TEXT    NOT NULL,
			mode  INTEGER NOT NULL,
			mtime INTEGER NOT NULL,
			PRIMARY KEY (path, mode)
		)
	`); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("create stamps table: %w", err)
	}
	return &SQLiteStamper{db: db}, nil
}

// Stamp implements Stamper. Errors degrade to "needs indexing": indexing a
// file twice is correct, skipping it by mistake is not.
func (s *SQLiteStamper) Stamp(path string, mtime int64, mode int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return true
	}
	defer tx.Rollback() //nolint:errcheck

	var prev int64
	err = tx.QueryRow(
		`SELECT mtime FROM stamps WHERE path = ? AND mode = ?`, path, mode,
	).Scan(&prev)
	if err == nil && prev == mtime {
		return false
	}
	if err != nil && err != sql.ErrNoRows {
		return true
	}
	if _, err := tx.Exec(`
		INSERT INTO stamps (path, mode, mtime) VALUES (?, ?, ?)
		ON CONFLICT (path, mode) DO UPDATE SET mtime = excluded.mtime
	`, path, mode, mtime); err != nil {
		return true
	}
	_ = tx.Commit()
	return true
}

// Close releases the underlying database.
func (s *SQLiteStamper) Close() error {
	return s.db.Close()
}
