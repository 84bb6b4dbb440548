// Package store implements the local, content-addressed archive: the
// SQLite-backed database of documents, transcripts, panels, chunks, and
// embeddings that every other package in grans reads from and writes to.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	grerrors "github.com/grans-cli/grans/internal/errors"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO
)

// Store wraps a single SQLite connection to the archive database. All
// access is serialized through a single *sql.DB with MaxOpenConns(1): the
// archive is a single-process, single-writer store, and WAL mode lets
// concurrent readers (e.g. a second grans invocation) proceed without
// blocking on the writer.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// validateIntegrity runs PRAGMA integrity_check against an existing,
// non-empty database file before grans opens it for writing. A corrupt
// store is surfaced as a structured error rather than silently deleted:
// the archive is the user's only copy of their meeting history.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return grerrors.StoreIOError("cannot open store for integrity check", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return grerrors.StoreIntegrityError("integrity check failed", err)
	}
	if result != "ok" {
		return grerrors.StoreIntegrityError(
			fmt.Sprintf("store is corrupted: %s", result), nil).
			WithSuggestion("restore from a backup or a Dropbox pull; grans will not delete a corrupted store automatically")
	}
	return nil
}

// Open opens (creating if necessary) the archive database at path. An
// empty path opens a private in-memory database, used by tests.
func Open(path string) (*Store, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, grerrors.StoreIOError(fmt.Sprintf("failed to create store directory %s", dir), err)
		}
		if err := validateIntegrity(path); err != nil {
			return nil, err
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, grerrors.StoreIOError("failed to open store", err)
	}

	// Single writer: SQLite serializes writes anyway, and a single
	// connection avoids "database is locked" churn against our own pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, grerrors.StoreIOError("failed to configure store pragmas", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// migrate applies pending migrations inside a transaction each, advancing
// PRAGMA user_version after each successful step.
func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return grerrors.StoreIOError("failed to read schema version", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return grerrors.StoreIOError("failed to begin migration", err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return grerrors.New(grerrors.ErrCodeSchemaMismatch,
				fmt.Sprintf("migration %d failed", m.Version), err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return grerrors.StoreIOError("failed to record schema version", err)
		}
		if err := tx.Commit(); err != nil {
			return grerrors.StoreIOError("failed to commit migration", err)
		}
		slog.Info("store_migrated", slog.Int("version", m.Version))
	}
	return nil
}

// Close checkpoints the WAL and closes the underlying connection. Safe to
// call multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// DB exposes the underlying connection for packages that need direct
// query access (search dispatcher, embedding index).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the filesystem path the store was opened at ("" for an
// in-memory store).
func (s *Store) Path() string {
	return s.path
}
