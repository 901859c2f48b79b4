// Package sqlite implements the Store contract (internal/registry/store)
// on top of a single-file SQLite database: WAL journaling, a single open
// connection, and a busy_timeout so short write contention
// resolves without surfacing SQLITE_BUSY to callers.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	registrystore "github.com/recurator/tram/internal/registry/store"
)

func init() {
	registrystore.Register(registrystore.Plugin{
		Name: "sqlite",
		Loader: func(ctx context.Context, path string) (registrystore.Store, error) {
			return Open(ctx, path)
		},
	})
}

// Store is the sqlite-backed implementation of registrystore.Store.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex // serializes writes beyond what a single *sql.DB conn already does
	path string
}

// Open creates or opens the database at path, applying WAL journaling and
// the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB so a vector backend sharing this
// connection (internal/plugin/vector/sqlitevec) can create its own virtual
// tables against the same database file.
func (s *Store) DB() *sql.DB {
	return s.db
}

var _ registrystore.Store = (*Store)(nil)
