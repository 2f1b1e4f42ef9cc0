// Package sqlite opens the relational store on an embedded SQLite database
// using the pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"elaspicdb/internal/infra/persistence/sqlstore"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	defaultPath = "elaspic.db"
	pragmas     = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
)

// NewStore opens (creating if needed) the SQLite database at path and applies
// the schema. An empty path falls back to ./elaspic.db.
func NewStore(ctx context.Context, path string) (*sqlstore.Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store, err := sqlstore.New(ctx, db, sqlstore.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewMemoryStore opens a private in-memory database. The pool is pinned to a
// single connection because every new SQLite memory connection starts empty.
func NewMemoryStore(ctx context.Context) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite", ":memory:"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	store, err := sqlstore.New(ctx, db, sqlstore.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
