package core

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"elaspicdb/internal/artifact"
	"elaspicdb/internal/blob"
	"elaspicdb/internal/config"
	"elaspicdb/internal/infra/persistence/postgres"
	"elaspicdb/internal/infra/persistence/sqlite"
	"elaspicdb/internal/infra/persistence/sqlstore"
	"elaspicdb/pkg/domain"
)

// sqliteMemoryPath selects a private in-memory sqlite database.
const sqliteMemoryPath = ":memory:"

// OpenPersistentStore selects a backend from the configured database type.
//
//	sqlite:     sqlite_db_path (":memory:" for an ephemeral database)
//	postgresql: db_username, db_password, db_url, db_schema
func OpenPersistentStore(ctx context.Context, cfg *config.Config) (domain.PersistentStore, error) {
	var (
		store *sqlstore.Store
		err   error
	)
	switch cfg.DBType {
	case config.DBSQLite:
		if cfg.SQLiteDBPath == sqliteMemoryPath {
			store, err = sqlite.NewMemoryStore(ctx)
		} else {
			store, err = sqlite.NewStore(ctx, cfg.SQLiteDBPath)
		}
	case config.DBPostgreSQL:
		dsn := postgres.DSN(cfg.DBUsername, cfg.DBPassword, cfg.DBURL, cfg.DBSchema)
		store, err = postgres.NewStore(ctx, dsn, cfg.DBSchema)
	default:
		return nil, fmt.Errorf("unknown db_type %q", cfg.DBType)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Open assembles a service from configuration: the persistent store, the
// archive behind path_to_archive and the temporary tier under the configured
// temp path. reg may be nil.
func Open(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, opts ...Option) (*Service, error) {
	archive, err := blob.Open(ctx, cfg.PathToArchive)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	var artifactOpts []artifact.Option
	if reg != nil {
		artifactOpts = append(artifactOpts, artifact.WithRegisterer(reg))
	}
	artifacts, err := artifact.New(cfg.TempPath, archive, artifactOpts...)
	if err != nil {
		return nil, err
	}
	store, err := OpenPersistentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithImmutable(cfg.DBIsImmutable)}, opts...)
	return NewService(store, artifacts, opts...), nil
}
