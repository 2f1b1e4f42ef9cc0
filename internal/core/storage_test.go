package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"elaspicdb/internal/config"
	"elaspicdb/internal/infra/persistence/sqlstore"
)

func TestOpenPersistentStoreSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{DBType: config.DBSQLite, SQLiteDBPath: filepath.Join(t.TempDir(), "db", "elaspic.db")}
	store, err := OpenPersistentStore(ctx, cfg)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer func() { _ = store.Close() }()
	s, ok := store.(*sqlstore.Store)
	if !ok {
		t.Fatalf("expected *sqlstore.Store, got %T", store)
	}
	if s.Dialect() != sqlstore.SQLite {
		t.Fatalf("unexpected dialect %v", s.Dialect())
	}
}

func TestOpenPersistentStoreMemory(t *testing.T) {
	store, err := OpenPersistentStore(context.Background(), &config.Config{DBType: config.DBSQLite, SQLiteDBPath: ":memory:"})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	_ = store.Close()
}

func TestOpenPersistentStoreUnknownType(t *testing.T) {
	store, err := OpenPersistentStore(context.Background(), &config.Config{DBType: config.DBMySQL})
	if err == nil {
		t.Fatalf("expected error for mysql")
	}
	if store != nil {
		t.Fatalf("store must be nil on error")
	}
}

func TestOpenAssemblesService(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	cfg := &config.Config{
		DBType:        config.DBSQLite,
		SQLiteDBPath:  ":memory:",
		DBIsImmutable: true,
		PathToArchive: filepath.Join(root, "archive"),
		TempPath:      filepath.Join(root, "tmp") + string(filepath.Separator),
	}
	reg := prometheus.NewRegistry()
	metrics := NewPrometheusMetricsRecorder(reg)
	svc, err := Open(ctx, cfg, reg, WithMetricsRecorder(metrics))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer func() { _ = svc.Close() }()
	if !svc.Immutable() {
		t.Fatalf("sqlite databases are opened immutable")
	}
	if svc.Artifacts() == nil || svc.Artifacts().TempDir() != cfg.TempPath {
		t.Fatalf("artifact store not configured: %+v", svc.Artifacts())
	}
	if _, err := svc.GetDomain(ctx, []string{"P53"}, false); err != nil {
		t.Fatalf("get domain: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	if !names["elaspic_service_operations_total"] {
		t.Fatalf("service metrics not registered: %v", names)
	}
}

func TestOpenRejectsMissingArchive(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{DBType: config.DBSQLite, SQLiteDBPath: ":memory:", TempPath: t.TempDir()}, nil)
	if err == nil {
		t.Fatalf("expected error without path_to_archive")
	}
}
