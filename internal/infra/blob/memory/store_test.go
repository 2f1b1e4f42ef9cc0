package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"elaspicdb/internal/blob/core"
)

func TestStoreMissingKey(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected head not found, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected get not found, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false")
	}
}

func TestStorePutDuplicateAndOverwrite(t *testing.T) {
	store := New()
	ctx := context.Background()
	first, err := store.Put(ctx, "P04637/template.json", bytes.NewReader([]byte("{}")), core.PutOptions{Metadata: map[string]string{"a": "1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if first.ContentType != "application/json" || first.Metadata != nil {
		t.Fatalf("unexpected info %+v", first)
	}
	if _, err := store.Put(ctx, "P04637/template.json", bytes.NewReader([]byte("[]")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected duplicate put error, got %v", err)
	}
	second, err := store.Put(ctx, "P04637/template.json", bytes.NewReader([]byte("[]")), core.PutOptions{Overwrite: true, ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if second.ETag == first.ETag || second.ContentType != "text/plain" {
		t.Fatalf("unexpected overwrite info %+v", second)
	}
	_, rc, err := store.Get(ctx, "P04637/template.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != "[]" {
		t.Fatalf("expected overwritten content, got %q", b)
	}
	if list, err := store.List(ctx, ""); err != nil || len(list) != 1 {
		t.Fatalf("list all: %v %d", err, len(list))
	}
	if list, err := store.List(ctx, "Q"); err != nil || len(list) != 0 {
		t.Fatalf("list prefix: %v %d", err, len(list))
	}
}

func TestStoreGetReturnsPrivateCopy(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k.aln", bytes.NewReader([]byte("CLUSTAL")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, rc, _ := store.Get(ctx, "k.aln")
	buf, _ := io.ReadAll(rc)
	buf[0] = 'X'
	_, rc, _ = store.Get(ctx, "k.aln")
	again, _ := io.ReadAll(rc)
	if string(again) != "CLUSTAL" {
		t.Fatalf("stored content was mutated: %q", again)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }

func TestStorePutReadErrorAndDriver(t *testing.T) {
	store := New()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if _, err := store.Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
}
