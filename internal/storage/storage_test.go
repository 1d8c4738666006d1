package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"h2olog/internal/storage"
	"h2olog/internal/storage/disk"
	"h2olog/internal/storage/memory"
)

func exerciseBlobStore(t *testing.T, s storage.BlobStore) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, storage.KeyLogs); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, storage.KeyLogs, []byte(`[1]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, storage.KeyLogs, []byte(`[1,2]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, ok, err := s.Get(ctx, storage.KeyLogs)
	if err != nil || !ok || string(data) != `[1,2]` {
		t.Fatalf("unexpected read %q ok=%v err=%v", data, ok, err)
	}
	if _, ok, _ := s.Get(ctx, storage.KeySettings); ok {
		t.Fatalf("keys must be independent")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseBlobStore(t, memory.New())
}

func TestMemoryStoreClosed(t *testing.T) {
	s := memory.New()
	_ = s.Close()
	if err := s.Put(context.Background(), storage.KeyLogs, nil); err != storage.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDiskStore(t *testing.T) {
	dir := t.TempDir()
	s, err := disk.New(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exerciseBlobStore(t, s)

	// A fresh store over the same directory sees the persisted document.
	again, err := disk.New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	data, ok, err := again.Get(context.Background(), storage.KeyLogs)
	if err != nil || !ok || string(data) != `[1,2]` {
		t.Fatalf("unexpected read after reopen %q ok=%v err=%v", data, ok, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "h2o_logs.json")); err != nil {
		t.Fatalf("expected document file on disk: %v", err)
	}
}

func TestSQLiteRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "h2olog.db")
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	exerciseBlobStore(t, repo)

	again, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	data, ok, err := again.Get(context.Background(), storage.KeyLogs)
	if err != nil || !ok || string(data) != `[1,2]` {
		t.Fatalf("unexpected read after reopen %q ok=%v err=%v", data, ok, err)
	}
}

func TestMemoryNewFromDir(t *testing.T) {
	s := memory.NewFromDir(t.TempDir())
	if _, ok, _ := s.Get(context.Background(), storage.KeySettings); ok {
		t.Fatalf("empty dir should seed nothing")
	}
}
