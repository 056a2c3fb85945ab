package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorage_PutGet(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx := context.Background()
	objectPath := "1/2/3/4/file.parquet"
	content := []byte("hello parquet")

	if err := storage.Put(ctx, objectPath, content); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	exists, err := storage.Exists(ctx, objectPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected object to exist")
	}

	got, err := storage.Get(ctx, objectPath)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q, want %q", got, content)
	}

	size, err := storage.Size(ctx, objectPath)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("size mismatch: got %d, want %d", size, len(content))
	}

	if err := storage.Delete(ctx, objectPath); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, err = storage.Exists(ctx, objectPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected object to not exist after delete")
	}

	// Deleting again is idempotent
	if err := storage.Delete(ctx, objectPath); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
}

func TestLocalStorage_GetRange(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx := context.Background()
	if err := storage.Put(ctx, "obj", []byte("0123456789")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := storage.GetRange(ctx, "obj", 3, 4)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if string(got) != "3456" {
		t.Errorf("got %q, want %q", got, "3456")
	}

	if _, err := storage.GetRange(ctx, "obj", 8, 5); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := storage.GetRange(ctx, "obj", -1, 2); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange for negative offset, got %v", err)
	}
}

func TestLocalStorage_NotFound(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx := context.Background()
	if _, err := storage.Get(ctx, "missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Get: expected ErrObjectNotFound, got %v", err)
	}
	if _, err := storage.GetRange(ctx, "missing", 0, 1); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("GetRange: expected ErrObjectNotFound, got %v", err)
	}
	if _, err := storage.Size(ctx, "missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Size: expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalStorage_ListObjects(t *testing.T) {
	baseDir := t.TempDir()
	storage, err := NewLocalStorage(baseDir)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx := context.Background()
	for _, p := range []string{"1/2/a.parquet", "1/2/b.parquet", "1/3/c.parquet", "2/d.parquet"} {
		if err := storage.Put(ctx, p, []byte("x")); err != nil {
			t.Fatalf("Put %s failed: %v", p, err)
		}
	}
	// Leftover temp files are not objects
	if err := os.WriteFile(filepath.Join(baseDir, "1", "2", ".put-123"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	objects, err := storage.ListObjects(ctx, "1")
	if err != nil {
		t.Fatalf("ListObjects failed: %v", err)
	}
	want := []string{"1/2/a.parquet", "1/2/b.parquet", "1/3/c.parquet"}
	if len(objects) != len(want) {
		t.Fatalf("got %v, want %v", objects, want)
	}
	for i := range want {
		if objects[i] != want[i] {
			t.Errorf("object %d: got %q, want %q", i, objects[i], want[i])
		}
	}

	objects, err = storage.ListObjects(ctx, "missing")
	if err != nil {
		t.Fatalf("ListObjects on missing prefix failed: %v", err)
	}
	if len(objects) != 0 {
		t.Errorf("expected empty listing, got %v", objects)
	}
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := storage.Put(ctx, "obj", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
