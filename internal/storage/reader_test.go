package storage

import (
	"context"
	"io"
	"testing"
)

func TestReaderAt(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx := context.Background()
	content := []byte("abcdefghij")
	if err := store.Put(ctx, "obj", content); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var observed int
	r := NewReaderAt(ctx, store, "obj", int64(len(content))).OnRead(func(n int) { observed += n })

	buf := make([]byte, 4)
	n, err := r.ReadAt(buf, 2)
	if err != nil || n != 4 || string(buf) != "cdef" {
		t.Fatalf("ReadAt(2) = %d, %v, %q", n, err, buf)
	}

	// Short read at the tail returns io.EOF with the available bytes
	n, err = r.ReadAt(buf, 8)
	if err != io.EOF || n != 2 || string(buf[:n]) != "ij" {
		t.Fatalf("ReadAt(8) = %d, %v, %q", n, err, buf[:n])
	}

	// Reads past the end do not touch the store
	n, err = r.ReadAt(buf, 10)
	if err != io.EOF || n != 0 {
		t.Fatalf("ReadAt(10) = %d, %v", n, err)
	}

	if r.BytesRead() != 6 || observed != 6 {
		t.Errorf("expected 6 bytes read, got %d (observed %d)", r.BytesRead(), observed)
	}

	// io.SectionReader works on top of it
	all, err := io.ReadAll(io.NewSectionReader(r, 0, r.Size()))
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(all) != string(content) {
		t.Errorf("got %q, want %q", all, content)
	}
}
