// Package storage provides object storage abstractions for persisted parquet files.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
	ErrInvalidRange   = errors.New("invalid byte range")
)

// ObjectStorage abstracts the object store holding parquet files.
// Implementations include S3 and the local filesystem.
type ObjectStorage interface {
	// Put stores data under objectPath, replacing any existing object.
	Put(ctx context.Context, objectPath string, data []byte) error

	// Get returns the full contents of an object.
	Get(ctx context.Context, objectPath string) ([]byte, error)

	// GetRange returns length bytes starting at offset.
	// The range must lie within the object.
	GetRange(ctx context.Context, objectPath string, offset, length int64) ([]byte, error)

	// Size returns the size of an object in bytes.
	Size(ctx context.Context, objectPath string) (int64, error)

	// Exists checks if an object exists in storage.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// Delete removes an object from storage. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

func validRange(offset, length, size int64) bool {
	return offset >= 0 && length >= 0 && offset+length <= size
}
