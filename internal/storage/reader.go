package storage

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
)

// ReaderAt exposes an object as an io.ReaderAt backed by ranged reads, so
// parquet readers only fetch the byte ranges they touch.
type ReaderAt struct {
	ctx        context.Context
	store      ObjectStorage
	objectPath string
	size       int64
	bytesRead  atomic.Int64
	onRead     func(n int)
}

// NewReaderAt returns a lazy reader over objectPath. size must be the object
// size; reads past it return io.EOF without touching the store.
func NewReaderAt(ctx context.Context, store ObjectStorage, objectPath string, size int64) *ReaderAt {
	return &ReaderAt{
		ctx:        ctx,
		store:      store,
		objectPath: objectPath,
		size:       size,
	}
}

// OnRead registers a callback invoked with the number of bytes fetched by
// each successful read.
func (r *ReaderAt) OnRead(fn func(n int)) *ReaderAt {
	r.onRead = fn
	return r
}

// ReadAt implements io.ReaderAt.
func (r *ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrInvalidRange, off)
	}
	if off >= r.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := int64(len(p))
	if off+n > r.size {
		n = r.size - off
	}

	data, err := r.store.GetRange(r.ctx, r.objectPath, off, n)
	if err != nil {
		return 0, err
	}
	copied := copy(p, data)

	r.bytesRead.Add(int64(copied))
	if r.onRead != nil {
		r.onRead(copied)
	}

	if copied < len(p) {
		return copied, io.EOF
	}
	return copied, nil
}

// Size returns the object size.
func (r *ReaderAt) Size() int64 {
	return r.size
}

// BytesRead returns the total number of bytes fetched so far.
func (r *ReaderAt) BytesRead() int64 {
	return r.bytesRead.Load()
}
