package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BatchDownloader copies objects into a local directory in parallel. Objects
// already present locally are not fetched again.
type BatchDownloader struct {
	storage     ObjectStorage
	concurrency int64
	dir         string
}

// BatchResult contains the outcome of a batch download.
type BatchResult struct {
	LocalPaths map[string]string
	Errors     map[string]error
	CacheHits  int
	Downloads  int
	Bytes      int64
}

// NewBatchDownloader creates a downloader writing below dir with at most
// concurrency transfers in flight.
func NewBatchDownloader(storage ObjectStorage, concurrency int, dir string) *BatchDownloader {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchDownloader{
		storage:     storage,
		concurrency: int64(concurrency),
		dir:         dir,
	}
}

// Download fetches every object path. Per-object failures are reported in
// the result; the returned error is set only when ctx ends early.
func (b *BatchDownloader) Download(ctx context.Context, objectPaths []string) (*BatchResult, error) {
	result := &BatchResult{
		LocalPaths: make(map[string]string),
		Errors:     make(map[string]error),
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = semaphore.NewWeighted(b.concurrency)
	)

	for _, p := range objectPaths {
		local, err := b.LocalPath(p)
		if err != nil {
			result.Errors[p] = err
			continue
		}
		if _, err := os.Stat(local); err == nil {
			result.LocalPaths[p] = local
			result.CacheHits++
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return result, err
		}

		wg.Add(1)
		go func(path, local string) {
			defer sem.Release(1)
			defer wg.Done()

			n, err := b.fetch(ctx, path, local)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[path] = err
				return
			}
			result.LocalPaths[path] = local
			result.Downloads++
			result.Bytes += n
		}(p, local)
	}

	wg.Wait()
	return result, ctx.Err()
}

func (b *BatchDownloader) fetch(ctx context.Context, objectPath, local string) (int64, error) {
	data, err := b.storage.Get(ctx, objectPath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := local + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, local); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return int64(len(data)), nil
}

// LocalPath maps an object path into the download directory, keeping its
// directory structure. Paths escaping the directory are rejected.
func (b *BatchDownloader) LocalPath(objectPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(objectPath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("object path %q escapes the download directory", objectPath)
	}
	return filepath.Join(b.dir, clean), nil
}
