package parquetfile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/parquet-go/parquet-go"

	apperrors "github.com/Karekin/influxdb/internal/errors"
	"github.com/Karekin/influxdb/internal/storage"
)

// ParquetChunk is a readable view of one parquet file in the object store.
// Construction performs no I/O; bytes are fetched when a reader is used.
type ParquetChunk struct {
	path          ParquetFilePath
	store         storage.ObjectStorage
	fileSizeBytes int64
	md            *IoxParquetMetaData

	tableName    string
	partitionKey string
	schema       *arrow.Schema
	summary      *TableSummary

	metrics *ChunkMetrics
}

// NewParquetChunk builds a chunk for the file at path. The declared file size
// must be consistent with the footer: the file has to hold the header magic,
// the footer and its trailer, and every column chunk must lie between them.
func NewParquetChunk(
	path ParquetFilePath,
	store storage.ObjectStorage,
	fileSizeBytes int64,
	md *IoxParquetMetaData,
	tableName string,
	partitionKey string,
	metrics *ChunkMetrics,
) (*ParquetChunk, error) {
	if store == nil || md == nil {
		return nil, apperrors.NewChunkConstructionError("parquet chunk requires a store and metadata", nil)
	}
	if err := checkLayout(fileSizeBytes, md); err != nil {
		return nil, apperrors.NewChunkConstructionError(fmt.Sprintf("file %s does not match its metadata", path), err)
	}

	schema, err := md.Schema()
	if err != nil {
		return nil, apperrors.NewChunkConstructionError(fmt.Sprintf("file %s has an unusable schema", path), err)
	}
	summary, err := md.TableSummary(tableName)
	if err != nil {
		return nil, apperrors.NewChunkConstructionError(fmt.Sprintf("file %s has unusable statistics", path), err)
	}

	metrics.chunkCreated(tableName)

	return &ParquetChunk{
		path:          path,
		store:         store,
		fileSizeBytes: fileSizeBytes,
		md:            md,
		tableName:     tableName,
		partitionKey:  partitionKey,
		schema:        schema,
		summary:       summary,
		metrics:       metrics,
	}, nil
}

func checkLayout(fileSize int64, md *IoxParquetMetaData) error {
	footerStart := fileSize - trailerSize - int64(md.Size())
	if footerStart < magicSize {
		return fmt.Errorf("%d bytes cannot hold a %d byte footer", fileSize, md.Size())
	}

	for g, rg := range md.md.RowGroups {
		for c, cc := range rg.Columns {
			meta := cc.MetaData
			start := meta.DataPageOffset
			if meta.DictionaryPageOffset > 0 && meta.DictionaryPageOffset < start {
				start = meta.DictionaryPageOffset
			}
			size := meta.TotalCompressedSize
			if start < magicSize || start > footerStart || size < 0 || size > footerStart-start {
				return fmt.Errorf("row group %d column %d spans %d bytes at offset %d, data region is [%d, %d)",
					g, c, size, start, magicSize, footerStart)
			}
		}
	}
	return nil
}

// Path returns the object-store location of the file.
func (c *ParquetChunk) Path() ParquetFilePath { return c.path }

// ObjectPath returns the rendered object-store key.
func (c *ParquetChunk) ObjectPath() string { return c.path.ObjectPath() }

// FileSizeBytes returns the size of the file in the object store.
func (c *ParquetChunk) FileSizeBytes() int64 { return c.fileSizeBytes }

// TableName returns the table the chunk holds data for.
func (c *ParquetChunk) TableName() string { return c.tableName }

// PartitionKey returns the partition key of the chunk.
func (c *ParquetChunk) PartitionKey() string { return c.partitionKey }

// Schema returns the arrow schema of the file.
func (c *ParquetChunk) Schema() *arrow.Schema { return c.schema }

// TableSummary returns the column statistics of the file.
func (c *ParquetChunk) TableSummary() *TableSummary { return c.summary }

// RowCount returns the number of rows in the file.
func (c *ParquetChunk) RowCount() int64 { return c.md.NumRows() }

// Metadata returns the shared decoded footer.
func (c *ParquetChunk) Metadata() *IoxParquetMetaData { return c.md }

// ReaderAt returns a lazy reader over the file bound to ctx.
func (c *ParquetChunk) ReaderAt(ctx context.Context) *storage.ReaderAt {
	return storage.NewReaderAt(ctx, c.store, c.path.ObjectPath(), c.fileSizeBytes).
		OnRead(c.metrics.bytesReadFn(c.tableName))
}

// Open opens the file for reading with parquet-go. Page indexes and bloom
// filters are not loaded.
func (c *ParquetChunk) Open(ctx context.Context) (*parquet.File, error) {
	f, err := parquet.OpenFile(c.ReaderAt(ctx), c.fileSizeBytes,
		parquet.SkipPageIndex(true),
		parquet.SkipBloomFilters(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.path, err)
	}
	c.metrics.fileOpened(c.tableName)
	return f, nil
}

// ReadRows reads every row of the chunk into values of type T.
func ReadRows[T any](ctx context.Context, c *ParquetChunk) ([]T, error) {
	f, err := c.Open(ctx)
	if err != nil {
		return nil, err
	}
	reader := parquet.NewGenericReader[T](f)
	defer reader.Close()

	rows := make([]T, f.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read rows from %s: %w", c.path, err)
	}
	return rows[:n], nil
}
