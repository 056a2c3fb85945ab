package querier

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Karekin/influxdb/internal/chunk"
	"github.com/Karekin/influxdb/pkg/types"
)

// FileLister is the part of the catalog the querier lists files from.
type FileLister interface {
	GetParquetFile(ctx context.Context, id types.ParquetFileID) (*types.ParquetFile, error)
	ListParquetFilesByTable(ctx context.Context, tableID types.TableID) ([]*types.ParquetFile, error)
	ListParquetFiles(ctx context.Context) ([]*types.ParquetFile, error)
}

// Querier loads the chunks of live parquet files through the adapter.
type Querier struct {
	catalog     FileLister
	adapter     *ParquetChunkAdapter
	concurrency int
	logger      zerolog.Logger
}

// NewQuerier creates a querier building at most concurrency chunks at once.
func NewQuerier(catalog FileLister, adapter *ParquetChunkAdapter, concurrency int, logger zerolog.Logger) *Querier {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Querier{
		catalog:     catalog,
		adapter:     adapter,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "querier").Logger(),
	}
}

// Chunk builds the chunk of a single parquet file.
func (q *Querier) Chunk(ctx context.Context, id types.ParquetFileID) (*chunk.CatalogChunk, error) {
	file, err := q.catalog.GetParquetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	return q.adapter.NewCatalogChunk(ctx, file)
}

// TableChunks builds the chunks of every live file of a table. A single
// failing file fails the whole call.
func (q *Querier) TableChunks(ctx context.Context, tableID types.TableID) ([]*chunk.CatalogChunk, error) {
	files, err := q.catalog.ListParquetFilesByTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return q.build(ctx, files)
}

// Chunks builds the chunks of every live file in the catalog.
func (q *Querier) Chunks(ctx context.Context) ([]*chunk.CatalogChunk, error) {
	files, err := q.catalog.ListParquetFiles(ctx)
	if err != nil {
		return nil, err
	}
	return q.build(ctx, files)
}

// build returns the chunks in the order of files.
func (q *Querier) build(ctx context.Context, files []*types.ParquetFile) ([]*chunk.CatalogChunk, error) {
	chunks := make([]*chunk.CatalogChunk, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.concurrency)
	for i, file := range files {
		g.Go(func() error {
			c, err := q.adapter.NewCatalogChunk(gctx, file)
			if err != nil {
				return err
			}
			chunks[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	q.logger.Debug().Int("files", len(files)).Msg("chunks loaded")
	return chunks, nil
}
