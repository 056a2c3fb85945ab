// Package querier turns catalog parquet file records into queryable chunks.
package querier

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Karekin/influxdb/internal/chunk"
	apperrors "github.com/Karekin/influxdb/internal/errors"
	"github.com/Karekin/influxdb/internal/observability"
	"github.com/Karekin/influxdb/internal/parquetfile"
	"github.com/Karekin/influxdb/internal/storage"
	"github.com/Karekin/influxdb/pkg/types"
)

// Resolver maps catalog ids to the names used in chunk addresses. Unknown
// ids fail with CATALOG:UNRESOLVED_IDENTIFIER.
type Resolver interface {
	TableName(ctx context.Context, id types.TableID) (string, error)
	TableNamespaceID(ctx context.Context, id types.TableID) (types.NamespaceID, error)
	NamespaceName(ctx context.Context, id types.NamespaceID) (string, error)
	OldGenPartitionKey(ctx context.Context, id types.PartitionID) (string, error)
}

// ChunkFactory builds the scannable parquet chunk of a file.
type ChunkFactory interface {
	NewParquetChunk(
		path parquetfile.ParquetFilePath,
		fileSizeBytes int64,
		md *parquetfile.IoxParquetMetaData,
		tableName string,
		partitionKey string,
	) (*parquetfile.ParquetChunk, error)
}

type storeChunkFactory struct {
	store   storage.ObjectStorage
	metrics *parquetfile.ChunkMetrics
}

func (f *storeChunkFactory) NewParquetChunk(
	path parquetfile.ParquetFilePath,
	fileSizeBytes int64,
	md *parquetfile.IoxParquetMetaData,
	tableName string,
	partitionKey string,
) (*parquetfile.ParquetChunk, error) {
	return parquetfile.NewParquetChunk(path, f.store, fileSizeBytes, md, tableName, partitionKey, f.metrics)
}

// Option configures a ParquetChunkAdapter.
type Option func(*ParquetChunkAdapter)

// WithChunkFactory replaces the object-store backed chunk factory.
func WithChunkFactory(f ChunkFactory) Option {
	return func(a *ParquetChunkAdapter) { a.factory = f }
}

// ParquetChunkAdapter converts parquet file records from the catalog into
// catalog chunks. It holds no per-file state; concurrent calls are safe.
type ParquetChunkAdapter struct {
	resolver Resolver
	factory  ChunkFactory
	clock    clockwork.Clock
	logger   zerolog.Logger

	chunkMetrics *chunk.Metrics
	builds       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewParquetChunkAdapter creates an adapter resolving names through
// resolver and reading file bytes from store.
func NewParquetChunkAdapter(
	resolver Resolver,
	store storage.ObjectStorage,
	reg *observability.Registry,
	clock clockwork.Clock,
	logger zerolog.Logger,
	opts ...Option,
) *ParquetChunkAdapter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	a := &ParquetChunkAdapter{
		resolver:     resolver,
		factory:      &storeChunkFactory{store: store, metrics: parquetfile.NewChunkMetrics(reg)},
		clock:        clock,
		logger:       logger.With().Str("component", "chunk_adapter").Logger(),
		chunkMetrics: chunk.NewMetrics(reg),
		builds:       reg.CounterVec("chunk_adapter", "builds_total", "Catalog chunk constructions by outcome.", "result"),
		duration:     reg.HistogramVec("chunk_adapter", "build_duration_seconds", "Catalog chunk construction latency.", nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// decodedParquetFile is a catalog record with its footer decoded once.
type decodedParquetFile struct {
	file *types.ParquetFile
	md   *parquetfile.IoxParquetMetaData
	iox  *parquetfile.IoxMetadata
}

func decodeParquetFile(file *types.ParquetFile) (*decodedParquetFile, error) {
	md, err := parquetfile.DecodeMetaData(file.ParquetMetadata)
	if err != nil {
		return nil, err
	}
	iox, err := md.ReadIoxMetadata()
	if err != nil {
		return nil, err
	}

	if iox.ObjectStoreID != file.ObjectStoreID ||
		iox.TableID != file.TableID ||
		iox.PartitionID != file.PartitionID ||
		iox.SequencerID != file.SequencerID ||
		iox.MinSequenceNumber != file.MinSequenceNumber {
		return nil, apperrors.NewCorruptMetadataError(fmt.Sprintf(
			"embedded identity (object %s, table %d, partition %d, sequencer %d, min sequence %d) does not match the catalog record",
			iox.ObjectStoreID, iox.TableID, iox.PartitionID, iox.SequencerID, iox.MinSequenceNumber), nil)
	}

	return &decodedParquetFile{file: file, md: md, iox: iox}, nil
}

// NewCatalogChunk builds the catalog chunk of a parquet file record. Any
// failure aborts the construction; no chunk is returned alongside an error.
func (a *ParquetChunkAdapter) NewCatalogChunk(ctx context.Context, file *types.ParquetFile) (*chunk.CatalogChunk, error) {
	start := a.clock.Now()

	c, err := a.buildCatalogChunk(ctx, file)

	a.duration.WithLabelValues().Observe(a.clock.Since(start).Seconds())
	if err != nil {
		a.builds.WithLabelValues(outcome(err)).Inc()
		a.logger.Error().Err(err).
			Int64("parquet_file_id", int64(file.ID)).
			Str("object_store_id", file.ObjectStoreID.String()).
			Msg("failed to build catalog chunk")
		return nil, fmt.Errorf("parquet file %d: %w", file.ID, err)
	}

	a.builds.WithLabelValues("ok").Inc()
	a.logger.Debug().
		Stringer("addr", c.Addr()).
		Uint32("order", c.Order().Get()).
		Int64("rows", c.ParquetChunk().RowCount()).
		Msg("catalog chunk built")
	return c, nil
}

func (a *ParquetChunkAdapter) buildCatalogChunk(ctx context.Context, file *types.ParquetFile) (*chunk.CatalogChunk, error) {
	decoded, err := decodeParquetFile(file)
	if err != nil {
		return nil, err
	}

	addr, err := a.deriveAddress(ctx, file)
	if err != nil {
		return nil, err
	}

	parquetChunk, err := a.factory.NewParquetChunk(
		decoded.iox.Path(),
		file.FileSizeBytes,
		decoded.md,
		addr.TableName,
		addr.PartitionKey,
	)
	if err != nil {
		if apperrors.GetCategory(err) == "" {
			err = apperrors.NewChunkConstructionError("cannot create parquet chunk", err)
		}
		return nil, err
	}

	order, err := chunkOrder(decoded.iox)
	if err != nil {
		return nil, err
	}

	metadata := chunk.Metadata{
		TableSummary:     parquetChunk.TableSummary(),
		Schema:           parquetChunk.Schema(),
		TimeOfFirstWrite: decoded.iox.TimeOfFirstWrite,
		TimeOfLastWrite:  decoded.iox.TimeOfLastWrite,
	}

	return chunk.NewObjectStoreOnly(addr, order, metadata, parquetChunk, a.chunkMetrics, a.clock), nil
}

func chunkOrder(iox *parquetfile.IoxMetadata) (types.ChunkOrder, error) {
	order, err := types.ChunkOrderFromSequenceNumber(iox.MinSequenceNumber)
	if err != nil {
		return types.ChunkOrder{}, apperrors.NewOrderOverflowError("cannot derive chunk order", err)
	}
	return order, nil
}

// ChunkOrder derives the order a record's chunk is built with, reading the
// sequence number from the file's embedded identity.
func (a *ParquetChunkAdapter) ChunkOrder(file *types.ParquetFile) (types.ChunkOrder, error) {
	decoded, err := decodeParquetFile(file)
	if err != nil {
		return types.ChunkOrder{}, fmt.Errorf("parquet file %d: %w", file.ID, err)
	}
	order, err := chunkOrder(decoded.iox)
	if err != nil {
		return types.ChunkOrder{}, fmt.Errorf("parquet file %d: %w", file.ID, err)
	}
	return order, nil
}

// ChunkAddr derives the address a record's chunk is published under. The
// result depends only on the record and the catalog names it refers to.
func (a *ParquetChunkAdapter) ChunkAddr(ctx context.Context, file *types.ParquetFile) (types.ChunkAddr, error) {
	return a.deriveAddress(ctx, file)
}

// deriveAddress resolves the three name components concurrently and joins
// them with the chunk id widened from the file id.
func (a *ParquetChunkAdapter) deriveAddress(ctx context.Context, file *types.ParquetFile) (types.ChunkAddr, error) {
	var dbName, tableName, partitionKey string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		nsID, err := a.resolver.TableNamespaceID(gctx, file.TableID)
		if err != nil {
			return err
		}
		dbName, err = a.resolver.NamespaceName(gctx, nsID)
		return err
	})
	g.Go(func() error {
		var err error
		tableName, err = a.resolver.TableName(gctx, file.TableID)
		return err
	})
	g.Go(func() error {
		var err error
		partitionKey, err = a.resolver.OldGenPartitionKey(gctx, file.PartitionID)
		return err
	})
	if err := g.Wait(); err != nil {
		// A sibling failure cancels gctx; report the caller's own
		// cancellation only when it was the cause.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.ChunkAddr{}, ctxErr
		}
		return types.ChunkAddr{}, err
	}

	return types.ChunkAddr{
		DBName:       dbName,
		TableName:    tableName,
		PartitionKey: partitionKey,
		ChunkID:      types.ChunkIDFromFileID(file.ID),
	}, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case apperrors.GetCode(err) != "":
		return apperrors.GetCode(err)
	default:
		return "error"
	}
}

