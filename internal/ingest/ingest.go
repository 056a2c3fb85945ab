// Package ingest persists parquet data as catalog-registered files carrying
// their embedded identity.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/parquet-go/parquet-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Karekin/influxdb/internal/catalog"
	apperrors "github.com/Karekin/influxdb/internal/errors"
	"github.com/Karekin/influxdb/internal/observability"
	"github.com/Karekin/influxdb/internal/parquetfile"
	"github.com/Karekin/influxdb/internal/storage"
	"github.com/Karekin/influxdb/pkg/types"
)

// Request describes where ingested rows belong.
type Request struct {
	Namespace      string
	Table          string
	TopicName      string
	SequencerIndex int32
	PartitionKey   string

	MinSequenceNumber types.SequenceNumber
	MaxSequenceNumber types.SequenceNumber

	// Zero values default to the ingest time.
	TimeOfFirstWrite time.Time
	TimeOfLastWrite  time.Time
}

func (r *Request) validate() error {
	switch {
	case r.Namespace == "":
		return apperrors.NewValidationError(apperrors.CodeInvalidArgument, "namespace is required")
	case r.Table == "":
		return apperrors.NewValidationError(apperrors.CodeInvalidArgument, "table is required")
	case r.TopicName == "":
		return apperrors.NewValidationError(apperrors.CodeInvalidArgument, "topic name is required")
	case r.PartitionKey == "":
		return apperrors.NewValidationError(apperrors.CodeInvalidArgument, "partition key is required")
	case r.MinSequenceNumber < 0 || r.MinSequenceNumber > r.MaxSequenceNumber:
		return apperrors.NewValidationError(apperrors.CodeInvalidArgument,
			fmt.Sprintf("invalid sequence range [%d, %d]", r.MinSequenceNumber, r.MaxSequenceNumber))
	}
	return nil
}

// Ingester writes parquet files to object storage and registers them.
type Ingester struct {
	catalog catalog.Catalog
	store   storage.ObjectStorage
	clock   clockwork.Clock
	logger  zerolog.Logger

	files *prometheus.CounterVec
	bytes *prometheus.CounterVec
}

// NewIngester creates an ingester.
func NewIngester(cat catalog.Catalog, store storage.ObjectStorage, reg *observability.Registry, clock clockwork.Clock, logger zerolog.Logger) *Ingester {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ingester{
		catalog: cat,
		store:   store,
		clock:   clock,
		logger:  logger.With().Str("component", "ingest").Logger(),
		files:   reg.CounterVec("ingest", "files_total", "Parquet files ingested by outcome.", "result"),
		bytes:   reg.CounterVec("ingest", "bytes_total", "Bytes of parquet files written.", "namespace"),
	}
}

// Ingest rewrites the parquet file in src under the identity described by
// req, uploads it and registers the catalog record.
func (i *Ingester) Ingest(ctx context.Context, req Request, src io.ReaderAt, size int64) (*types.ParquetFile, error) {
	file, err := i.ingest(ctx, req, src, size)
	if err != nil {
		i.files.WithLabelValues("error").Inc()
		return nil, err
	}
	i.files.WithLabelValues("ok").Inc()
	i.bytes.WithLabelValues(req.Namespace).Add(float64(file.FileSizeBytes))
	return file, nil
}

func (i *Ingester) ingest(ctx context.Context, req Request, src io.ReaderAt, size int64) (*types.ParquetFile, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	input, err := parquet.OpenFile(src, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open source parquet file: %w", err)
	}

	ns, err := i.catalog.NamespaceByName(ctx, req.Namespace)
	if apperrors.IsNotFound(err) {
		ns, err = i.catalog.CreateNamespace(ctx, req.Namespace, "")
		if apperrors.GetCode(err) == apperrors.CodeAlreadyExists {
			ns, err = i.catalog.NamespaceByName(ctx, req.Namespace)
		}
	}
	if err != nil {
		return nil, err
	}
	table, err := i.catalog.CreateOrGetTable(ctx, ns.ID, req.Table)
	if err != nil {
		return nil, err
	}
	sequencer, err := i.catalog.CreateOrGetSequencer(ctx, req.TopicName, req.SequencerIndex)
	if err != nil {
		return nil, err
	}
	partition, err := i.catalog.CreateOrGetPartition(ctx, req.PartitionKey, sequencer.ID, table.ID)
	if err != nil {
		return nil, err
	}

	now := i.clock.Now()
	firstWrite, lastWrite := req.TimeOfFirstWrite, req.TimeOfLastWrite
	if firstWrite.IsZero() {
		firstWrite = now
	}
	if lastWrite.IsZero() {
		lastWrite = now
	}

	iox := &parquetfile.IoxMetadata{
		ObjectStoreID:     uuid.New(),
		CreationTimestamp: now,
		NamespaceID:       ns.ID,
		NamespaceName:     ns.Name,
		SequencerID:       sequencer.ID,
		TableID:           table.ID,
		TableName:         table.Name,
		PartitionID:       partition.ID,
		PartitionKey:      partition.PartitionKey,
		TimeOfFirstWrite:  firstWrite,
		TimeOfLastWrite:   lastWrite,
		MinSequenceNumber: req.MinSequenceNumber,
		MaxSequenceNumber: req.MaxSequenceNumber,
		RowCount:          input.NumRows(),
	}

	var buf bytes.Buffer
	if _, err := parquetfile.Rewrite(&buf, input, iox); err != nil {
		return nil, err
	}
	data := buf.Bytes()

	footer, err := parquetfile.ReadFooter(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	md, err := parquetfile.DecodeMetaData(footer)
	if err != nil {
		return nil, err
	}
	minTime, maxTime := timeRange(md, table.Name)

	objectPath := iox.Path().ObjectPath()
	if err := i.store.Put(ctx, objectPath, data); err != nil {
		return nil, apperrors.NewStorageError(apperrors.CodeUploadFailed, objectPath, err)
	}

	file, err := i.catalog.CreateParquetFile(ctx, types.ParquetFileParams{
		SequencerID:       sequencer.ID,
		TableID:           table.ID,
		PartitionID:       partition.ID,
		ObjectStoreID:     iox.ObjectStoreID,
		MinSequenceNumber: req.MinSequenceNumber,
		MaxSequenceNumber: req.MaxSequenceNumber,
		MinTime:           minTime,
		MaxTime:           maxTime,
		FileSizeBytes:     int64(len(data)),
		ParquetMetadata:   footer,
		RowCount:          input.NumRows(),
		CreatedAt:         now,
	})
	if err != nil {
		if delErr := i.store.Delete(context.WithoutCancel(ctx), objectPath); delErr != nil {
			i.logger.Warn().Err(delErr).Str("path", objectPath).Msg("failed to remove unregistered object")
		}
		return nil, err
	}

	i.logger.Info().
		Int64("parquet_file_id", int64(file.ID)).
		Str("path", objectPath).
		Int64("rows", file.RowCount).
		Int64("bytes", file.FileSizeBytes).
		Msg("parquet file ingested")
	return file, nil
}

// timeRange reads the time column bounds from the footer statistics.
func timeRange(md *parquetfile.IoxParquetMetaData, tableName string) (types.Timestamp, types.Timestamp) {
	summary, err := md.TableSummary(tableName)
	if err != nil {
		return 0, 0
	}
	col, ok := summary.Column(parquetfile.TimeColumnName)
	if !ok {
		return 0, 0
	}
	lo, okLo := col.Stats.Min.(int64)
	hi, okHi := col.Stats.Max.(int64)
	if !okLo || !okHi {
		return 0, 0
	}
	return types.Timestamp(lo), types.Timestamp(hi)
}
