package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	apperrors "github.com/Karekin/influxdb/internal/errors"
	"github.com/Karekin/influxdb/pkg/types"
)

// Catalog is the catalog data store consulted by the querier and written by
// the ingest path.
type Catalog interface {
	Reader

	// CreateNamespace adds a namespace. Fails with ALREADY_EXISTS if the
	// name is taken.
	CreateNamespace(ctx context.Context, name, retentionDuration string) (*types.Namespace, error)

	// CreateOrGetTable returns the named table of a namespace, creating it
	// if necessary.
	CreateOrGetTable(ctx context.Context, namespaceID types.NamespaceID, name string) (*types.Table, error)

	// CreateOrGetSequencer returns the sequencer for a topic partition,
	// creating it if necessary.
	CreateOrGetSequencer(ctx context.Context, topicName string, partitionIndex int32) (*types.Sequencer, error)

	// CreateOrGetPartition returns the partition for a key, creating it if
	// necessary.
	CreateOrGetPartition(ctx context.Context, key string, sequencerID types.SequencerID, tableID types.TableID) (*types.Partition, error)

	// CreateParquetFile registers a persisted parquet file.
	CreateParquetFile(ctx context.Context, params types.ParquetFileParams) (*types.ParquetFile, error)

	// FlagForDelete marks a parquet file for deletion.
	FlagForDelete(ctx context.Context, id types.ParquetFileID) error

	// Close closes the catalog database connections.
	Close() error
}

// Reader is the read-only view of the catalog. Lookups of unknown ids fail
// with CATALOG:NOT_FOUND.
type Reader interface {
	GetNamespace(ctx context.Context, id types.NamespaceID) (*types.Namespace, error)
	NamespaceByName(ctx context.Context, name string) (*types.Namespace, error)
	GetTable(ctx context.Context, id types.TableID) (*types.Table, error)
	GetSequencer(ctx context.Context, id types.SequencerID) (*types.Sequencer, error)
	GetPartition(ctx context.Context, id types.PartitionID) (*types.Partition, error)
	GetParquetFile(ctx context.Context, id types.ParquetFileID) (*types.ParquetFile, error)

	// ListParquetFilesByTable returns the files of a table not flagged for
	// deletion, ordered by id.
	ListParquetFilesByTable(ctx context.Context, tableID types.TableID) ([]*types.ParquetFile, error)

	// ListParquetFiles returns every file not flagged for deletion, ordered
	// by id.
	ListParquetFiles(ctx context.Context) ([]*types.ParquetFile, error)
}

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db     *sql.DB // Write connection (single writer)
	readDB *sql.DB // Read connection pool (concurrent readers)
	dbPath string
	mu     sync.Mutex // Write-only lock (reads don't need this)

	logger zerolog.Logger
}

// NewCatalog opens (creating if needed) the catalog database at dbPath.
func NewCatalog(dbPath string, logger zerolog.Logger) (*SQLiteCatalog, error) {
	// Write connection: single writer with WAL mode
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Read connection pool: concurrent readers
	readDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&mode=ro")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(4)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	c := &SQLiteCatalog{
		db:     db,
		readDB: readDB,
		dbPath: dbPath,
		logger: logger.With().Str("component", "catalog").Logger(),
	}

	if err := c.initSchema(); err != nil {
		readDB.Close()
		db.Close()
		return nil, fmt.Errorf("catalog: failed to initialize schema: %w", err)
	}

	c.logger.Debug().Str("path", dbPath).Msg("catalog opened")
	return c, nil
}

// initSchema creates all required tables and indexes.
func (c *SQLiteCatalog) initSchema() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Close closes the catalog database connections.
func (c *SQLiteCatalog) Close() error {
	readErr := c.readDB.Close()
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("catalog: failed to close database: %w", err)
	}
	if readErr != nil {
		return fmt.Errorf("catalog: failed to close read database: %w", readErr)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func notFound(what string, id any) error {
	return apperrors.NewCatalogError(apperrors.CodeNotFound, fmt.Sprintf("%s %v not found", what, id), nil)
}

func failed(op string, err error) error {
	return apperrors.NewCatalogError(apperrors.CodeCatalogOperationFailed, op, err)
}

// CreateNamespace adds a namespace.
func (c *SQLiteCatalog) CreateNamespace(ctx context.Context, name, retentionDuration string) (*types.Namespace, error) {
	if name == "" {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidArgument, "namespace name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx,
		"INSERT INTO namespaces (name, retention_duration) VALUES (?, ?)",
		name, retentionDuration,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewCatalogError(apperrors.CodeAlreadyExists, fmt.Sprintf("namespace %q already exists", name), err)
		}
		return nil, failed("failed to insert namespace", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, failed("failed to read namespace id", err)
	}

	return &types.Namespace{ID: types.NamespaceID(id), Name: name, RetentionDuration: retentionDuration}, nil
}

// GetNamespace retrieves a namespace by id.
func (c *SQLiteCatalog) GetNamespace(ctx context.Context, id types.NamespaceID) (*types.Namespace, error) {
	var ns types.Namespace
	err := c.readDB.QueryRowContext(ctx,
		"SELECT id, name, retention_duration FROM namespaces WHERE id = ?", id,
	).Scan(&ns.ID, &ns.Name, &ns.RetentionDuration)
	if err == sql.ErrNoRows {
		return nil, notFound("namespace", id)
	}
	if err != nil {
		return nil, failed("failed to query namespace", err)
	}
	return &ns, nil
}

// NamespaceByName retrieves a namespace by name.
func (c *SQLiteCatalog) NamespaceByName(ctx context.Context, name string) (*types.Namespace, error) {
	var ns types.Namespace
	err := c.readDB.QueryRowContext(ctx,
		"SELECT id, name, retention_duration FROM namespaces WHERE name = ?", name,
	).Scan(&ns.ID, &ns.Name, &ns.RetentionDuration)
	if err == sql.ErrNoRows {
		return nil, notFound("namespace", fmt.Sprintf("%q", name))
	}
	if err != nil {
		return nil, failed("failed to query namespace", err)
	}
	return &ns, nil
}

// CreateOrGetTable returns the named table, creating it if necessary.
func (c *SQLiteCatalog) CreateOrGetTable(ctx context.Context, namespaceID types.NamespaceID, name string) (*types.Table, error) {
	if name == "" {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidArgument, "table name is required")
	}
	if _, err := c.GetNamespace(ctx, namespaceID); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx,
		"INSERT INTO tables (namespace_id, name) VALUES (?, ?) ON CONFLICT (namespace_id, name) DO NOTHING",
		namespaceID, name,
	); err != nil {
		return nil, failed("failed to insert table", err)
	}

	var t types.Table
	err := c.db.QueryRowContext(ctx,
		"SELECT id, namespace_id, name FROM tables WHERE namespace_id = ? AND name = ?",
		namespaceID, name,
	).Scan(&t.ID, &t.NamespaceID, &t.Name)
	if err != nil {
		return nil, failed("failed to query table", err)
	}
	return &t, nil
}

// GetTable retrieves a table by id.
func (c *SQLiteCatalog) GetTable(ctx context.Context, id types.TableID) (*types.Table, error) {
	var t types.Table
	err := c.readDB.QueryRowContext(ctx,
		"SELECT id, namespace_id, name FROM tables WHERE id = ?", id,
	).Scan(&t.ID, &t.NamespaceID, &t.Name)
	if err == sql.ErrNoRows {
		return nil, notFound("table", id)
	}
	if err != nil {
		return nil, failed("failed to query table", err)
	}
	return &t, nil
}

// CreateOrGetSequencer returns the sequencer for a topic partition, creating
// it if necessary.
func (c *SQLiteCatalog) CreateOrGetSequencer(ctx context.Context, topicName string, partitionIndex int32) (*types.Sequencer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx,
		"INSERT INTO sequencers (topic_name, partition_index) VALUES (?, ?) ON CONFLICT (topic_name, partition_index) DO NOTHING",
		topicName, partitionIndex,
	); err != nil {
		return nil, failed("failed to insert sequencer", err)
	}

	var s types.Sequencer
	err := c.db.QueryRowContext(ctx,
		"SELECT id, topic_name, partition_index FROM sequencers WHERE topic_name = ? AND partition_index = ?",
		topicName, partitionIndex,
	).Scan(&s.ID, &s.TopicName, &s.PartitionIndex)
	if err != nil {
		return nil, failed("failed to query sequencer", err)
	}
	return &s, nil
}

// GetSequencer retrieves a sequencer by id.
func (c *SQLiteCatalog) GetSequencer(ctx context.Context, id types.SequencerID) (*types.Sequencer, error) {
	var s types.Sequencer
	err := c.readDB.QueryRowContext(ctx,
		"SELECT id, topic_name, partition_index FROM sequencers WHERE id = ?", id,
	).Scan(&s.ID, &s.TopicName, &s.PartitionIndex)
	if err == sql.ErrNoRows {
		return nil, notFound("sequencer", id)
	}
	if err != nil {
		return nil, failed("failed to query sequencer", err)
	}
	return &s, nil
}

// CreateOrGetPartition returns the partition for key, creating it if
// necessary.
func (c *SQLiteCatalog) CreateOrGetPartition(ctx context.Context, key string, sequencerID types.SequencerID, tableID types.TableID) (*types.Partition, error) {
	if _, err := c.GetSequencer(ctx, sequencerID); err != nil {
		return nil, err
	}
	if _, err := c.GetTable(ctx, tableID); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO partitions (sequencer_id, table_id, partition_key) VALUES (?, ?, ?)
		 ON CONFLICT (sequencer_id, table_id, partition_key) DO NOTHING`,
		sequencerID, tableID, key,
	); err != nil {
		return nil, failed("failed to insert partition", err)
	}

	var p types.Partition
	err := c.db.QueryRowContext(ctx,
		"SELECT id, sequencer_id, table_id, partition_key FROM partitions WHERE sequencer_id = ? AND table_id = ? AND partition_key = ?",
		sequencerID, tableID, key,
	).Scan(&p.ID, &p.SequencerID, &p.TableID, &p.PartitionKey)
	if err != nil {
		return nil, failed("failed to query partition", err)
	}
	return &p, nil
}

// GetPartition retrieves a partition by id.
func (c *SQLiteCatalog) GetPartition(ctx context.Context, id types.PartitionID) (*types.Partition, error) {
	var p types.Partition
	err := c.readDB.QueryRowContext(ctx,
		"SELECT id, sequencer_id, table_id, partition_key FROM partitions WHERE id = ?", id,
	).Scan(&p.ID, &p.SequencerID, &p.TableID, &p.PartitionKey)
	if err == sql.ErrNoRows {
		return nil, notFound("partition", id)
	}
	if err != nil {
		return nil, failed("failed to query partition", err)
	}
	return &p, nil
}

// CreateParquetFile registers a persisted parquet file. The footer is
// stored snappy-compressed.
func (c *SQLiteCatalog) CreateParquetFile(ctx context.Context, params types.ParquetFileParams) (*types.ParquetFile, error) {
	if params.ObjectStoreID == uuid.Nil {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidArgument, "object store id is required")
	}
	if params.MinSequenceNumber > params.MaxSequenceNumber {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidArgument,
			fmt.Sprintf("min sequence number %d exceeds max %d", params.MinSequenceNumber, params.MaxSequenceNumber))
	}
	if params.CreatedAt.IsZero() {
		params.CreatedAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO parquet_files (
			sequencer_id, table_id, partition_id, object_store_id,
			min_sequence_number, max_sequence_number,
			min_time, max_time,
			file_size_bytes, parquet_metadata, row_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.SequencerID, params.TableID, params.PartitionID, params.ObjectStoreID.String(),
		params.MinSequenceNumber, params.MaxSequenceNumber,
		params.MinTime, params.MaxTime,
		params.FileSizeBytes, snappy.Encode(nil, params.ParquetMetadata), params.RowCount, params.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewCatalogError(apperrors.CodeAlreadyExists,
				fmt.Sprintf("parquet file %s already registered", params.ObjectStoreID), err)
		}
		if isForeignKeyViolation(err) {
			return nil, apperrors.NewCatalogError(apperrors.CodeNotFound,
				fmt.Sprintf("parquet file %s references an unknown sequencer, table or partition", params.ObjectStoreID), err)
		}
		return nil, failed("failed to insert parquet file", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, failed("failed to read parquet file id", err)
	}

	c.logger.Debug().
		Int64("parquet_file_id", id).
		Str("object_store_id", params.ObjectStoreID.String()).
		Int64("table_id", int64(params.TableID)).
		Msg("parquet file registered")

	return &types.ParquetFile{
		ID:                types.ParquetFileID(id),
		SequencerID:       params.SequencerID,
		TableID:           params.TableID,
		PartitionID:       params.PartitionID,
		ObjectStoreID:     params.ObjectStoreID,
		MinSequenceNumber: params.MinSequenceNumber,
		MaxSequenceNumber: params.MaxSequenceNumber,
		MinTime:           params.MinTime,
		MaxTime:           params.MaxTime,
		FileSizeBytes:     params.FileSizeBytes,
		ParquetMetadata:   params.ParquetMetadata,
		RowCount:          params.RowCount,
		CreatedAt:         time.Unix(0, params.CreatedAt.UnixNano()),
	}, nil
}

const selectParquetFile = `
	SELECT id, sequencer_id, table_id, partition_id, object_store_id,
		min_sequence_number, max_sequence_number,
		min_time, max_time, to_delete,
		file_size_bytes, parquet_metadata, row_count, created_at
	FROM parquet_files`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParquetFile(row rowScanner) (*types.ParquetFile, error) {
	var (
		f             types.ParquetFile
		objectStoreID string
		compressed    []byte
		createdAt     int64
	)
	if err := row.Scan(
		&f.ID, &f.SequencerID, &f.TableID, &f.PartitionID, &objectStoreID,
		&f.MinSequenceNumber, &f.MaxSequenceNumber,
		&f.MinTime, &f.MaxTime, &f.ToDelete,
		&f.FileSizeBytes, &compressed, &f.RowCount, &createdAt,
	); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(objectStoreID)
	if err != nil {
		return nil, apperrors.NewCatalogError(apperrors.CodeCatalogOperationFailed,
			fmt.Sprintf("parquet file %d has invalid object store id", f.ID), err)
	}
	f.ObjectStoreID = id

	f.ParquetMetadata, err = snappy.Decode(nil, compressed)
	if err != nil {
		return nil, apperrors.NewCorruptMetadataError(fmt.Sprintf("parquet file %d metadata cannot be decompressed", f.ID), err)
	}
	f.CreatedAt = time.Unix(0, createdAt)
	return &f, nil
}

// GetParquetFile retrieves a parquet file record by id.
func (c *SQLiteCatalog) GetParquetFile(ctx context.Context, id types.ParquetFileID) (*types.ParquetFile, error) {
	f, err := scanParquetFile(c.readDB.QueryRowContext(ctx, selectParquetFile+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, notFound("parquet file", id)
	}
	if err != nil {
		if apperrors.GetCategory(err) != "" {
			return nil, err
		}
		return nil, failed("failed to query parquet file", err)
	}
	return f, nil
}

// ListParquetFilesByTable returns the live files of a table.
func (c *SQLiteCatalog) ListParquetFilesByTable(ctx context.Context, tableID types.TableID) ([]*types.ParquetFile, error) {
	return c.listParquetFiles(ctx, selectParquetFile+" WHERE table_id = ? AND to_delete = 0 ORDER BY id", tableID)
}

// ListParquetFiles returns every live file.
func (c *SQLiteCatalog) ListParquetFiles(ctx context.Context) ([]*types.ParquetFile, error) {
	return c.listParquetFiles(ctx, selectParquetFile+" WHERE to_delete = 0 ORDER BY id")
}

func (c *SQLiteCatalog) listParquetFiles(ctx context.Context, query string, args ...any) ([]*types.ParquetFile, error) {
	rows, err := c.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, failed("failed to query parquet files", err)
	}
	defer rows.Close()

	var files []*types.ParquetFile
	for rows.Next() {
		f, err := scanParquetFile(rows)
		if err != nil {
			if apperrors.GetCategory(err) != "" {
				return nil, err
			}
			return nil, failed("failed to scan parquet file", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, failed("error iterating parquet files", err)
	}
	return files, nil
}

// FlagForDelete marks a parquet file for deletion.
func (c *SQLiteCatalog) FlagForDelete(ctx context.Context, id types.ParquetFileID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, "UPDATE parquet_files SET to_delete = 1 WHERE id = ?", id)
	if err != nil {
		return failed("failed to flag parquet file", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return failed("failed to flag parquet file", err)
	}
	if n == 0 {
		return notFound("parquet file", id)
	}
	return nil
}

var _ Catalog = (*SQLiteCatalog)(nil)
