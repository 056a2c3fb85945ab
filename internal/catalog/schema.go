// Package catalog provides the SQLite catalog of namespaces, tables,
// sequencers, partitions and persisted parquet files.
package catalog

// CreateNamespacesTableSQL creates the namespaces table.
const CreateNamespacesTableSQL = `
CREATE TABLE IF NOT EXISTS namespaces (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    retention_duration TEXT NOT NULL DEFAULT ''
)`

// CreateTablesTableSQL creates the tables table. Table names are unique per
// namespace.
const CreateTablesTableSQL = `
CREATE TABLE IF NOT EXISTS tables (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    namespace_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    UNIQUE (namespace_id, name),
    FOREIGN KEY (namespace_id) REFERENCES namespaces(id)
)`

// CreateSequencersTableSQL creates the sequencers table.
const CreateSequencersTableSQL = `
CREATE TABLE IF NOT EXISTS sequencers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic_name TEXT NOT NULL,
    partition_index INTEGER NOT NULL,
    UNIQUE (topic_name, partition_index)
)`

// CreatePartitionsTableSQL creates the partitions table. A partition key is
// unique per sequencer and table.
const CreatePartitionsTableSQL = `
CREATE TABLE IF NOT EXISTS partitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sequencer_id INTEGER NOT NULL,
    table_id INTEGER NOT NULL,
    partition_key TEXT NOT NULL,
    UNIQUE (sequencer_id, table_id, partition_key),
    FOREIGN KEY (sequencer_id) REFERENCES sequencers(id),
    FOREIGN KEY (table_id) REFERENCES tables(id)
)`

// CreateParquetFilesTableSQL creates the parquet_files table. The
// parquet_metadata column holds the snappy-compressed thrift footer.
const CreateParquetFilesTableSQL = `
CREATE TABLE IF NOT EXISTS parquet_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sequencer_id INTEGER NOT NULL,
    table_id INTEGER NOT NULL,
    partition_id INTEGER NOT NULL,
    object_store_id TEXT NOT NULL UNIQUE,
    min_sequence_number INTEGER NOT NULL,
    max_sequence_number INTEGER NOT NULL,
    min_time INTEGER NOT NULL,
    max_time INTEGER NOT NULL,
    to_delete INTEGER NOT NULL DEFAULT 0,
    file_size_bytes INTEGER NOT NULL,
    parquet_metadata BLOB NOT NULL,
    row_count INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (sequencer_id) REFERENCES sequencers(id),
    FOREIGN KEY (table_id) REFERENCES tables(id),
    FOREIGN KEY (partition_id) REFERENCES partitions(id)
)`

// CreateParquetFilesIndexesSQL creates the indexes used by file listing.
var CreateParquetFilesIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_parquet_files_table ON parquet_files(table_id)
		WHERE to_delete = 0`,
	`CREATE INDEX IF NOT EXISTS idx_parquet_files_partition ON parquet_files(partition_id)`,
}

// AllSchemaSQL returns all schema creation statements in order.
func AllSchemaSQL() []string {
	stmts := []string{
		CreateNamespacesTableSQL,
		CreateTablesTableSQL,
		CreateSequencersTableSQL,
		CreatePartitionsTableSQL,
		CreateParquetFilesTableSQL,
	}
	return append(stmts, CreateParquetFilesIndexesSQL...)
}
