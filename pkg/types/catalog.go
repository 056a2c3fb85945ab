package types

import (
	"time"

	"github.com/google/uuid"
)

// Namespace is a catalog namespace (database).
type Namespace struct {
	ID   NamespaceID `json:"id"`
	Name string      `json:"name"`

	// RetentionDuration is a human readable retention period, empty for infinite.
	RetentionDuration string `json:"retention_duration,omitempty"`
}

// Table is a catalog table belonging to a namespace.
type Table struct {
	ID          TableID     `json:"id"`
	NamespaceID NamespaceID `json:"namespace_id"`
	Name        string      `json:"name"`
}

// Sequencer identifies one shard of the write buffer.
type Sequencer struct {
	ID             SequencerID `json:"id"`
	TopicName      string      `json:"topic_name"`
	PartitionIndex int32       `json:"partition_index"`
}

// Partition is a catalog partition of a table, scoped to a sequencer.
type Partition struct {
	ID           PartitionID `json:"id"`
	SequencerID  SequencerID `json:"sequencer_id"`
	TableID      TableID     `json:"table_id"`
	PartitionKey string      `json:"partition_key"`
}

// ParquetFile is the immutable catalog record describing one persisted
// parquet file. ParquetMetadata holds the thrift-encoded parquet footer.
type ParquetFile struct {
	ID                ParquetFileID  `json:"id"`
	SequencerID       SequencerID    `json:"sequencer_id"`
	TableID           TableID        `json:"table_id"`
	PartitionID       PartitionID    `json:"partition_id"`
	ObjectStoreID     uuid.UUID      `json:"object_store_id"`
	MinSequenceNumber SequenceNumber `json:"min_sequence_number"`
	MaxSequenceNumber SequenceNumber `json:"max_sequence_number"`
	MinTime           Timestamp      `json:"min_time"`
	MaxTime           Timestamp      `json:"max_time"`
	ToDelete          bool           `json:"to_delete"`
	FileSizeBytes     int64          `json:"file_size_bytes"`
	ParquetMetadata   []byte         `json:"-"`
	RowCount          int64          `json:"row_count"`
	CreatedAt         time.Time      `json:"created_at"`
}

// ParquetFileParams holds the fields required to register a parquet file.
type ParquetFileParams struct {
	SequencerID       SequencerID
	TableID           TableID
	PartitionID       PartitionID
	ObjectStoreID     uuid.UUID
	MinSequenceNumber SequenceNumber
	MaxSequenceNumber SequenceNumber
	MinTime           Timestamp
	MaxTime           Timestamp
	FileSizeBytes     int64
	ParquetMetadata   []byte
	RowCount          int64
	CreatedAt         time.Time
}
