// Package types provides the core catalog and chunk data types shared by the
// querier, the catalog store and the ingest path.
package types

import (
	"strconv"
	"time"
)

// NamespaceID is the catalog surrogate key of a namespace.
type NamespaceID int64

// TableID is the catalog surrogate key of a table.
type TableID int64

// SequencerID is the catalog surrogate key of a sequencer (write-buffer shard).
type SequencerID int64

// PartitionID is the catalog surrogate key of a partition.
type PartitionID int64

// ParquetFileID is the catalog surrogate key of a persisted parquet file.
type ParquetFileID int64

// SequenceNumber is a write-buffer sequence number.
type SequenceNumber int64

// Timestamp is a point in time as nanoseconds since the Unix epoch.
type Timestamp int64

func (id NamespaceID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id TableID) String() string       { return strconv.FormatInt(int64(id), 10) }
func (id SequencerID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id PartitionID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id ParquetFileID) String() string { return strconv.FormatInt(int64(id), 10) }

// TimestampFromTime converts a time.Time into a Timestamp.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixNano())
}

// Time returns the timestamp as a UTC time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

// TimestampRange is a half-open time range [Start, End).
type TimestampRange struct {
	Start Timestamp `json:"start"`
	End   Timestamp `json:"end"`
}

// Contains reports whether ts falls into the range.
func (r TimestampRange) Contains(ts Timestamp) bool {
	return ts >= r.Start && ts < r.End
}
