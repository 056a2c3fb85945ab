package types

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ChunkID identifies a chunk within a partition.
type ChunkID uuid.UUID

// ChunkIDFromFileID widens a parquet file id into a 128-bit value and
// interprets it as a UUID. The id is sign-extended, so the mapping is
// injective over the whole int64 range.
func ChunkIDFromFileID(id ParquetFileID) ChunkID {
	var u uuid.UUID
	v := int64(id)
	if v < 0 {
		for i := 0; i < 8; i++ {
			u[i] = 0xFF
		}
	}
	binary.BigEndian.PutUint64(u[8:], uint64(v))
	return ChunkID(u)
}

// UUID returns the chunk id as a UUID.
func (c ChunkID) UUID() uuid.UUID {
	return uuid.UUID(c)
}

// String returns the canonical UUID form of the chunk id.
func (c ChunkID) String() string {
	return uuid.UUID(c).String()
}

// ChunkAddr is the composite address of a chunk in the old-generation
// addressing scheme.
type ChunkAddr struct {
	DBName       string  `json:"db_name"`
	TableName    string  `json:"table_name"`
	PartitionKey string  `json:"partition_key"`
	ChunkID      ChunkID `json:"chunk_id"`
}

// String renders the address as Chunk('db':'table':'partition':uuid).
func (a ChunkAddr) String() string {
	return fmt.Sprintf("Chunk('%s':'%s':'%s':%s)", a.DBName, a.TableName, a.PartitionKey, a.ChunkID)
}

// OldGenPartitionKey combines a sequencer id and a partition key into the
// partition key used by the old-generation addressing scheme.
func OldGenPartitionKey(sequencerID SequencerID, partitionKey string) string {
	return fmt.Sprintf("%d-%s", sequencerID, partitionKey)
}

// ChunkOrder breaks ties between chunks that could otherwise be read in an
// ambiguous order. It is never zero.
type ChunkOrder struct {
	v uint32
}

// MinChunkOrder is the smallest valid chunk order.
var MinChunkOrder = ChunkOrder{v: 1}

// NewChunkOrder validates and wraps a chunk order value.
func NewChunkOrder(v uint32) (ChunkOrder, error) {
	if v == 0 {
		return ChunkOrder{}, ErrZeroChunkOrder
	}
	return ChunkOrder{v: v}, nil
}

// ChunkOrderFromSequenceNumber derives a chunk order from the minimum sequence
// number of a parquet file. Files have no native order field yet, so the
// order is 1 + seq; values that do not fit in 32 bits are rejected rather
// than wrapped.
func ChunkOrderFromSequenceNumber(seq SequenceNumber) (ChunkOrder, error) {
	if seq < 0 || int64(seq) >= math.MaxUint32 {
		return ChunkOrder{}, fmt.Errorf("%w: sequence number %d", ErrChunkOrderOverflow, seq)
	}
	return NewChunkOrder(uint32(seq) + 1)
}

// Get returns the raw order value.
func (o ChunkOrder) Get() uint32 {
	return o.v
}

// Compare returns -1, 0 or 1 depending on whether o sorts before, equal to or
// after other.
func (o ChunkOrder) Compare(other ChunkOrder) int {
	switch {
	case o.v < other.v:
		return -1
	case o.v > other.v:
		return 1
	default:
		return 0
	}
}

func (o ChunkOrder) String() string {
	return fmt.Sprintf("%d", o.v)
}
