// Package chunk holds the catalog chunk: a parquet chunk decorated with its
// address, order and lifecycle metadata.
package chunk

import (
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jonboulle/clockwork"

	"github.com/Karekin/influxdb/internal/parquetfile"
	"github.com/Karekin/influxdb/pkg/types"
)

// Storage describes where a chunk's data lives.
type Storage int

const (
	// ObjectStoreOnly chunks exist only as parquet files in the object
	// store, with no in-memory buffer.
	ObjectStoreOnly Storage = iota
)

func (s Storage) String() string {
	switch s {
	case ObjectStoreOnly:
		return "ObjectStoreOnly"
	default:
		return "Unknown"
	}
}

// DeletePredicate removes rows of a chunk matching a time range and an
// optional expression. Predicates are parsed elsewhere; the chunk stores them
// verbatim.
type DeletePredicate struct {
	Range      types.TimestampRange `json:"range"`
	Expression string               `json:"expression,omitempty"`
}

// Metadata is the descriptive state of a chunk.
type Metadata struct {
	TableSummary     *parquetfile.TableSummary
	Schema           *arrow.Schema
	DeletePredicates []DeletePredicate
	TimeOfFirstWrite time.Time
	TimeOfLastWrite  time.Time
}

// CatalogChunk is the chunk handed to the query layer. Everything but the
// delete predicates and the access time is fixed at construction.
type CatalogChunk struct {
	addr    types.ChunkAddr
	order   types.ChunkOrder
	storage Storage
	parquet *parquetfile.ParquetChunk
	clock   clockwork.Clock
	metrics *Metrics

	mu               sync.RWMutex
	metadata         Metadata
	timeOfLastAccess time.Time
}

// NewObjectStoreOnly builds a chunk whose data lives only in the object
// store. Delete predicates start empty regardless of metadata.
func NewObjectStoreOnly(
	addr types.ChunkAddr,
	order types.ChunkOrder,
	metadata Metadata,
	parquetChunk *parquetfile.ParquetChunk,
	metrics *Metrics,
	clock clockwork.Clock,
) *CatalogChunk {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	metadata.DeletePredicates = nil

	metrics.created(addr.TableName)

	return &CatalogChunk{
		addr:     addr,
		order:    order,
		storage:  ObjectStoreOnly,
		parquet:  parquetChunk,
		clock:    clock,
		metrics:  metrics,
		metadata: metadata,
	}
}

// Addr returns the chunk address.
func (c *CatalogChunk) Addr() types.ChunkAddr { return c.addr }

// ID returns the chunk id.
func (c *CatalogChunk) ID() types.ChunkID { return c.addr.ChunkID }

// Order returns the chunk order.
func (c *CatalogChunk) Order() types.ChunkOrder { return c.order }

// Storage returns where the chunk's data lives.
func (c *CatalogChunk) Storage() Storage { return c.storage }

// ParquetChunk returns the underlying parquet chunk.
func (c *CatalogChunk) ParquetChunk() *parquetfile.ParquetChunk { return c.parquet }

// Metadata returns a snapshot of the chunk metadata.
func (c *CatalogChunk) Metadata() Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()

	md := c.metadata
	md.DeletePredicates = append([]DeletePredicate(nil), c.metadata.DeletePredicates...)
	return md
}

// TimeOfFirstWrite returns when the first row of the chunk was written.
func (c *CatalogChunk) TimeOfFirstWrite() time.Time { return c.metadata.TimeOfFirstWrite }

// TimeOfLastWrite returns when the last row of the chunk was written.
func (c *CatalogChunk) TimeOfLastWrite() time.Time { return c.metadata.TimeOfLastWrite }

// RecordAccess marks the chunk as read now.
func (c *CatalogChunk) RecordAccess() {
	now := c.clock.Now()

	c.mu.Lock()
	c.timeOfLastAccess = now
	c.mu.Unlock()

	c.metrics.accessed(c.addr.TableName)
}

// TimeOfLastAccess returns when the chunk was last read, or the zero time.
func (c *CatalogChunk) TimeOfLastAccess() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeOfLastAccess
}

// DeletePredicates returns a copy of the predicates applied to the chunk.
func (c *CatalogChunk) DeletePredicates() []DeletePredicate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]DeletePredicate(nil), c.metadata.DeletePredicates...)
}

// AddDeletePredicate appends a predicate. Predicates already present are
// ignored.
func (c *CatalogChunk) AddDeletePredicate(p DeletePredicate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.metadata.DeletePredicates {
		if existing == p {
			return
		}
	}
	c.metadata.DeletePredicates = append(c.metadata.DeletePredicates, p)
}
