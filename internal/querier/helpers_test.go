package querier

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Karekin/influxdb/internal/cache"
	"github.com/Karekin/influxdb/internal/catalog"
	apperrors "github.com/Karekin/influxdb/internal/errors"
	"github.com/Karekin/influxdb/internal/observability"
	"github.com/Karekin/influxdb/internal/parquetfile"
	"github.com/Karekin/influxdb/internal/storage"
	"github.com/Karekin/influxdb/pkg/types"
)

type testRow struct {
	FieldInt int64  `parquet:"field_int"`
	Tag1     string `parquet:"tag1"`
	Time     int64  `parquet:"time"`
}

var testRows = []testRow{
	{FieldInt: 1000, Tag1: "WA", Time: 8},
	{FieldInt: 10, Tag1: "VT", Time: 10},
	{FieldInt: 70, Tag1: "UT", Time: 20},
}

// testEnv wires a real catalog, object store and cache.
type testEnv struct {
	catalog *catalog.SQLiteCatalog
	store   storage.ObjectStorage
	reg     *observability.Registry
	clock   *clockwork.FakeClock
	cache   *cache.CatalogCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cat, err := catalog.NewCatalog(filepath.Join(dir, "catalog.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	store, err := storage.NewLocalStorage(filepath.Join(dir, "objects"))
	require.NoError(t, err)

	reg := observability.NewRegistry()
	return &testEnv{
		catalog: cat,
		store:   store,
		reg:     reg,
		clock:   clockwork.NewFakeClockAt(time.Unix(1700000000, 0)),
		cache:   cache.NewCatalogCache(cat, cache.DefaultConfig(), reg, zerolog.Nop()),
	}
}

func (e *testEnv) adapter(opts ...Option) *ParquetChunkAdapter {
	return NewParquetChunkAdapter(e.cache, e.store, e.reg, e.clock, zerolog.Nop(), opts...)
}

// createFile persists testRows for ns/table/sequencer 1/part and registers
// the file in the catalog.
func (e *testEnv) createFile(t *testing.T, minSeq types.SequenceNumber) *types.ParquetFile {
	t.Helper()
	ctx := context.Background()

	ns, err := e.catalog.NamespaceByName(ctx, "ns")
	if apperrors.IsNotFound(err) {
		ns, err = e.catalog.CreateNamespace(ctx, "ns", "")
	}
	require.NoError(t, err)
	table, err := e.catalog.CreateOrGetTable(ctx, ns.ID, "table")
	require.NoError(t, err)
	seq, err := e.catalog.CreateOrGetSequencer(ctx, "topic", 0)
	require.NoError(t, err)
	part, err := e.catalog.CreateOrGetPartition(ctx, "part", seq.ID, table.ID)
	require.NoError(t, err)

	iox := &parquetfile.IoxMetadata{
		ObjectStoreID:     uuid.New(),
		CreationTimestamp: e.clock.Now(),
		NamespaceID:       ns.ID,
		NamespaceName:     ns.Name,
		SequencerID:       seq.ID,
		TableID:           table.ID,
		TableName:         table.Name,
		PartitionID:       part.ID,
		PartitionKey:      part.PartitionKey,
		TimeOfFirstWrite:  time.Unix(1600000000, 0).UTC(),
		TimeOfLastWrite:   time.Unix(1600000100, 0).UTC(),
		MinSequenceNumber: minSeq,
		MaxSequenceNumber: minSeq,
		RowCount:          int64(len(testRows)),
	}

	var buf bytes.Buffer
	require.NoError(t, parquetfile.WriteRows(&buf, testRows, iox))
	data := buf.Bytes()
	require.NoError(t, e.store.Put(ctx, iox.Path().ObjectPath(), data))

	footer, err := parquetfile.ReadFooter(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	file, err := e.catalog.CreateParquetFile(ctx, types.ParquetFileParams{
		SequencerID:       seq.ID,
		TableID:           table.ID,
		PartitionID:       part.ID,
		ObjectStoreID:     iox.ObjectStoreID,
		MinSequenceNumber: minSeq,
		MaxSequenceNumber: minSeq,
		MinTime:           8,
		MaxTime:           20,
		FileSizeBytes:     int64(len(data)),
		ParquetMetadata:   footer,
		RowCount:          int64(len(testRows)),
		CreatedAt:         e.clock.Now(),
	})
	require.NoError(t, err)
	return file
}

// countingFactory records factory calls and delegates to next when set.
type countingFactory struct {
	calls atomic.Int64
	next  ChunkFactory
}

func (f *countingFactory) NewParquetChunk(
	path parquetfile.ParquetFilePath,
	fileSizeBytes int64,
	md *parquetfile.IoxParquetMetaData,
	tableName string,
	partitionKey string,
) (*parquetfile.ParquetChunk, error) {
	f.calls.Add(1)
	if f.next == nil {
		return nil, apperrors.NewInternalError("factory must not be called", nil)
	}
	return f.next.NewParquetChunk(path, fileSizeBytes, md, tableName, partitionKey)
}

// fakeResolver serves names from maps; unknown ids are unresolved.
type fakeResolver struct {
	tables     map[types.TableID]types.Table
	namespaces map[types.NamespaceID]string
	partitions map[types.PartitionID]string
	calls      atomic.Int64
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		tables:     map[types.TableID]types.Table{1: {ID: 1, NamespaceID: 1, Name: "table"}},
		namespaces: map[types.NamespaceID]string{1: "ns"},
		partitions: map[types.PartitionID]string{1: "1-part"},
	}
}

func unresolved(kind string, id any) error {
	what := fmt.Sprintf("%s %v", kind, id)
	return apperrors.NewUnresolvedIdentifierError(what, apperrors.NewCatalogError(apperrors.CodeNotFound, what, nil))
}

func (r *fakeResolver) TableName(ctx context.Context, id types.TableID) (string, error) {
	r.calls.Add(1)
	if t, ok := r.tables[id]; ok {
		return t.Name, nil
	}
	return "", unresolved("table", id)
}

func (r *fakeResolver) TableNamespaceID(ctx context.Context, id types.TableID) (types.NamespaceID, error) {
	r.calls.Add(1)
	if t, ok := r.tables[id]; ok {
		return t.NamespaceID, nil
	}
	return 0, unresolved("table", id)
}

func (r *fakeResolver) NamespaceName(ctx context.Context, id types.NamespaceID) (string, error) {
	r.calls.Add(1)
	if n, ok := r.namespaces[id]; ok {
		return n, nil
	}
	return "", unresolved("namespace", id)
}

func (r *fakeResolver) OldGenPartitionKey(ctx context.Context, id types.PartitionID) (string, error) {
	r.calls.Add(1)
	if k, ok := r.partitions[id]; ok {
		return k, nil
	}
	return "", unresolved("partition", id)
}
