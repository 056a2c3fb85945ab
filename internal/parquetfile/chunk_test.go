package parquetfile

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Karekin/influxdb/internal/errors"
	"github.com/Karekin/influxdb/internal/observability"
	"github.com/Karekin/influxdb/internal/storage"
)

type countingStorage struct {
	storage.ObjectStorage
	ranges int
}

func (s *countingStorage) GetRange(ctx context.Context, path string, offset, length int64) ([]byte, error) {
	s.ranges++
	return s.ObjectStorage.GetRange(ctx, path, offset, length)
}

func newTestStore(t *testing.T) *countingStorage {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return &countingStorage{ObjectStorage: local}
}

func TestNewParquetChunk_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	reg := observability.NewRegistry()
	metrics := NewChunkMetrics(reg)

	iox := testIoxMetadata()
	iox.RowCount = int64(len(testRows))
	data := writeTestFile(t, iox)
	require.NoError(t, store.Put(ctx, iox.Path().ObjectPath(), data))

	raw, err := ReadFooter(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	md, err := DecodeMetaData(raw)
	require.NoError(t, err)

	chunk, err := NewParquetChunk(iox.Path(), store, int64(len(data)), md, "table", "1-part", metrics)
	require.NoError(t, err)
	assert.Zero(t, store.ranges, "construction must not read the object")

	assert.Equal(t, "table", chunk.TableName())
	assert.Equal(t, "1-part", chunk.PartitionKey())
	assert.Equal(t, int64(3), chunk.RowCount())
	assert.Equal(t, iox.Path().ObjectPath(), chunk.ObjectPath())
	assert.Same(t, md, chunk.Metadata())
	assert.Equal(t, uint64(3), chunk.TableSummary().TotalCount())
	assert.Len(t, chunk.Schema().FieldIndices(TimeColumnName), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.created.WithLabelValues("table")))

	rows, err := ReadRows[testRow](ctx, chunk)
	require.NoError(t, err)
	assert.ElementsMatch(t, testRows, rows)
	assert.NotZero(t, store.ranges)
	assert.Positive(t, testutil.ToFloat64(metrics.bytesRead.WithLabelValues("table")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.opens.WithLabelValues("table")))
}

func TestNewParquetChunk_LayoutMismatch(t *testing.T) {
	store := newTestStore(t)
	md := encodeTestFooter(t, testFooter())
	path := testIoxMetadata().Path()
	exact := int64(testDataEnd + md.Size() + 8)

	chunk, err := NewParquetChunk(path, store, exact, md, "table", "1-part", nil)
	require.NoError(t, err)
	assert.Equal(t, exact, chunk.FileSizeBytes())

	tests := []struct {
		name string
		size int64
	}{
		{"column chunk overlaps footer", exact - 1},
		{"too small for footer", int64(md.Size())},
		{"zero size", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParquetChunk(path, store, tt.size, md, "table", "1-part", nil)
			require.Error(t, err)
			assert.True(t, apperrors.IsChunkConstruction(err), "got %v", err)
		})
	}
}

func TestNewParquetChunk_ColumnSizeOverflow(t *testing.T) {
	footer := testFooter()
	footer.RowGroups[0].Columns[0].MetaData.TotalCompressedSize = math.MaxInt64
	md := encodeTestFooter(t, footer)
	size := int64(testDataEnd + md.Size() + 8)

	_, err := NewParquetChunk(testIoxMetadata().Path(), newTestStore(t), size, md, "table", "1-part", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsChunkConstruction(err), "got %v", err)
}

func TestNewParquetChunk_ColumnBeyondFooter(t *testing.T) {
	footer := testFooter()
	footer.RowGroups[1].Columns[0].MetaData.DataPageOffset = math.MaxInt64 - 1
	footer.RowGroups[1].Columns[0].MetaData.TotalCompressedSize = 1
	md := encodeTestFooter(t, footer)
	size := int64(testDataEnd + md.Size() + 8)

	_, err := NewParquetChunk(testIoxMetadata().Path(), newTestStore(t), size, md, "table", "1-part", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsChunkConstruction(err), "got %v", err)
}

func TestNewParquetChunk_ColumnBeforeHeader(t *testing.T) {
	footer := testFooter()
	footer.RowGroups[0].Columns[0].MetaData.DataPageOffset = 0
	md := encodeTestFooter(t, footer)

	_, err := NewParquetChunk(testIoxMetadata().Path(), newTestStore(t), 1<<20, md, "table", "1-part", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsChunkConstruction(err), "got %v", err)
}
