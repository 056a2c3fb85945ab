package parquetfile

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Karekin/influxdb/internal/errors"
)

func TestDecodeMetaData(t *testing.T) {
	md := encodeTestFooter(t, testFooter())

	assert.Equal(t, int64(5), md.NumRows())
	assert.Equal(t, 2, md.NumRowGroups())
	assert.Equal(t, len(md.Raw()), md.Size())

	again, err := DecodeMetaData(md.Raw())
	require.NoError(t, err)
	assert.Equal(t, md.FileMetaData().NumRows, again.FileMetaData().NumRows)
	assert.Equal(t, md.FileMetaData().Schema, again.FileMetaData().Schema)
}

func TestDecodeMetaData_Corrupt(t *testing.T) {
	valid := encodeTestFooter(t, testFooter()).Raw()

	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb, 0xfa}},
		{"truncated", valid[:len(valid)/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMetaData(tt.raw)
			require.Error(t, err)
			assert.True(t, apperrors.IsCorruptMetadata(err), "got %v", err)
		})
	}
}

func TestEncodeMetaData_RejectsInconsistentFooters(t *testing.T) {
	rowMismatch := testFooter()
	rowMismatch.NumRows = 6
	_, err := EncodeMetaData(rowMismatch)
	assert.True(t, apperrors.IsCorruptMetadata(err), "got %v", err)

	noSchema := testFooter()
	noSchema.Schema = nil
	_, err = EncodeMetaData(noSchema)
	assert.True(t, apperrors.IsCorruptMetadata(err), "got %v", err)
}

func TestIoxParquetMetaData_Schema(t *testing.T) {
	md := encodeTestFooter(t, testFooter())

	schema, err := md.Schema()
	require.NoError(t, err)
	require.Equal(t, 3, schema.NumFields())

	fieldInt := schema.Field(0)
	assert.Equal(t, "field_int", fieldInt.Name)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, fieldInt.Type)
	assert.True(t, fieldInt.Nullable)

	tag := schema.Field(1)
	assert.Equal(t, arrow.BinaryTypes.String, tag.Type)
	role, ok := tag.Metadata.GetValue(ColumnTypeKey)
	require.True(t, ok)
	assert.Equal(t, ColumnTypeTag, role)

	ts := schema.Field(2)
	assert.Equal(t, TimeColumnName, ts.Name)
	assert.True(t, arrow.TypeEqual(&arrow.TimestampType{Unit: arrow.Nanosecond}, ts.Type))
	assert.False(t, ts.Nullable)
}

func TestIoxParquetMetaData_TableSummary(t *testing.T) {
	md := encodeTestFooter(t, testFooter())

	summary, err := md.TableSummary("table")
	require.NoError(t, err)
	assert.Equal(t, "table", summary.Name)
	assert.Equal(t, uint64(5), summary.TotalCount())

	fieldInt, ok := summary.Column("field_int")
	require.True(t, ok)
	assert.Equal(t, Statistics{Min: int64(-5), Max: int64(10), NullCount: 1, TotalCount: 5}, fieldInt.Stats)

	tag, ok := summary.Column("tag1")
	require.True(t, ok)
	assert.Equal(t, "a", tag.Stats.Min)
	assert.Equal(t, "z", tag.Stats.Max)

	ts, ok := summary.Column("time")
	require.True(t, ok)
	assert.Equal(t, int64(100), ts.Stats.Min)
	assert.Equal(t, int64(500), ts.Stats.Max)

	_, ok = summary.Column("missing")
	assert.False(t, ok)
}

func TestIoxParquetMetaData_TableSummaryRejectsMismatchedRowGroup(t *testing.T) {
	footer := testFooter()
	footer.RowGroups[1].Columns = footer.RowGroups[1].Columns[:2]
	md := encodeTestFooter(t, footer)

	_, err := md.TableSummary("table")
	assert.True(t, apperrors.IsCorruptMetadata(err), "got %v", err)
}

func TestReadFooter(t *testing.T) {
	iox := testIoxMetadata()
	iox.RowCount = int64(len(testRows))
	data := writeTestFile(t, iox)

	raw, err := ReadFooter(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	md, err := DecodeMetaData(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(len(testRows)), md.NumRows())

	// The footer is exactly the bytes between the data region and the trailer.
	assert.Equal(t, data[len(data)-8-len(raw):len(data)-8], raw)

	got, err := md.ReadIoxMetadata()
	require.NoError(t, err)
	assert.Equal(t, iox.ObjectStoreID, got.ObjectStoreID)
	assert.Equal(t, "table", got.TableName)
}

func TestReadFooter_Invalid(t *testing.T) {
	data := writeTestFile(t, func() *IoxMetadata {
		m := testIoxMetadata()
		m.RowCount = int64(len(testRows))
		return m
	}())

	noTrailer := append([]byte(nil), data...)
	copy(noTrailer[len(noTrailer)-4:], "XXXX")

	noHeader := append([]byte(nil), data...)
	copy(noHeader, "XXXX")

	hugeLength := append([]byte(nil), data...)
	copy(hugeLength[len(hugeLength)-8:], []byte{0xff, 0xff, 0xff, 0x0f})

	tests := []struct {
		name string
		data []byte
	}{
		{"too small", []byte("PAR1PAR1")},
		{"bad trailer magic", noTrailer},
		{"bad header magic", noHeader},
		{"footer length exceeds file", hugeLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFooter(bytes.NewReader(tt.data), int64(len(tt.data)))
			require.Error(t, err)
			assert.True(t, apperrors.IsCorruptMetadata(err), "got %v", err)
		})
	}
}
