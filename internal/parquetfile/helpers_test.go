package parquetfile

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go/format"
	"github.com/stretchr/testify/require"
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

func testIoxMetadata() *IoxMetadata {
	return &IoxMetadata{
		ObjectStoreID:     uuid.MustParse("6c4e2a8c-2b0a-4b41-9d54-2d0c6a1f9e11"),
		CreationTimestamp: time.Unix(1700000000, 0).UTC(),
		NamespaceID:       1,
		NamespaceName:     "ns",
		SequencerID:       1,
		TableID:           2,
		TableName:         "table",
		PartitionID:       3,
		PartitionKey:      "part",
		TimeOfFirstWrite:  time.Unix(1600000000, 0).UTC(),
		TimeOfLastWrite:   time.Unix(1600000100, 0).UTC(),
		MinSequenceNumber: 0,
		MaxSequenceNumber: 4,
		RowCount:          5,
	}
}

func plainInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func column(name string, t format.Type, offset, numValues, nulls int64, min, max []byte) format.ColumnChunk {
	return format.ColumnChunk{
		FileOffset: offset,
		MetaData: format.ColumnMetaData{
			Type:                t,
			Encoding:            []format.Encoding{format.Plain},
			PathInSchema:        []string{name},
			Codec:               format.Uncompressed,
			NumValues:           numValues,
			TotalCompressedSize: 100,
			DataPageOffset:      offset,
			Statistics: format.Statistics{
				NullCount: nulls,
				MinValue:  min,
				MaxValue:  max,
			},
		},
	}
}

// testFooter describes a file with two row groups whose column chunks
// occupy bytes [4, 604).
func testFooter() *format.FileMetaData {
	i64 := format.Int64
	byteArray := format.ByteArray
	optional := format.Optional
	required := format.Required

	return &format.FileMetaData{
		Version: 1,
		Schema: []format.SchemaElement{
			{Name: "schema", NumChildren: 3},
			{Name: "field_int", Type: &i64, RepetitionType: &optional},
			{Name: "tag1", Type: &byteArray, RepetitionType: &optional, LogicalType: &format.LogicalType{UTF8: &format.StringType{}}},
			{Name: "time", Type: &i64, RepetitionType: &required},
		},
		NumRows: 5,
		RowGroups: []format.RowGroup{
			{
				NumRows:       3,
				TotalByteSize: 300,
				Columns: []format.ColumnChunk{
					column("field_int", format.Int64, 4, 3, 1, plainInt64(1), plainInt64(10)),
					column("tag1", format.ByteArray, 104, 3, 0, []byte("a"), []byte("c")),
					column("time", format.Int64, 204, 3, 0, plainInt64(100), plainInt64(300)),
				},
			},
			{
				NumRows:       2,
				TotalByteSize: 300,
				Columns: []format.ColumnChunk{
					column("field_int", format.Int64, 304, 2, 0, plainInt64(-5), plainInt64(7)),
					column("tag1", format.ByteArray, 404, 2, 0, []byte("b"), []byte("z")),
					column("time", format.Int64, 504, 2, 0, plainInt64(400), plainInt64(500)),
				},
			},
		},
		KeyValueMetadata: []format.KeyValue{
			{Key: MetadataKey, Value: testIoxMetadata().Encode()},
		},
	}
}

const testDataEnd = 604

func encodeTestFooter(t *testing.T, md *format.FileMetaData) *IoxParquetMetaData {
	t.Helper()
	decoded, err := EncodeMetaData(md)
	require.NoError(t, err)
	return decoded
}

// writeTestFile returns a complete parquet file holding testRows.
func writeTestFile(t *testing.T, md *IoxMetadata) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, testRows, md))
	return buf.Bytes()
}
