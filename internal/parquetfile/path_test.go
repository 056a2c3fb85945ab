package parquetfile

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karekin/influxdb/pkg/types"
)

func TestParquetFilePath(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-00000000002a")
	file := &types.ParquetFile{
		ID:            7,
		SequencerID:   3,
		TableID:       2,
		PartitionID:   4,
		ObjectStoreID: id,
	}

	path := NewParquetFilePath(1, file)
	assert.Equal(t, "1/2/3/4/00000000-0000-0000-0000-00000000002a.parquet", path.ObjectPath())
	assert.Equal(t, path.ObjectPath(), NewParquetFilePath(1, file).ObjectPath())

	parsed, err := ParsePath(path.ObjectPath())
	require.NoError(t, err)
	assert.Equal(t, path, parsed)
}

func TestParsePath_Invalid(t *testing.T) {
	for _, p := range []string{
		"",
		"1/2/3/4",
		"1/2/3/4/5/6.parquet",
		"a/2/3/4/00000000-0000-0000-0000-00000000002a.parquet",
		"1/2/3/4/00000000-0000-0000-0000-00000000002a.csv",
		"1/2/3/4/not-a-uuid.parquet",
	} {
		_, err := ParsePath(p)
		assert.Error(t, err, "path %q", p)
	}
}
