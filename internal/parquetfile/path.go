package parquetfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Karekin/influxdb/pkg/types"
)

const fileExtension = ".parquet"

// ParquetFilePath locates a parquet file in the object store.
type ParquetFilePath struct {
	NamespaceID   types.NamespaceID
	TableID       types.TableID
	SequencerID   types.SequencerID
	PartitionID   types.PartitionID
	ObjectStoreID uuid.UUID
}

// NewParquetFilePath builds the location of a catalog file record.
func NewParquetFilePath(namespaceID types.NamespaceID, f *types.ParquetFile) ParquetFilePath {
	return ParquetFilePath{
		NamespaceID:   namespaceID,
		TableID:       f.TableID,
		SequencerID:   f.SequencerID,
		PartitionID:   f.PartitionID,
		ObjectStoreID: f.ObjectStoreID,
	}
}

// ObjectPath renders <namespace>/<table>/<sequencer>/<partition>/<uuid>.parquet.
func (p ParquetFilePath) ObjectPath() string {
	return fmt.Sprintf("%d/%d/%d/%d/%s%s",
		p.NamespaceID, p.TableID, p.SequencerID, p.PartitionID, p.ObjectStoreID, fileExtension)
}

func (p ParquetFilePath) String() string {
	return p.ObjectPath()
}

// ParsePath is the inverse of ObjectPath.
func ParsePath(objectPath string) (ParquetFilePath, error) {
	parts := strings.Split(objectPath, "/")
	if len(parts) != 5 {
		return ParquetFilePath{}, fmt.Errorf("invalid parquet file path %q: expected 5 segments, got %d", objectPath, len(parts))
	}

	var ids [4]int64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil {
			return ParquetFilePath{}, fmt.Errorf("invalid parquet file path %q: segment %d: %w", objectPath, i, err)
		}
		ids[i] = v
	}

	name, ok := strings.CutSuffix(parts[4], fileExtension)
	if !ok {
		return ParquetFilePath{}, fmt.Errorf("invalid parquet file path %q: missing %s extension", objectPath, fileExtension)
	}
	id, err := uuid.Parse(name)
	if err != nil {
		return ParquetFilePath{}, fmt.Errorf("invalid parquet file path %q: %w", objectPath, err)
	}

	return ParquetFilePath{
		NamespaceID:   types.NamespaceID(ids[0]),
		TableID:       types.TableID(ids[1]),
		SequencerID:   types.SequencerID(ids[2]),
		PartitionID:   types.PartitionID(ids[3]),
		ObjectStoreID: id,
	}, nil
}
