package parquetfile

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	apperrors "github.com/Karekin/influxdb/internal/errors"
	"github.com/Karekin/influxdb/pkg/types"
)

const (
	// MetadataKey is the parquet key-value metadata key holding the
	// embedded identity of a file.
	MetadataKey = "IOX:metadata"

	// MetadataVersion is the only identity encoding this package reads.
	MetadataVersion uint32 = 1
)

// Protobuf field numbers of the embedded identity message.
const (
	fieldVersion protowire.Number = iota + 1
	fieldObjectStoreID
	fieldCreationTimestamp
	fieldNamespaceID
	fieldNamespaceName
	fieldSequencerID
	fieldTableID
	fieldTableName
	fieldPartitionID
	fieldPartitionKey
	fieldTimeOfFirstWrite
	fieldTimeOfLastWrite
	fieldMinSequenceNumber
	fieldMaxSequenceNumber
	fieldRowCount
)

// IoxMetadata is the identity written into every parquet file at persist
// time.
type IoxMetadata struct {
	ObjectStoreID     uuid.UUID
	CreationTimestamp time.Time
	NamespaceID       types.NamespaceID
	NamespaceName     string
	SequencerID       types.SequencerID
	TableID           types.TableID
	TableName         string
	PartitionID       types.PartitionID
	PartitionKey      string
	TimeOfFirstWrite  time.Time
	TimeOfLastWrite   time.Time
	MinSequenceNumber types.SequenceNumber
	MaxSequenceNumber types.SequenceNumber
	RowCount          int64
}

// Path returns the object-store location of the file this identity
// describes.
func (m *IoxMetadata) Path() ParquetFilePath {
	return ParquetFilePath{
		NamespaceID:   m.NamespaceID,
		TableID:       m.TableID,
		SequencerID:   m.SequencerID,
		PartitionID:   m.PartitionID,
		ObjectStoreID: m.ObjectStoreID,
	}
}

// Validate checks the invariants every persisted identity satisfies.
func (m *IoxMetadata) Validate() error {
	switch {
	case m.ObjectStoreID == uuid.Nil:
		return fmt.Errorf("object store id is nil")
	case m.NamespaceID <= 0:
		return fmt.Errorf("invalid namespace id %d", m.NamespaceID)
	case m.SequencerID <= 0:
		return fmt.Errorf("invalid sequencer id %d", m.SequencerID)
	case m.TableID <= 0:
		return fmt.Errorf("invalid table id %d", m.TableID)
	case m.PartitionID <= 0:
		return fmt.Errorf("invalid partition id %d", m.PartitionID)
	case m.MinSequenceNumber > m.MaxSequenceNumber:
		return fmt.Errorf("min sequence number %d exceeds max %d", m.MinSequenceNumber, m.MaxSequenceNumber)
	case m.TimeOfFirstWrite.After(m.TimeOfLastWrite):
		return fmt.Errorf("first write %s is after last write %s", m.TimeOfFirstWrite, m.TimeOfLastWrite)
	case m.RowCount < 0:
		return fmt.Errorf("negative row count %d", m.RowCount)
	}
	return nil
}

// MarshalProto encodes the identity in protobuf wire format.
func (m *IoxMetadata) MarshalProto() []byte {
	var b []byte
	b = appendVarint(b, fieldVersion, uint64(MetadataVersion))
	b = protowire.AppendTag(b, fieldObjectStoreID, protowire.BytesType)
	b = protowire.AppendBytes(b, m.ObjectStoreID[:])
	b = appendVarint(b, fieldCreationTimestamp, unixNanos(m.CreationTimestamp))
	b = appendVarint(b, fieldNamespaceID, uint64(m.NamespaceID))
	b = appendString(b, fieldNamespaceName, m.NamespaceName)
	b = appendVarint(b, fieldSequencerID, uint64(m.SequencerID))
	b = appendVarint(b, fieldTableID, uint64(m.TableID))
	b = appendString(b, fieldTableName, m.TableName)
	b = appendVarint(b, fieldPartitionID, uint64(m.PartitionID))
	b = appendString(b, fieldPartitionKey, m.PartitionKey)
	b = appendVarint(b, fieldTimeOfFirstWrite, unixNanos(m.TimeOfFirstWrite))
	b = appendVarint(b, fieldTimeOfLastWrite, unixNanos(m.TimeOfLastWrite))
	b = appendVarint(b, fieldMinSequenceNumber, uint64(m.MinSequenceNumber))
	b = appendVarint(b, fieldMaxSequenceNumber, uint64(m.MaxSequenceNumber))
	b = appendVarint(b, fieldRowCount, uint64(m.RowCount))
	return b
}

// Encode returns the base64 form stored under MetadataKey.
func (m *IoxMetadata) Encode() string {
	return base64.StdEncoding.EncodeToString(m.MarshalProto())
}

// unixNanos encodes the zero time as 0; fromUnixNanos inverts it.
func unixNanos(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano())
}

func fromUnixNanos(v uint64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(v)).UTC()
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// UnmarshalIoxMetadata decodes the protobuf form of an identity. Unknown
// fields are skipped.
func UnmarshalIoxMetadata(b []byte) (*IoxMetadata, error) {
	var (
		m       IoxMetadata
		version uint64
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && isVarintField(num):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			setVarintField(&m, &version, num, v)

		case typ == protowire.BytesType && isBytesField(num):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			if err := setBytesField(&m, num, v); err != nil {
				return nil, err
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}

	if uint32(version) != MetadataVersion {
		return nil, fmt.Errorf("unsupported metadata version %d", version)
	}
	return &m, nil
}

func isVarintField(num protowire.Number) bool {
	switch num {
	case fieldObjectStoreID, fieldNamespaceName, fieldTableName, fieldPartitionKey:
		return false
	}
	return num >= fieldVersion && num <= fieldRowCount
}

func isBytesField(num protowire.Number) bool {
	switch num {
	case fieldObjectStoreID, fieldNamespaceName, fieldTableName, fieldPartitionKey:
		return true
	}
	return false
}

func setVarintField(m *IoxMetadata, version *uint64, num protowire.Number, v uint64) {
	switch num {
	case fieldVersion:
		*version = v
	case fieldCreationTimestamp:
		m.CreationTimestamp = fromUnixNanos(v)
	case fieldNamespaceID:
		m.NamespaceID = types.NamespaceID(v)
	case fieldSequencerID:
		m.SequencerID = types.SequencerID(v)
	case fieldTableID:
		m.TableID = types.TableID(v)
	case fieldPartitionID:
		m.PartitionID = types.PartitionID(v)
	case fieldTimeOfFirstWrite:
		m.TimeOfFirstWrite = fromUnixNanos(v)
	case fieldTimeOfLastWrite:
		m.TimeOfLastWrite = fromUnixNanos(v)
	case fieldMinSequenceNumber:
		m.MinSequenceNumber = types.SequenceNumber(v)
	case fieldMaxSequenceNumber:
		m.MaxSequenceNumber = types.SequenceNumber(v)
	case fieldRowCount:
		m.RowCount = int64(v)
	}
}

func setBytesField(m *IoxMetadata, num protowire.Number, v []byte) error {
	switch num {
	case fieldObjectStoreID:
		id, err := uuid.FromBytes(v)
		if err != nil {
			return fmt.Errorf("invalid object store id: %w", err)
		}
		m.ObjectStoreID = id
	case fieldNamespaceName:
		m.NamespaceName = string(v)
	case fieldTableName:
		m.TableName = string(v)
	case fieldPartitionKey:
		m.PartitionKey = string(v)
	}
	return nil
}

// DecodeIoxMetadata decodes the base64 value stored under MetadataKey and
// validates it.
func DecodeIoxMetadata(s string) (*IoxMetadata, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, apperrors.NewCorruptMetadataError("embedded metadata is not valid base64", err)
	}
	m, err := UnmarshalIoxMetadata(b)
	if err != nil {
		return nil, apperrors.NewCorruptMetadataError("cannot decode embedded metadata", err)
	}
	if err := m.Validate(); err != nil {
		return nil, apperrors.NewCorruptMetadataError("invalid embedded metadata", err)
	}
	return m, nil
}

// ReadIoxMetadata extracts the embedded identity of the file.
func (m *IoxParquetMetaData) ReadIoxMetadata() (*IoxMetadata, error) {
	v, ok := m.Lookup(MetadataKey)
	if !ok {
		return nil, apperrors.NewCorruptMetadataError(fmt.Sprintf("parquet footer has no %s entry", MetadataKey), nil)
	}
	return DecodeIoxMetadata(v)
}
