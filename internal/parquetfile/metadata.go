// Package parquetfile decodes the metadata of persisted parquet files and
// builds lazily-read parquet chunks on top of the object store.
package parquetfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go/encoding/thrift"
	"github.com/parquet-go/parquet-go/format"

	apperrors "github.com/Karekin/influxdb/internal/errors"
)

const (
	magic        = "PAR1"
	magicSize    = 4
	trailerSize  = 8 // footer length (uint32 LE) + magic
	maxFooterLen = 1 << 30
)

// IoxParquetMetaData is the decoded footer of one parquet file. It keeps the
// raw thrift bytes it was decoded from and is never mutated after
// construction, so a single handle can be shared by every consumer.
type IoxParquetMetaData struct {
	raw []byte
	md  format.FileMetaData
}

// DecodeMetaData decodes the thrift-encoded parquet footer held by a catalog
// record. The raw slice is retained, not copied; callers must not modify it
// afterwards.
func DecodeMetaData(raw []byte) (*IoxParquetMetaData, error) {
	if len(raw) == 0 {
		return nil, apperrors.NewCorruptMetadataError("empty parquet metadata", nil)
	}

	m := &IoxParquetMetaData{raw: raw}
	if err := thrift.Unmarshal(new(thrift.CompactProtocol), raw, &m.md); err != nil {
		return nil, apperrors.NewCorruptMetadataError("cannot decode parquet footer", err)
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeMetaData serializes a footer and decodes it back into a handle.
func EncodeMetaData(md *format.FileMetaData) (*IoxParquetMetaData, error) {
	raw, err := thrift.Marshal(new(thrift.CompactProtocol), md)
	if err != nil {
		return nil, apperrors.NewInternalError("cannot encode parquet footer", err)
	}
	return DecodeMetaData(raw)
}

func (m *IoxParquetMetaData) check() error {
	if len(m.md.Schema) == 0 {
		return apperrors.NewCorruptMetadataError("parquet footer has no schema", nil)
	}
	if m.md.NumRows < 0 {
		return apperrors.NewCorruptMetadataError(fmt.Sprintf("negative row count %d", m.md.NumRows), nil)
	}

	var rows int64
	for i, rg := range m.md.RowGroups {
		if rg.NumRows < 0 {
			return apperrors.NewCorruptMetadataError(fmt.Sprintf("row group %d has negative row count", i), nil)
		}
		rows += rg.NumRows
	}
	if len(m.md.RowGroups) > 0 && rows != m.md.NumRows {
		return apperrors.NewCorruptMetadataError(
			fmt.Sprintf("row groups hold %d rows, footer declares %d", rows, m.md.NumRows), nil)
	}
	return nil
}

// Raw returns the thrift bytes the handle was decoded from.
func (m *IoxParquetMetaData) Raw() []byte { return m.raw }

// Size returns the encoded footer size in bytes.
func (m *IoxParquetMetaData) Size() int { return len(m.raw) }

// FileMetaData returns the decoded footer. The result must be treated as
// read-only.
func (m *IoxParquetMetaData) FileMetaData() *format.FileMetaData { return &m.md }

// NumRows returns the row count declared by the footer.
func (m *IoxParquetMetaData) NumRows() int64 { return m.md.NumRows }

// NumRowGroups returns the number of row groups in the file.
func (m *IoxParquetMetaData) NumRowGroups() int { return len(m.md.RowGroups) }

// Lookup returns the value stored under a key-value metadata key.
func (m *IoxParquetMetaData) Lookup(key string) (string, bool) {
	for _, kv := range m.md.KeyValueMetadata {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// ReadFooter extracts the verbatim thrift footer from a complete parquet
// file. Both magic markers are checked.
func ReadFooter(r io.ReaderAt, size int64) ([]byte, error) {
	if size < magicSize+trailerSize {
		return nil, apperrors.NewCorruptMetadataError(fmt.Sprintf("file of %d bytes is too small for parquet", size), nil)
	}

	head := make([]byte, magicSize)
	if err := readFull(r, head, 0); err != nil {
		return nil, fmt.Errorf("failed to read parquet header: %w", err)
	}
	if !bytes.Equal(head, []byte(magic)) {
		return nil, apperrors.NewCorruptMetadataError("missing parquet header magic", nil)
	}

	trailer := make([]byte, trailerSize)
	if err := readFull(r, trailer, size-trailerSize); err != nil {
		return nil, fmt.Errorf("failed to read parquet trailer: %w", err)
	}
	if !bytes.Equal(trailer[4:], []byte(magic)) {
		return nil, apperrors.NewCorruptMetadataError("missing parquet trailer magic", nil)
	}

	footerLen := int64(binary.LittleEndian.Uint32(trailer[:4]))
	if footerLen == 0 || footerLen > maxFooterLen || footerLen > size-magicSize-trailerSize {
		return nil, apperrors.NewCorruptMetadataError(fmt.Sprintf("invalid footer length %d", footerLen), nil)
	}

	footer := make([]byte, footerLen)
	if err := readFull(r, footer, size-trailerSize-footerLen); err != nil {
		return nil, fmt.Errorf("failed to read parquet footer: %w", err)
	}
	return footer, nil
}

// readFull tolerates io.EOF alongside a complete read, which io.ReaderAt
// implementations may return at the end of the input.
func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}
