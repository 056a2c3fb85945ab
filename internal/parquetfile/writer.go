package parquetfile

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// WriteRows writes rows as a parquet file carrying md as its embedded
// identity.
func WriteRows[T any](w io.Writer, rows []T, md *IoxMetadata) error {
	if err := md.Validate(); err != nil {
		return fmt.Errorf("invalid metadata: %w", err)
	}

	writer := parquet.NewGenericWriter[T](w, parquet.KeyValueMetadata(MetadataKey, md.Encode()))
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// Rewrite copies every row group of src into a new parquet file on w that
// carries md as its embedded identity. It returns the number of rows
// written.
func Rewrite(w io.Writer, src *parquet.File, md *IoxMetadata) (int64, error) {
	if err := md.Validate(); err != nil {
		return 0, fmt.Errorf("invalid metadata: %w", err)
	}

	writer := parquet.NewWriter(w, src.Schema(), parquet.KeyValueMetadata(MetadataKey, md.Encode()))

	var total int64
	for i, rg := range src.RowGroups() {
		n, err := writer.WriteRowGroup(rg)
		if err != nil {
			return total, fmt.Errorf("failed to copy row group %d: %w", i, err)
		}
		total += n
	}
	if err := writer.Close(); err != nil {
		return total, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return total, nil
}
