package parquetfile

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/parquet-go/parquet-go/format"

	apperrors "github.com/Karekin/influxdb/internal/errors"
)

// TimeColumnName is the column every table carries its timestamps in.
const TimeColumnName = "time"

// ColumnTypeKey is the arrow field metadata key recording the role of a
// column.
const ColumnTypeKey = "iox::column::type"

// Column roles.
const (
	ColumnTypeTag       = "tag"
	ColumnTypeField     = "field"
	ColumnTypeTimestamp = "timestamp"
)

// leaf is a flattened parquet schema column.
type leaf struct {
	name string
	elem format.SchemaElement
}

// leaves walks the depth-first schema list and returns the leaf columns
// with dotted paths.
func (m *IoxParquetMetaData) leaves() ([]leaf, error) {
	elems := m.md.Schema
	var out []leaf

	var walk func(i int, prefix string) (int, error)
	walk = func(i int, prefix string) (int, error) {
		if i >= len(elems) {
			return i, fmt.Errorf("schema ends inside a group")
		}
		e := elems[i]
		name := e.Name
		if prefix != "" {
			name = prefix + "." + e.Name
		}
		if e.NumChildren == 0 {
			if e.Type == nil {
				return i, fmt.Errorf("column %q has no physical type", name)
			}
			out = append(out, leaf{name: name, elem: e})
			return i + 1, nil
		}
		next := i + 1
		for c := int32(0); c < e.NumChildren; c++ {
			var err error
			if next, err = walk(next, name); err != nil {
				return next, err
			}
		}
		return next, nil
	}

	root := elems[0]
	next := 1
	for c := int32(0); c < root.NumChildren; c++ {
		var err error
		if next, err = walk(next, ""); err != nil {
			return nil, err
		}
	}
	if next != len(elems) {
		return nil, fmt.Errorf("schema has %d trailing elements", len(elems)-next)
	}
	return out, nil
}

// Schema converts the parquet schema into an arrow schema. The time column
// maps to a nanosecond timestamp, string columns are tags and every other
// column is a field.
func (m *IoxParquetMetaData) Schema() (*arrow.Schema, error) {
	leaves, err := m.leaves()
	if err != nil {
		return nil, apperrors.NewCorruptMetadataError("invalid parquet schema", err)
	}

	fields := make([]arrow.Field, 0, len(leaves))
	for _, l := range leaves {
		dt, role, err := arrowType(l)
		if err != nil {
			return nil, apperrors.NewCorruptMetadataError("invalid parquet schema", err)
		}
		fields = append(fields, arrow.Field{
			Name:     l.name,
			Type:     dt,
			Nullable: l.elem.RepetitionType != nil && *l.elem.RepetitionType == format.Optional,
			Metadata: arrow.NewMetadata([]string{ColumnTypeKey}, []string{role}),
		})
	}
	return arrow.NewSchema(fields, nil), nil
}

func arrowType(l leaf) (arrow.DataType, string, error) {
	e := l.elem
	lt := e.LogicalType

	if l.name == TimeColumnName {
		if *e.Type != format.Int64 {
			return nil, "", fmt.Errorf("time column has type %s, want INT64", *e.Type)
		}
		return &arrow.TimestampType{Unit: arrow.Nanosecond}, ColumnTypeTimestamp, nil
	}

	switch *e.Type {
	case format.Boolean:
		return arrow.FixedWidthTypes.Boolean, ColumnTypeField, nil
	case format.Int32:
		if lt != nil && lt.Integer != nil && !lt.Integer.IsSigned {
			return arrow.PrimitiveTypes.Uint32, ColumnTypeField, nil
		}
		return arrow.PrimitiveTypes.Int32, ColumnTypeField, nil
	case format.Int64:
		if lt != nil && lt.Timestamp != nil {
			return &arrow.TimestampType{Unit: timeUnit(lt.Timestamp.Unit)}, ColumnTypeField, nil
		}
		if lt != nil && lt.Integer != nil && !lt.Integer.IsSigned {
			return arrow.PrimitiveTypes.Uint64, ColumnTypeField, nil
		}
		return arrow.PrimitiveTypes.Int64, ColumnTypeField, nil
	case format.Float:
		return arrow.PrimitiveTypes.Float32, ColumnTypeField, nil
	case format.Double:
		return arrow.PrimitiveTypes.Float64, ColumnTypeField, nil
	case format.ByteArray:
		if lt != nil && (lt.UTF8 != nil || lt.Enum != nil || lt.Json != nil) {
			return arrow.BinaryTypes.String, ColumnTypeTag, nil
		}
		return arrow.BinaryTypes.Binary, ColumnTypeField, nil
	case format.FixedLenByteArray:
		width := int32(0)
		if e.TypeLength != nil {
			width = *e.TypeLength
		}
		if width <= 0 {
			return nil, "", fmt.Errorf("column %q has invalid fixed length %d", l.name, width)
		}
		return &arrow.FixedSizeBinaryType{ByteWidth: int(width)}, ColumnTypeField, nil
	default:
		return nil, "", fmt.Errorf("column %q has unsupported type %s", l.name, *e.Type)
	}
}

func timeUnit(u format.TimeUnit) arrow.TimeUnit {
	switch {
	case u.Millis != nil:
		return arrow.Millisecond
	case u.Micros != nil:
		return arrow.Microsecond
	default:
		return arrow.Nanosecond
	}
}
