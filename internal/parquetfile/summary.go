package parquetfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/parquet-go/parquet-go/format"

	apperrors "github.com/Karekin/influxdb/internal/errors"
)

// Statistics summarizes one column across all row groups of a file. Min and
// Max are nil when no row group carried decodable bounds.
type Statistics struct {
	Min        any    `json:"min,omitempty"`
	Max        any    `json:"max,omitempty"`
	NullCount  uint64 `json:"null_count"`
	TotalCount uint64 `json:"total_count"`
}

// ColumnSummary holds the statistics of one column.
type ColumnSummary struct {
	Name  string      `json:"name"`
	Type  format.Type `json:"type"`
	Stats Statistics  `json:"stats"`
}

// TableSummary holds per-column statistics for a table's data in one file.
type TableSummary struct {
	Name    string          `json:"name"`
	Columns []ColumnSummary `json:"columns"`
}

// Column returns the summary of the named column.
func (s *TableSummary) Column(name string) (ColumnSummary, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

// TotalCount returns the largest value count of any column, which is the
// number of rows summarized.
func (s *TableSummary) TotalCount() uint64 {
	var n uint64
	for _, c := range s.Columns {
		if c.Stats.TotalCount > n {
			n = c.Stats.TotalCount
		}
	}
	return n
}

// TableSummary merges the column chunk statistics of every row group.
func (m *IoxParquetMetaData) TableSummary(tableName string) (*TableSummary, error) {
	leaves, err := m.leaves()
	if err != nil {
		return nil, apperrors.NewCorruptMetadataError("invalid parquet schema", err)
	}

	summary := &TableSummary{Name: tableName, Columns: make([]ColumnSummary, len(leaves))}
	for i, l := range leaves {
		summary.Columns[i] = ColumnSummary{Name: l.name, Type: *l.elem.Type}
	}

	for g, rg := range m.md.RowGroups {
		if len(rg.Columns) != len(leaves) {
			return nil, apperrors.NewCorruptMetadataError(
				fmt.Sprintf("row group %d has %d columns, schema has %d", g, len(rg.Columns), len(leaves)), nil)
		}
		for i, cc := range rg.Columns {
			col := &summary.Columns[i]
			if cc.MetaData.Type != col.Type {
				return nil, apperrors.NewCorruptMetadataError(
					fmt.Sprintf("row group %d column %q has type %s, schema says %s", g, col.Name, cc.MetaData.Type, col.Type), nil)
			}
			if cc.MetaData.NumValues < 0 || cc.MetaData.Statistics.NullCount < 0 {
				return nil, apperrors.NewCorruptMetadataError(
					fmt.Sprintf("row group %d column %q has negative counts", g, col.Name), nil)
			}
			col.Stats.TotalCount += uint64(cc.MetaData.NumValues)
			col.Stats.NullCount += uint64(cc.MetaData.Statistics.NullCount)
			mergeBounds(&col.Stats, col.Type, cc.MetaData.Statistics)
		}
	}
	return summary, nil
}

func mergeBounds(s *Statistics, t format.Type, st format.Statistics) {
	minRaw, maxRaw := st.MinValue, st.MaxValue
	if minRaw == nil && maxRaw == nil {
		minRaw, maxRaw = st.Min, st.Max
	}

	if v, ok := decodePlain(t, minRaw); ok {
		if s.Min == nil || compareValues(v, s.Min) < 0 {
			s.Min = v
		}
	}
	if v, ok := decodePlain(t, maxRaw); ok {
		if s.Max == nil || compareValues(v, s.Max) > 0 {
			s.Max = v
		}
	}
}

// decodePlain decodes a PLAIN-encoded statistics value.
func decodePlain(t format.Type, b []byte) (any, bool) {
	if b == nil {
		return nil, false
	}
	switch t {
	case format.Boolean:
		if len(b) < 1 {
			return nil, false
		}
		return b[0] != 0, true
	case format.Int32:
		if len(b) != 4 {
			return nil, false
		}
		return int32(binary.LittleEndian.Uint32(b)), true
	case format.Int64:
		if len(b) != 8 {
			return nil, false
		}
		return int64(binary.LittleEndian.Uint64(b)), true
	case format.Float:
		if len(b) != 4 {
			return nil, false
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), true
	case format.Double:
		if len(b) != 8 {
			return nil, false
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), true
	case format.ByteArray:
		return string(b), true
	case format.FixedLenByteArray:
		return append([]byte(nil), b...), true
	default:
		return nil, false
	}
}

// compareValues orders two values produced by decodePlain for the same type.
func compareValues(a, b any) int {
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case int32:
		return cmp3(x < b.(int32), x > b.(int32))
	case int64:
		return cmp3(x < b.(int64), x > b.(int64))
	case float32:
		return cmp3(x < b.(float32), x > b.(float32))
	case float64:
		return cmp3(x < b.(float64), x > b.(float64))
	case string:
		return cmp3(x < b.(string), x > b.(string))
	case []byte:
		return bytes.Compare(x, b.([]byte))
	}
	return 0
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}
