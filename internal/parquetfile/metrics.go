package parquetfile

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Karekin/influxdb/internal/observability"
)

// ChunkMetrics records parquet chunk activity per table. A nil *ChunkMetrics
// records nothing.
type ChunkMetrics struct {
	created   *prometheus.CounterVec
	bytesRead *prometheus.CounterVec
	opens     *prometheus.CounterVec
}

// NewChunkMetrics registers the parquet chunk metrics.
func NewChunkMetrics(reg *observability.Registry) *ChunkMetrics {
	return &ChunkMetrics{
		created:   reg.CounterVec("parquet_chunk", "created_total", "Parquet chunks constructed.", "table"),
		bytesRead: reg.CounterVec("parquet_chunk", "bytes_read_total", "Bytes read from parquet chunk files.", "table"),
		opens:     reg.CounterVec("parquet_chunk", "opens_total", "Parquet chunk files opened for reading.", "table"),
	}
}

func (m *ChunkMetrics) chunkCreated(table string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(table).Inc()
}

func (m *ChunkMetrics) bytesReadFn(table string) func(int) {
	if m == nil {
		return nil
	}
	c := m.bytesRead.WithLabelValues(table)
	return func(n int) { c.Add(float64(n)) }
}

func (m *ChunkMetrics) fileOpened(table string) {
	if m == nil {
		return
	}
	m.opens.WithLabelValues(table).Inc()
}
