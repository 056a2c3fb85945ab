package chunk

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Karekin/influxdb/internal/observability"
)

// Metrics counts catalog chunk activity per table. A nil *Metrics records
// nothing.
type Metrics struct {
	chunks   *prometheus.CounterVec
	accesses *prometheus.CounterVec
}

// NewMetrics registers the catalog chunk metrics.
func NewMetrics(reg *observability.Registry) *Metrics {
	return &Metrics{
		chunks:   reg.CounterVec("catalog_chunk", "created_total", "Catalog chunks assembled.", "table"),
		accesses: reg.CounterVec("catalog_chunk", "accesses_total", "Catalog chunk reads recorded.", "table"),
	}
}

func (m *Metrics) created(table string) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(table).Inc()
}

func (m *Metrics) accessed(table string) {
	if m == nil {
		return
	}
	m.accesses.WithLabelValues(table).Inc()
}
