package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_CounterVecIsShared(t *testing.T) {
	r := NewRegistry()

	a := r.CounterVec("chunk", "bytes_read_total", "bytes read", "table")
	b := r.CounterVec("chunk", "bytes_read_total", "bytes read", "table")
	if a != b {
		t.Fatal("expected the same collector for the same name")
	}

	a.WithLabelValues("cpu").Add(3)
	b.WithLabelValues("cpu").Add(4)

	if got := testutil.ToFloat64(a.WithLabelValues("cpu")); got != 7 {
		t.Errorf("got %v, want 7", got)
	}
}

func TestRegistry_Gather(t *testing.T) {
	r := NewRegistry()
	r.CounterVec("cache", "hits_total", "cache hits", "kind").WithLabelValues("table").Inc()
	r.HistogramVec("adapter", "build_seconds", "chunk build latency", nil).WithLabelValues().Observe(0.01)
	r.GaugeVec("querier", "inflight", "in-flight builds").WithLabelValues().Set(2)

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"iox_querier_cache_hits_total",
		"iox_querier_adapter_build_seconds",
		"iox_querier_querier_inflight",
	} {
		if !names[want] {
			t.Errorf("missing metric %s in %v", want, names)
		}
	}
}
