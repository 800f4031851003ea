package tiered

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	m1 := NewMetrics(reg)
	// A second registration on the same registry must reuse the
	// collectors instead of panicking.
	m2 := NewMetrics(reg)

	if m1.hits != m2.hits {
		t.Fatalf("expected hit counter to be reused")
	}
	if m1.misses != m2.misses {
		t.Fatalf("expected miss counter to be reused")
	}
	if m1.errors != m2.errors {
		t.Fatalf("expected error counter to be reused")
	}

	// Both handles feed the shared counters without issue.
	m1.hit("memory")
	m2.miss()
	m2.storeError("set", "redis")
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	m.hit("memory")
	m.miss()
	m.storeError("get", "redis")
}
