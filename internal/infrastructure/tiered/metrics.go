package tiered

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters for cache traffic. A nil
// *Metrics is valid and records nothing, so tests and embedders that do
// not scrape can skip registration entirely.
type Metrics struct {
	hits   *prometheus.CounterVec
	misses prometheus.Counter
	errors *prometheus.CounterVec
}

// NewMetrics creates the cache counters and registers them on reg.
// When a second cache in the same process registers the same counters,
// the existing collectors are reused instead of panicking.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Cache read hits by tier",
	}, []string{"tier"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Cache reads that missed every tier",
	})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_errors_total",
		Help: "Swallowed store errors by operation and tier",
	}, []string{"operation", "tier"})

	return &Metrics{
		hits:   register(reg, hits).(*prometheus.CounterVec),
		misses: register(reg, misses).(prometheus.Counter),
		errors: register(reg, errs).(*prometheus.CounterVec),
	}
}

// register adds c to reg, falling back to the collector a previous
// registration put there.
func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

func (m *Metrics) hit(tier string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(tier).Inc()
}

func (m *Metrics) miss() {
	if m == nil {
		return
	}
	m.misses.Inc()
}

func (m *Metrics) storeError(op, tier string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(op, tier).Inc()
}
