package importer

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks import outcomes on a dedicated registry.
type Metrics struct {
	Registry *prometheus.Registry

	CreatedTotal   *prometheus.CounterVec
	FailedTotal    *prometheus.CounterVec
	CreateDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		CreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_import_created_total",
			Help: "Entities created in the target system, by entity type.",
		}, []string{"entity"}),
		FailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_import_failures_total",
			Help: "Failed create operations, by entity type.",
		}, []string{"entity"}),
		CreateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_import_product_duration_seconds",
			Help:    "Wall time to fully import one product, including auxiliary entities.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.CreatedTotal, m.FailedTotal, m.CreateDuration)
	return m
}

func (m *Metrics) IncCreated(entity string) {
	if m == nil {
		return
	}
	m.CreatedTotal.WithLabelValues(entity).Inc()
}

func (m *Metrics) IncFailed(entity string) {
	if m == nil {
		return
	}
	m.FailedTotal.WithLabelValues(entity).Inc()
}

func (m *Metrics) ObserveProduct(seconds float64) {
	if m == nil {
		return
	}
	m.CreateDuration.Observe(seconds)
}
