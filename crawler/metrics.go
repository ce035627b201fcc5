package crawler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawl phase.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RecordsSampled  prometheus.Counter
	PagesDiscovered prometheus.Counter
	PageDensity     prometheus.Gauge
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_crawl_requests_total",
			Help: "Total HTTP requests issued during the crawl.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_crawl_request_duration_seconds",
			Help:    "HTTP request latency during the crawl.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_crawl_records_sampled_total",
			Help: "Product records handed to the pipeline.",
		},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_crawl_pages_discovered_total",
			Help: "Listing pages discovered across all leaf categories.",
		},
	)
	density := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_crawl_page_density",
			Help: "Observed listing entries on one full page.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_crawl_errors_total",
			Help: "Crawl errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, records, pages, density, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		RecordsSampled:  records,
		PagesDiscovered: pages,
		PageDensity:     density,
		ErrorsTotal:     errorsTotal,
	}
}

// IncRequest counts one request in the given crawl phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records one request latency.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRecords counts one sampled product record.
func (m *Metrics) IncRecords() {
	if m == nil {
		return
	}
	m.RecordsSampled.Inc()
}

// AddPages counts listing pages discovered for a leaf.
func (m *Metrics) AddPages(n int) {
	if m == nil {
		return
	}
	m.PagesDiscovered.Add(float64(n))
}

// SetDensity records the process-wide page density, once measured.
func (m *Metrics) SetDensity(n int) {
	if m == nil {
		return
	}
	m.PageDensity.Set(float64(n))
}

// IncError counts one crawl error with its classification label.
func (m *Metrics) IncError(label string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(label).Inc()
}
