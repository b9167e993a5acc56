package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the quoter.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ProductsTotal   prometheus.Counter
	MissesTotal     prometheus.Counter
	CacheHitsTotal  prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	QuotesTotal     *prometheus.CounterVec
	QuoteDuration   prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoter_requests_total",
			Help: "Catalog HTTP requests issued, by page kind.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quoter_request_duration_seconds",
			Help:    "Catalog request latency, by page kind.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quoter_products_extracted_total",
			Help: "Product pages that yielded a transfer price.",
		},
	)
	misses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quoter_extraction_misses_total",
			Help: "Product pages without a transfer price.",
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quoter_product_cache_hits_total",
			Help: "Product pages answered from the in-memory cache.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoter_fetch_errors_total",
			Help: "Catalog fetch failures by page kind and error type.",
		},
		[]string{"phase", "error_type"},
	)
	quotes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoter_quotes_total",
			Help: "Quote requests by outcome.",
		},
		[]string{"outcome"},
	)
	quoteDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quoter_quote_duration_seconds",
			Help:    "End-to-end quote latency.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	registry.MustRegister(requests, requestDuration, products, misses, cacheHits, errorsTotal, quotes, quoteDuration)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		ProductsTotal:   products,
		MissesTotal:     misses,
		CacheHitsTotal:  cacheHits,
		ErrorsTotal:     errorsTotal,
		QuotesTotal:     quotes,
		QuoteDuration:   quoteDuration,
	}
}

// ObserveRequest records one catalog request and its latency.
func (m *Metrics) ObserveRequest(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
	m.RequestDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// IncProducts increments the extracted products counter.
func (m *Metrics) IncProducts() {
	if m == nil {
		return
	}
	m.ProductsTotal.Inc()
}

// IncMisses increments the extraction misses counter.
func (m *Metrics) IncMisses() {
	if m == nil {
		return
	}
	m.MissesTotal.Inc()
}

// IncCacheHits increments the cache hits counter.
func (m *Metrics) IncCacheHits() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// IncError increments the errors counter for a phase and type label.
func (m *Metrics) IncError(phase, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(phase, errorType).Inc()
}

// ObserveQuote records the outcome and latency of one quote.
func (m *Metrics) ObserveQuote(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues(outcome).Inc()
	m.QuoteDuration.Observe(d.Seconds())
}
