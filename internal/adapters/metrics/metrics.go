package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portfolio"

// Metrics holds the service's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	gatherer prometheus.Gatherer

	passDuration    *prometheus.HistogramVec
	passesDiscarded prometheus.Counter
	providerErrors  *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	portfolioTotal  prometheus.Gauge
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. When gatherer is
// nil the /metrics handler falls back to the default gatherer.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pass_duration_seconds",
				Help:      "Duration of aggregation passes",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		passesDiscarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_discarded_total",
				Help:      "Aggregation passes discarded because a newer pass was dispatched",
			},
		),
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Total number of market data provider errors",
			},
			[]string{"provider", "operation"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		portfolioTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "total_usd",
				Help:      "Total portfolio value in USD from the latest snapshot",
			},
		),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.passDuration,
		m.passesDiscarded,
		m.providerErrors,
		m.cacheLookups,
		m.portfolioTotal,
		m.requestCounter,
		m.requestDuration,
	)

	return m
}

// NewRegistry returns metrics backed by a fresh registry, for tests and
// for processes that should not expose the Go runtime collectors.
func NewRegistry() *Metrics {
	reg := prometheus.NewRegistry()
	return New(reg, reg)
}

func (m *Metrics) ObservePass(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.passDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) PassDiscarded() {
	if m == nil {
		return
	}
	m.passesDiscarded.Inc()
}

func (m *Metrics) ProviderError(provider, operation string) {
	if m == nil {
		return
	}
	m.providerErrors.WithLabelValues(provider, operation).Inc()
}

func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) SetPortfolioTotal(v float64) {
	if m == nil {
		return
	}
	m.portfolioTotal.Set(v)
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registered metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
