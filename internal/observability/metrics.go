package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "kvcache"

// Metrics holds Prometheus metrics for store commands, instrumented
// operations, and the fetch cache.
type Metrics struct {
	StoreDuration *prometheus.HistogramVec
	StoreErrors   *prometheus.CounterVec
	CallsTotal    *prometheus.CounterVec
	FetchHits     prometheus.Counter
	FetchMisses   prometheus.Counter
	FetchErrors   prometheus.Counter
	FetchDuration prometheus.Histogram
	BreakerState  *prometheus.GaugeVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics()
	})
	return metricsInstance
}

// MustRegister registers all collectors with the given registry. promauto
// registers with the default registry; this bridges a custom one.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.StoreDuration,
		m.StoreErrors,
		m.CallsTotal,
		m.FetchHits,
		m.FetchMisses,
		m.FetchErrors,
		m.FetchDuration,
		m.BreakerState,
	)
}

// Init pre-initializes label combinations so the series show up with zero
// values before the first command runs. Idempotent.
func (m *Metrics) Init() {
	for _, cmd := range []string{"set", "get", "setex", "incr", "rpush", "lrange", "flush"} {
		m.StoreDuration.WithLabelValues(cmd)
		m.StoreErrors.WithLabelValues(cmd)
	}
}

func newMetrics() *Metrics {
	return &Metrics{
		StoreDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "store",
				Name:      "command_duration_seconds",
				Help:      "Duration of key-value store commands",
				Buckets: []float64{
					.0001, .0005, .001, .005,
					.01, .025, .05, .1,
				},
			},
			[]string{"command"},
		),
		StoreErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Total number of failed key-value store commands",
			},
			[]string{"command"},
		),
		CallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "cache",
				Name:      "calls_total",
				Help:      "Total number of calls to instrumented operations",
			},
			[]string{"operation"},
		),
		FetchHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "fetch",
				Name:      "hits_total",
				Help:      "Total number of fetch cache hits",
			},
		),
		FetchMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "fetch",
				Name:      "misses_total",
				Help:      "Total number of fetch cache misses",
			},
		),
		FetchErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "fetch",
				Name:      "errors_total",
				Help:      "Total number of failed underlying fetches",
			},
		),
		FetchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "fetch",
				Name:      "duration_seconds",
				Help:      "Duration of underlying fetches on cache miss",
				Buckets:   prometheus.DefBuckets,
			},
		),
		BreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "fetch",
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state of the HTTP fetcher (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}
}
