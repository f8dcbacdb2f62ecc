package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kvcache",
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Total number of retry attempts",
		},
		[]string{"operation"},
	)

	retrySuccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kvcache",
			Subsystem: "retry",
			Name:      "success_total",
			Help:      "Total number of operations that succeeded after at least one retry",
		},
		[]string{"operation"},
	)

	retryExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kvcache",
			Subsystem: "retry",
			Name:      "exhausted_total",
			Help:      "Total number of operations that failed after all retry attempts",
		},
		[]string{"operation"},
	)
)
