package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type limiterMetrics struct {
	waitDuration     *prometheus.HistogramVec
	cancelledCounter *prometheus.CounterVec
}

func newLimiterMetrics() *limiterMetrics {
	metrics := new(limiterMetrics)

	metrics.waitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "sync_connector_rate_limiter_wait_seconds",
		Help: "The amount of time a provider call waited for a rate limiter token",
	}, []string{"limiter"})

	metrics.cancelledCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_connector_rate_limiter_cancelled_count",
		Help: "The number of rate limiter waits abandoned because the caller's context ended",
	}, []string{"limiter"})

	return metrics
}

var (
	metrics = newLimiterMetrics()
)
