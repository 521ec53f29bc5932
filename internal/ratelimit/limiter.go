package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by every outbound call to a provider API.
// There is no queue depth limit; callers that outrun the bucket are suspended
// in Acquire until a token frees up.
type Limiter struct {
	name    string
	limiter *rate.Limiter
}

func NewLimiter(name string, requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Acquire blocks until a token is available or the context is done
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()

	err := l.limiter.Wait(ctx)

	metrics.waitDuration.WithLabelValues(l.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.cancelledCounter.WithLabelValues(l.name).Inc()
		return err
	}

	return nil
}

func (l *Limiter) Limit() float64 {
	return float64(l.limiter.Limit())
}

func (l *Limiter) Burst() int {
	return l.limiter.Burst()
}
