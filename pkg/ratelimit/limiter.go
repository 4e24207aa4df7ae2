// Package ratelimit implements courtesy throttling for outbound request
// issuance. The limiter paces how fast tasks are handed to workers; it does
// not bound in-flight concurrency, which is the worker pool's job.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for issuance throttling.
var (
	throttleWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "circle_submit_throttle_waits_total",
		Help: "Total submissions delayed by the issuance limiter",
	})

	throttleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "circle_submit_throttle_wait_seconds",
		Help:    "Time spent waiting on the issuance limiter per submission",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// Limiter enforces a minimum interval between successive issuances.
// A zero or negative interval disables pacing entirely.
type Limiter struct {
	interval time.Duration

	mu     sync.Mutex
	last   time.Time
	issued int64
}

// NewLimiter creates an issuance limiter with the given minimum interval.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// Wait blocks until the next issuance is allowed or the context ends.
// The first call never waits.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		l.mu.Lock()
		l.issued++
		l.mu.Unlock()
		return nil
	}

	l.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if !l.last.IsZero() {
		if due := l.last.Add(l.interval); due.After(now) {
			wait = due.Sub(now)
		}
	}
	// Reserve the slot before sleeping so concurrent callers queue up
	// behind each other instead of dog-piling on the same slot.
	l.last = now.Add(wait)
	l.issued++
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	throttleWaitsTotal.Inc()
	throttleWaitSeconds.Observe(wait.Seconds())

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Issued returns how many issuances have been granted so far.
func (l *Limiter) Issued() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.issued
}

// Interval returns the configured minimum interval.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
