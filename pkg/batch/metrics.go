package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for batch engine operations.
var (
	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circle_batch_tasks_total",
		Help: "Total finalized batch tasks by outcome",
	}, []string{"outcome"})

	tasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "circle_batch_tasks_in_flight",
		Help: "Batch tasks currently executing",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "circle_batch_run_duration_seconds",
		Help:    "Wall-clock duration of complete batch runs",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})

	panicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "circle_batch_task_panics_total",
		Help: "Unit-of-work panics contained and mapped to failed results",
	})
)
