// Package metrics provides the centralized Prometheus registry reference for
// the batch client. Metrics are defined in their owning packages (batch,
// client, ratelimit) to keep dependencies one-directional; this package
// documents what is available.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry. All metrics register
// automatically via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Batch Engine Metrics (pkg/batch):
//   - circle_batch_tasks_total{outcome} (Counter): Finalized tasks by outcome
//     (success, already_done, failed, end_of_data)
//   - circle_batch_tasks_in_flight (Gauge): Tasks currently executing
//   - circle_batch_run_duration_seconds (Histogram): Wall-clock run duration
//   - circle_batch_task_panics_total (Counter): Contained unit-of-work panics
//
// Issuance Throttle Metrics (pkg/ratelimit):
//   - circle_submit_throttle_waits_total (Counter): Delayed submissions
//   - circle_submit_throttle_wait_seconds (Histogram): Per-submission wait
//
// Request Metrics (pkg/client):
//   - circle_api_requests_total{endpoint, status} (Counter): Requests by
//     endpoint and HTTP status
//   - circle_api_request_duration_seconds{endpoint} (Histogram): Duration
//   - circle_api_errors_total{class} (Counter): Errors by class
//     (network, protocol, business)
//
// Retry Metrics (pkg/client):
//   - circle_api_retries_total{error_class} (Counter): Retry attempts
//   - circle_api_retry_backoff_seconds{error_class} (Histogram): Backoff
//   - circle_api_retry_exhausted_total{error_class} (Counter): Exhaustions
//
// Example Prometheus Queries:
//
//   # Outcome mix of recent runs
//   sum by (outcome) (rate(circle_batch_tasks_total[5m]))
//
//   # Request error rate
//   rate(circle_api_errors_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(circle_api_request_duration_seconds_bucket[5m]))
