// Package metrics exposes Prometheus counters for the processing
// endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts processing requests by tool and outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdf_img_edit_requests_total",
			Help: "Total processing requests by tool and status",
		},
		[]string{"tool", "status"},
	)

	// Duration tracks end-to-end processing time per tool.
	Duration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdf_img_edit_request_duration_seconds",
			Help:    "Processing request duration by tool",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)

// Observe records one finished request.
func Observe(tool, status string, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(tool, status).Inc()
	Duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
