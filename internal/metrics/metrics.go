package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderdesk_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// WebhookResults counts webhook ingestions by channel and outcome
	// (created, duplicate, validation_error, auth_error, config_error,
	// store_error, too_large, read_error). Unrecognized channel segments are
	// collapsed into the "unknown" channel label.
	WebhookResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderdesk_webhook_results_total",
			Help: "Webhook ingestion outcomes per channel",
		},
		[]string{"channel", "result"},
	)

	BroadcastEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderdesk_broadcast_events_total",
			Help: "Order change events published to dashboard subscribers",
		},
	)

	// FanoutOutcomes counts per-token delivery outcomes
	// (delivered, transient, permanent).
	FanoutOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderdesk_fanout_outcomes_total",
			Help: "Per-token push delivery outcomes",
		},
		[]string{"outcome"},
	)

	FanoutDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderdesk_fanout_duration_seconds",
			Help:    "Duration of full fan-outs, joined over all tokens",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

func Init() {
	prometheus.MustRegister(
		RequestCount,
		RequestDuration,
		WebhookResults,
		BroadcastEvents,
		FanoutOutcomes,
		FanoutDuration,
	)
}
