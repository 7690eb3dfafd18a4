package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests counts police API calls by endpoint and result
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stopsearch_upstream_requests_total",
			Help: "Number of requests made to the police API",
		},
		[]string{"endpoint", "result"},
	)

	// UpstreamDuration tracks police API latency
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stopsearch_upstream_request_duration_seconds",
			Help:    "Duration of police API requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// MonthFetches counts collector months by status
	MonthFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stopsearch_month_fetches_total",
			Help: "Number of per-month collections by status",
		},
		[]string{"status"},
	)

	// RecordsDropped counts raw records rejected by the shape check
	RecordsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stopsearch_records_dropped_total",
			Help: "Number of malformed raw records dropped during collection",
		},
	)

	// RefreshDuration tracks full dashboard refreshes
	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stopsearch_refresh_duration_seconds",
			Help:    "Duration of dashboard refreshes in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		},
		[]string{"result"},
	)

	// CollectionSize is the number of canonical records currently held
	CollectionSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stopsearch_collection_records",
			Help: "Number of canonical records held in memory",
		},
	)

	// HTTPRequestDuration tracks handler latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "stopsearch_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "route", "status"},
	)
)
