package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotserve_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slotserve_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// events recorded, labelled by type (click, impression, ad_created)
	EventCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotserve_events_total",
			Help: "Total events recorded",
		},
		[]string{"type"},
	)

	// slot queue rotations performed, per slot
	RotationCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotserve_rotations_total",
			Help: "Total slot queue rotations",
		},
		[]string{"slot"},
	)

	// stale queue entries evicted during rotation, per slot
	StaleEvictionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotserve_stale_evictions_total",
			Help: "Total stale slot queue entries evicted",
		},
		[]string{"slot"},
	)

	// advertiser reports generated
	ReportCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slotserve_reports_total",
			Help: "Total advertiser reports generated",
		},
	)

	// bytes served from ad assets, full or partial
	AssetBytesServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slotserve_asset_bytes_total",
			Help: "Total asset bytes served",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		EventCount,
		RotationCount,
		StaleEvictionCount,
		ReportCount,
		AssetBytesServed,
	)
}
