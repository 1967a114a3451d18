package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Handlers depend on this instead of the global Prometheus collectors so
// tests can inject a no-op implementation.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Event tracking metrics
	IncrementEvent(eventType string)

	// Rotation metrics
	IncrementRotations(slot string)
	IncrementStaleEvictions(slot string)

	// Report metrics
	IncrementReports()

	// Asset serving metrics
	AddAssetBytes(n int)
}

// PrometheusRegistry implements MetricsRegistry on the package-level
// Prometheus collectors.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementEvent(eventType string) {
	EventCount.WithLabelValues(eventType).Inc()
}

func (r *PrometheusRegistry) IncrementRotations(slot string) {
	RotationCount.WithLabelValues(slot).Inc()
}

func (r *PrometheusRegistry) IncrementStaleEvictions(slot string) {
	StaleEvictionCount.WithLabelValues(slot).Inc()
}

func (r *PrometheusRegistry) IncrementReports() {
	ReportCount.Inc()
}

func (r *PrometheusRegistry) AddAssetBytes(n int) {
	AssetBytesServed.Add(float64(n))
}
