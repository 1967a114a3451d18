package observability

import "time"

// MockMetricsRegistry is a no-op implementation of MetricsRegistry for testing
type MockMetricsRegistry struct{}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (m *MockMetricsRegistry) IncrementEvent(eventType string)                                      {}
func (m *MockMetricsRegistry) IncrementRotations(slot string)                                       {}
func (m *MockMetricsRegistry) IncrementStaleEvictions(slot string)                                  {}
func (m *MockMetricsRegistry) IncrementReports()                                                    {}
func (m *MockMetricsRegistry) AddAssetBytes(n int)                                                  {}
