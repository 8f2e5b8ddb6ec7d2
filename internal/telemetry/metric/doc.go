// Package metric provides Prometheus metrics for Sabertooth.
//
//   - prometheus.go: the metric set and the /metrics handler
//   - collector.go: scrape-time mandate state
//
// All recording methods accept a nil *Registry so components can run
// without metrics in tests.
package metric
