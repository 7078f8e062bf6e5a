// Package metrics exposes devicehub's Prometheus metrics.
//
// A Collector is passed to device.Coordinator as its Observer and served
// at /metrics by the API server.
package metrics
