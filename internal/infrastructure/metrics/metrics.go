package metrics

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/devicehub/internal/device"
)

const namespace = "devicehub"

// Collector owns a private Prometheus registry with the device operation
// metrics and Go runtime collectors. It implements device.Observer.
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	wsClients  prometheus.Gauge
}

// New creates a Collector with runtime and process collectors registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "device",
			Name:      "operations_total",
			Help:      "Device coordinator calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "device",
			Name:      "operation_duration_seconds",
			Help:      "Latency of device coordinator calls.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connected_clients",
			Help:      "Number of connected WebSocket clients.",
		}),
	}

	c.registry.MustRegister(
		c.operations,
		c.durations,
		c.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveOperation records one coordinator call.
func (c *Collector) ObserveOperation(op device.Operation, outcome string, elapsed time.Duration) {
	c.operations.WithLabelValues(string(op), outcome).Inc()
	c.durations.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

// SetWebSocketClients sets the connected client gauge.
func (c *Collector) SetWebSocketClients(n int) {
	c.wsClients.Set(float64(n))
}

// RegisterDB exports connection pool statistics for db under dbName.
func (c *Collector) RegisterDB(db *sql.DB, dbName string) error {
	return c.registry.Register(collectors.NewDBStatsCollector(db, dbName))
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
