// Package influxdb records device mutation history in InfluxDB v2.
//
// Each committed create, update or delete becomes one point in the
// device_events measurement, tagged by event and device type. Writes are
// batched and non-blocking via the influxdb-client-go WriteAPI; batch
// failures are reported through SetOnError.
package influxdb
