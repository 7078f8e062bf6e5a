package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementDeviceEvents is the measurement holding one point per committed
// device mutation.
const MeasurementDeviceEvents = "device_events"

// DeviceEventPoint is one device mutation as recorded in InfluxDB.
type DeviceEventPoint struct {
	EventType  string
	DeviceID   string
	DeviceType string
	Name       string
	IsEnabled  bool
	Timestamp  time.Time
}

// WriteDeviceEvent queues a device_events point tagged by event type and
// device type. The device id is a field to keep series cardinality bounded.
// The write is non-blocking and dropped when the client is closed.
func (c *Client) WriteDeviceEvent(p DeviceEventPoint) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"event": p.EventType,
	}
	if p.DeviceType != "" {
		tags["device_type"] = p.DeviceType
	}

	fields := map[string]any{
		"device_id":  p.DeviceID,
		"is_enabled": p.IsEnabled,
	}
	if p.Name != "" {
		fields["name"] = p.Name
	}

	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	c.writeAPI.WritePoint(write.NewPoint(MeasurementDeviceEvents, tags, fields, ts))
}
