package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/devicehub/internal/device"
	"github.com/nerrad567/devicehub/internal/infrastructure/influxdb"
	"github.com/nerrad567/devicehub/internal/infrastructure/mqtt"
)

// Publisher sends a payload to an MQTT topic with the configured QoS.
// *mqtt.Client satisfies it.
type Publisher interface {
	PublishDefault(topic string, payload []byte) error
}

// MQTTNotifier publishes each device event as JSON to
// {prefix}/devices/{id}/events.
type MQTTNotifier struct {
	pub    Publisher
	topics mqtt.Topics
}

// NewMQTTNotifier creates a notifier publishing through pub.
func NewMQTTNotifier(pub Publisher, topics mqtt.Topics) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, topics: topics}
}

// Notify implements device.Notifier.
func (n *MQTTNotifier) Notify(_ context.Context, e device.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", e.Type, err)
	}
	if err := n.pub.PublishDefault(n.topics.DeviceEvents(e.DeviceID), payload); err != nil {
		return fmt.Errorf("publishing %s event: %w", e.Type, err)
	}
	return nil
}

// PointWriter queues a device event point. *influxdb.Client satisfies it.
type PointWriter interface {
	WriteDeviceEvent(p influxdb.DeviceEventPoint)
}

// InfluxRecorder records each device event as a point in InfluxDB.
type InfluxRecorder struct {
	w PointWriter
}

// NewInfluxRecorder creates a recorder writing through w.
func NewInfluxRecorder(w PointWriter) *InfluxRecorder {
	return &InfluxRecorder{w: w}
}

// Notify implements device.Notifier. Writes are asynchronous, so it never
// returns an error; batch failures surface through the client's error callback.
func (r *InfluxRecorder) Notify(_ context.Context, e device.Event) error {
	r.w.WriteDeviceEvent(influxdb.DeviceEventPoint{
		EventType:  string(e.Type),
		DeviceID:   e.DeviceID,
		DeviceType: string(e.DeviceType),
		Name:       e.Name,
		IsEnabled:  e.IsEnabled,
		Timestamp:  e.Timestamp,
	})
	return nil
}
