package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/devicehub/internal/device"
	"github.com/nerrad567/devicehub/internal/infrastructure/influxdb"
	"github.com/nerrad567/devicehub/internal/infrastructure/mqtt"
)

type fakePublisher struct {
	topic   string
	payload []byte
	err     error
}

func (f *fakePublisher) PublishDefault(topic string, payload []byte) error {
	f.topic, f.payload = topic, payload
	return f.err
}

type fakeWriter struct {
	points []influxdb.DeviceEventPoint
}

func (f *fakeWriter) WriteDeviceEvent(p influxdb.DeviceEventPoint) {
	f.points = append(f.points, p)
}

func testEvent() device.Event {
	return device.Event{
		Type:       device.EventCreated,
		DeviceID:   "dev-1",
		DeviceType: device.KindEmbedded,
		Name:       "Gateway",
		IsEnabled:  true,
		Timestamp:  time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMQTTNotifier_Notify(t *testing.T) {
	pub := &fakePublisher{}
	n := NewMQTTNotifier(pub, mqtt.Topics{Prefix: "site"})

	if err := n.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if pub.topic != "site/devices/dev-1/events" {
		t.Errorf("topic = %q", pub.topic)
	}
	var got device.Event
	if err := json.Unmarshal(pub.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Type != device.EventCreated || got.DeviceType != device.KindEmbedded || got.Name != "Gateway" {
		t.Errorf("payload = %+v", got)
	}
}

func TestMQTTNotifier_PublishError(t *testing.T) {
	pub := &fakePublisher{err: mqtt.ErrNotConnected}
	n := NewMQTTNotifier(pub, mqtt.Topics{})

	err := n.Notify(context.Background(), testEvent())
	if !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Notify() error = %v, want ErrNotConnected", err)
	}
}

func TestInfluxRecorder_Notify(t *testing.T) {
	w := &fakeWriter{}
	r := NewInfluxRecorder(w)

	e := testEvent()
	if err := r.Notify(context.Background(), e); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.EventType != "device.created" || p.DeviceID != "dev-1" || p.DeviceType != "Embedded" || !p.Timestamp.Equal(e.Timestamp) {
		t.Errorf("point = %+v", p)
	}
}

func TestNotifiersSatisfyInterface(t *testing.T) {
	var _ device.Notifier = (*MQTTNotifier)(nil)
	var _ device.Notifier = (*InfluxRecorder)(nil)
}
