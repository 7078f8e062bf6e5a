package mqtt

import "strings"

// Topics builds devicehub topic names under a configurable prefix.
//
//	topics := mqtt.Topics{Prefix: "devicehub"}
//	topics.DeviceEvents("3f2c...") // "devicehub/devices/3f2c.../events"
type Topics struct {
	Prefix string
}

// DeviceEvents returns the topic carrying mutation events for one device.
func (t Topics) DeviceEvents(deviceID string) string {
	return t.join("devices", deviceID, "events")
}

// AllDeviceEvents returns a subscription filter matching every device's events.
func (t Topics) AllDeviceEvents() string {
	return t.join("devices", "+", "events")
}

// SystemStatus returns the retained online/offline status topic.
func (t Topics) SystemStatus() string {
	return t.join("system", "status")
}

func (t Topics) join(parts ...string) string {
	prefix := strings.TrimSuffix(t.Prefix, "/")
	if prefix == "" {
		prefix = "devicehub"
	}
	return prefix + "/" + strings.Join(parts, "/")
}
