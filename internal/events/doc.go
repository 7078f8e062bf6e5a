// Package events adapts the MQTT and InfluxDB clients to device.Notifier so
// the coordinator can fan committed mutations out to them.
package events
