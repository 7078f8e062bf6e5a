// Package mqtt publishes devicehub events to an MQTT broker.
//
// It wraps github.com/eclipse/paho.mqtt.golang with connection management,
// automatic reconnection, and an online/offline status topic backed by a
// Last Will and Testament.
//
// # Topics
//
//	{prefix}/devices/{device_id}/events   device mutation events (QoS from config)
//	{prefix}/system/status                retained online/offline status
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishDefault(client.Topics().DeviceEvents(id), payload)
package mqtt
