// Package mqtt provides MQTT client connectivity for Lumina Core.
//
// This package manages:
//   - Connection to the Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the message bus between Lumina Core and the LED-strip
// controllers. The broker decouples the core from intermittently
// connected devices:
//
//	LED controllers ↔ MQTT Broker ↔ Lumina Core
//
// Devices announce themselves on devices/announce and publish state
// reports to lights/{device_id}/state; the core sends commands to
// lights/{device_id}/set. See topics.go for the full layout.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	// Subscribe to all device state reports
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceStates(), 1,
//	    func(topic string, payload []byte) error {
//	        // dispatch to registry
//	        return nil
//	    })
//
//	// Publish a command
//	topic := mqtt.Topics{}.DeviceCommand("strip-a1b2")
//	client.Publish(topic, []byte(`{"power":true}`), 1, false)
//
// # Security Considerations
//
//   - TLS should be enabled for any deployment beyond the local LAN
//   - Credentials are validated against broker ACL
//   - Device IDs are self-asserted; the broker does not verify ownership
package mqtt
