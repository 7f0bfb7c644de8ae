package mqtt

import (
	"fmt"
	"strings"
)

// Topic layout for the Lumina device protocol.
//
// Devices announce themselves on a shared topic and then exchange state
// and commands on per-device topics keyed by their self-asserted ID:
//
//	devices/announce           device -> core   {"device_id": "...", "type": "..."}
//	lights/{device_id}/state   device -> core   partial state report
//	lights/{device_id}/set     core -> device   partial state command
const (
	// TopicAnnounce is the shared announcement topic all devices publish to
	// on (re)connection.
	TopicAnnounce = "devices/announce"

	// topicPrefixLights is the base for per-device light topics.
	topicPrefixLights = "lights"

	// topicPrefixSystem is the base for core status topics.
	topicPrefixSystem = "lumina/system"
)

// Topics provides builders for Lumina MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.DeviceCommand("strip-a1b2")
//	// Returns: "lights/strip-a1b2/set"
type Topics struct{}

// Announce returns the shared device announcement topic.
//
// Example: devices/announce
func (Topics) Announce() string {
	return TopicAnnounce
}

// DeviceState returns the state-report topic for a specific device.
//
// Example: lights/strip-a1b2/state
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/%s/state", topicPrefixLights, deviceID)
}

// DeviceCommand returns the command topic for a specific device.
//
// Example: lights/strip-a1b2/set
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/%s/set", topicPrefixLights, deviceID)
}

// AllDeviceStates returns a pattern matching every device's state topic.
//
// Pattern: lights/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/+/state", topicPrefixLights)
}

// SystemStatus returns the core status topic (LWT and online/offline messages).
//
// Example: lumina/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", topicPrefixSystem)
}

// ParseDeviceStateTopic extracts the device ID from a state-report topic.
// Returns ok=false if the topic does not match lights/{device_id}/state.
func (Topics) ParseDeviceStateTopic(topic string) (deviceID string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != topicPrefixLights || parts[2] != "state" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
