// Package bridge connects the MQTT bus to the device registry.
//
// Inbound, the bridge subscribes to devices/announce and
// lights/+/state and translates messages into registry calls:
// announcements register or refresh devices, state reports merge the
// device's own view of its state. Malformed payloads are logged and
// dropped; one bad controller cannot stall the pipeline.
//
// Outbound, the bridge implements device.CommandPublisher: command
// patches are published to lights/{device_id}/set for the controller
// to pick up.
//
// The bridge owns no connection state. The MQTT client handles
// reconnects and restores subscriptions; the registry serialises
// mutations. What the bridge guarantees is translation fidelity:
// exactly the fields present on the wire reach the registry, nothing
// invented, nothing lost.
package bridge
