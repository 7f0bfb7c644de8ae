// Package api implements the HTTP REST API and WebSocket server for
// Lumina Core.
//
// This package provides:
//   - REST endpoints for reading devices and sending commands
//   - WebSocket hub for real-time state change broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The API server sits between user interfaces and the device registry +
// MQTT bus. Commands flow from the API through the command service to
// the bus bridge, and state changes flow back from devices via MQTT;
// the registry's observer hook broadcasts them to WebSocket clients.
//
// # Graceful Degradation
//
// The server operates with the broker down: reads and WebSocket
// connections work, only device commands fail (502).
package api
