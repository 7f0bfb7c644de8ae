package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lumina-iot/lumina-core/internal/device"
	"github.com/lumina-iot/lumina-core/internal/infrastructure/mqtt"
)

// handleTimeout bounds the registry/database work done per inbound
// message so a wedged database cannot back up the broker client.
const handleTimeout = 5 * time.Second

// Sentinel errors for bridge operations.
var (
	// ErrMalformedMessage indicates an inbound payload that could not
	// be decoded. The message is logged and dropped; the bus moves on.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrNotStarted indicates an operation on a bridge that has not
	// been started or has been stopped.
	ErrNotStarted = errors.New("bridge not started")
)

// MQTTClient is the interface for MQTT operations the bridge needs.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Registry is the slice of the device registry the bridge drives.
// Satisfied by *device.Registry.
type Registry interface {
	HandleAnnounce(ctx context.Context, deviceID, deviceType string) error
	HandleStateReport(ctx context.Context, deviceID string, patch device.StatePatch) error
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// announcement is the payload a controller publishes on first boot
// and periodically thereafter. Only device_id is required; the rest
// is informational. The device class lives under "type" on the wire;
// "device_type" is accepted as an alias.
type announcement struct {
	DeviceID   string `json:"device_id"`
	Type       string `json:"type,omitempty"`
	DeviceType string `json:"device_type,omitempty"`
	Firmware   string `json:"firmware,omitempty"`
	IP         string `json:"ip,omitempty"`
}

// deviceType resolves the announced device class, preferring the
// canonical "type" key over the "device_type" alias.
func (a announcement) deviceType() string {
	if a.Type != "" {
		return a.Type
	}
	return a.DeviceType
}

// stateReport is the payload a controller publishes on its state
// topic: the device_id naming the sender plus any subset of the
// operating fields.
type stateReport struct {
	DeviceID string `json:"device_id"`
	device.StatePatch
}

// Bridge connects the MQTT bus to the device registry. Inbound, it
// turns announcements and state reports into registry updates;
// outbound, it publishes command patches to per-device set topics.
//
// Thread safety: all methods are safe for concurrent use. Inbound
// handlers run on the MQTT client's dispatch goroutine; per-device
// ordering is preserved because the client dispatches in broker
// order and the registry serialises mutations.
type Bridge struct {
	mqtt     MQTTClient
	registry Registry
	topics   mqtt.Topics
	qos      byte
	logger   Logger

	// Shutdown coordination
	ctx       context.Context
	ctxCancel context.CancelFunc
	started   bool
	mu        sync.Mutex
}

// Options holds configuration for creating a bridge.
type Options struct {
	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Registry receives announcements and state reports.
	Registry Registry

	// QoS for subscriptions and outbound commands. Used as given;
	// 0 means at-most-once delivery.
	QoS byte

	// Logger is optional structured logger.
	Logger Logger
}

// New creates a new bridge instance. Call Start to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		mqtt:      opts.MQTTClient,
		registry:  opts.Registry,
		qos:       opts.QoS,
		logger:    logger,
		ctx:       ctx,
		ctxCancel: cancel,
	}, nil
}

// Start subscribes to the announcement topic and the wildcard state
// topic. Subscriptions survive broker reconnects; the underlying
// client restores them.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	announce := b.topics.Announce()
	if err := b.mqtt.Subscribe(announce, b.qos, b.handleAnnounce); err != nil {
		return fmt.Errorf("subscribing to announcements: %w", err)
	}
	b.logger.Info("subscribed to announcements", "topic", announce)

	states := b.topics.AllDeviceStates()
	if err := b.mqtt.Subscribe(states, b.qos, b.handleStateReport); err != nil {
		return fmt.Errorf("subscribing to state reports: %w", err)
	}
	b.logger.Info("subscribed to state reports", "topic", states)

	b.started = true
	return nil
}

// Stop unsubscribes and cancels in-flight registry work. Idempotent.
// The MQTT connection itself is owned by the caller and closed
// separately.
func (b *Bridge) Stop() {
	b.mu.Lock()
	wasStarted := b.started
	b.started = false
	b.mu.Unlock()

	if wasStarted {
		if err := b.mqtt.Unsubscribe(b.topics.Announce()); err != nil {
			b.logger.Warn("unsubscribe failed", "topic", b.topics.Announce(), "error", err)
		}
		if err := b.mqtt.Unsubscribe(b.topics.AllDeviceStates()); err != nil {
			b.logger.Warn("unsubscribe failed", "topic", b.topics.AllDeviceStates(), "error", err)
		}
	}

	b.ctxCancel()
	b.logger.Info("bridge stopped")
}

// SendCommand publishes a command patch to a device's set topic.
// Implements device.CommandPublisher.
func (b *Bridge) SendCommand(deviceID string, patch device.StatePatch) error {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	topic := b.topics.DeviceCommand(deviceID)
	if err := b.mqtt.Publish(topic, payload, b.qos, false); err != nil {
		return fmt.Errorf("publishing command: %w", err)
	}

	b.logger.Debug("command published", "device_id", deviceID, "topic", topic)
	return nil
}

// handleAnnounce processes a message on devices/announce.
// A payload without a device_id is malformed: logged and dropped.
func (b *Bridge) handleAnnounce(topic string, payload []byte) error {
	var msg announcement
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logger.Warn("dropping malformed announcement",
			"topic", topic, "error", err)
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.DeviceID == "" {
		b.logger.Warn("dropping announcement without device_id", "topic", topic)
		return fmt.Errorf("%w: missing device_id", ErrMalformedMessage)
	}

	ctx, cancel := context.WithTimeout(b.ctx, handleTimeout)
	defer cancel()

	if err := b.registry.HandleAnnounce(ctx, msg.DeviceID, msg.deviceType()); err != nil {
		b.logger.Error("announcement handling failed",
			"device_id", msg.DeviceID, "error", err)
		return err
	}
	return nil
}

// handleStateReport processes a message on lights/{device_id}/state.
// The payload names the reporting device; a report without a
// device_id is malformed and dropped. The topic is only the routing
// pattern, and a mismatch against the payload is logged but the
// payload wins. Undecodable payloads are logged and dropped.
func (b *Bridge) handleStateReport(topic string, payload []byte) error {
	var report stateReport
	if err := json.Unmarshal(payload, &report); err != nil {
		b.logger.Warn("dropping malformed state report",
			"topic", topic, "error", err)
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if report.DeviceID == "" {
		b.logger.Warn("dropping state report without device_id", "topic", topic)
		return fmt.Errorf("%w: missing device_id", ErrMalformedMessage)
	}

	if topicID, ok := b.topics.ParseDeviceStateTopic(topic); ok && topicID != report.DeviceID {
		b.logger.Warn("state report device_id differs from topic",
			"topic", topic, "device_id", report.DeviceID)
	}

	ctx, cancel := context.WithTimeout(b.ctx, handleTimeout)
	defer cancel()

	if err := b.registry.HandleStateReport(ctx, report.DeviceID, report.StatePatch); err != nil {
		// A report from a device that never announced is discarded;
		// the device will be picked up on its next announcement.
		if errors.Is(err, device.ErrNotFound) {
			b.logger.Warn("dropping state report from unknown device",
				"device_id", report.DeviceID)
			return nil
		}
		b.logger.Error("state report handling failed",
			"device_id", report.DeviceID, "error", err)
		return err
	}
	return nil
}

// IsConnected reports whether the underlying MQTT client is connected.
func (b *Bridge) IsConnected() bool {
	return b.mqtt.IsConnected()
}
