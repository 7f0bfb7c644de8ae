package device

import (
	"context"
	"fmt"
)

// Brightness and colour channel bounds. Out-of-range values are
// clamped rather than rejected; the firmware does the same, so
// clamping here just keeps the optimistic view honest.
const (
	MinBrightness = 0
	MaxBrightness = 100
	MinChannel    = 0
	MaxChannel    = 255
)

// CommandPublisher hands a command patch to the message bus for
// delivery to a device. Implemented by the bridge.
type CommandPublisher interface {
	SendCommand(deviceID string, patch StatePatch) error
}

// Commands translates HTTP intents into device commands: validate,
// publish to the bus, then optimistically update the cached view.
// Publish failure leaves the cache untouched, so readers never see a
// state no device was ever asked to adopt.
type Commands struct {
	registry  *Registry
	publisher CommandPublisher
	logger    Logger
}

// NewCommands creates a command service over the given registry and
// publisher.
func NewCommands(registry *Registry, publisher CommandPublisher) *Commands {
	return &Commands{
		registry:  registry,
		publisher: publisher,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the command service.
func (c *Commands) SetLogger(logger Logger) {
	c.logger = logger
}

// SetColor commands a device to change colour. Channels are clamped
// to [0, 255].
func (c *Commands) SetColor(ctx context.Context, deviceID string, color Color) (*RuntimeDevice, error) {
	color.R = clamp(color.R, MinChannel, MaxChannel)
	color.G = clamp(color.G, MinChannel, MaxChannel)
	color.B = clamp(color.B, MinChannel, MaxChannel)
	return c.send(ctx, deviceID, StatePatch{Color: &color})
}

// SetBrightness commands a device to change brightness. The value is
// clamped to [0, 100].
func (c *Commands) SetBrightness(ctx context.Context, deviceID string, brightness int) (*RuntimeDevice, error) {
	brightness = clamp(brightness, MinBrightness, MaxBrightness)
	return c.send(ctx, deviceID, StatePatch{Brightness: &brightness})
}

// SetEffect commands a device to run an effect. Unknown effect tags
// are rejected with ErrInvalidEffect before anything is published.
func (c *Commands) SetEffect(ctx context.Context, deviceID string, effect string) (*RuntimeDevice, error) {
	if !ValidEffect(effect) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEffect, effect)
	}
	return c.send(ctx, deviceID, StatePatch{Effect: &effect})
}

// SetPower commands a device on or off.
func (c *Commands) SetPower(ctx context.Context, deviceID string, on bool) (*RuntimeDevice, error) {
	return c.send(ctx, deviceID, StatePatch{Power: &on})
}

// SetName sets a device's friendly name. Names live only in the core;
// nothing is published to the device. A name that trims to empty
// clears the friendly name.
func (c *Commands) SetName(ctx context.Context, deviceID, name string) (*RuntimeDevice, error) {
	return c.registry.Rename(ctx, deviceID, name)
}

// Apply commands a device with an arbitrary patch. Used by callers
// that batch several fields into one command.
func (c *Commands) Apply(ctx context.Context, deviceID string, patch StatePatch) (*RuntimeDevice, error) {
	if patch.IsZero() {
		return nil, ErrEmptyPatch
	}
	if patch.Brightness != nil {
		b := clamp(*patch.Brightness, MinBrightness, MaxBrightness)
		patch.Brightness = &b
	}
	if patch.Color != nil {
		col := Color{
			R: clamp(patch.Color.R, MinChannel, MaxChannel),
			G: clamp(patch.Color.G, MinChannel, MaxChannel),
			B: clamp(patch.Color.B, MinChannel, MaxChannel),
		}
		patch.Color = &col
	}
	if patch.Effect != nil && !ValidEffect(*patch.Effect) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEffect, *patch.Effect)
	}
	return c.send(ctx, deviceID, patch)
}

// send publishes the patch and, on success, folds it into the cached
// view. The returned snapshot is what the device will look like once
// it adopts the command.
func (c *Commands) send(_ context.Context, deviceID string, patch StatePatch) (*RuntimeDevice, error) {
	// Existence check first so an unknown device reads as 404, not 502.
	if _, err := c.registry.Get(deviceID); err != nil {
		return nil, err
	}

	if err := c.publisher.SendCommand(deviceID, patch); err != nil {
		c.logger.Warn("command publish failed", "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if err := c.registry.ApplyOptimistic(deviceID, patch); err != nil {
		return nil, err
	}

	c.logger.Debug("command sent", "device_id", deviceID)
	return c.registry.Get(deviceID)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
