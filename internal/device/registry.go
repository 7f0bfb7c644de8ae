package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Observer receives a snapshot of a device after a state report or a
// rename changed it. Observers are called synchronously under the
// registry lock, so they must not block; hand the snapshot off to a
// channel.
type Observer func(RuntimeDevice)

// Registry is the authoritative in-memory view of all known devices.
// It wraps a Repository: durable identity and last-known state live in
// SQLite, while the live view (including power and online-ness, which
// are never persisted) is served from the cache.
//
// A single mutex orders all mutations, so for any one device the
// cache reflects updates in the order they arrived. All public
// methods are thread-safe.
type Registry struct {
	repo    Repository
	devices map[string]*RuntimeDevice
	mu      sync.RWMutex
	logger  Logger

	observers   []Observer
	observersMu sync.RWMutex
}

// NewRegistry creates a new device registry.
// Call Load before serving reads to hydrate the cache.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:    repo,
		devices: make(map[string]*RuntimeDevice),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Watch registers an observer for device state changes.
func (r *Registry) Watch(obs Observer) {
	r.observersMu.Lock()
	r.observers = append(r.observers, obs)
	r.observersMu.Unlock()
}

// Load hydrates the cache from the repository. This is the startup
// reconciliation: each device comes back with its last stored state,
// power assumed on, and online-ness recomputed from how recently it
// was last seen. A device that reported just before a restart shows
// online again; one silent across the restart shows offline.
func (r *Registry) Load(ctx context.Context) error {
	stored, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = make(map[string]*RuntimeDevice, len(stored))
	for i := range stored {
		d := runtimeFromStored(&stored[i])
		d.Online = d.onlineAt(now)
		r.devices[d.DeviceID] = d
	}

	r.logger.Info("device registry loaded", "count", len(stored))
	return nil
}

// Get retrieves a device snapshot by device_id.
// Returns ErrNotFound if the device has never announced.
func (r *Registry) Get(deviceID string) (*RuntimeDevice, error) {
	now := time.Now().UTC()

	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	return d.snapshot(now), nil
}

// List retrieves snapshots of all devices, ordered by device_id.
func (r *Registry) List() []RuntimeDevice {
	now := time.Now().UTC()

	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]RuntimeDevice, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, *d.snapshot(now))
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].DeviceID < devices[j].DeviceID
	})
	return devices
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// HandleAnnounce processes a device announcement. First contact
// creates the durable record with default state; re-announcement of a
// known device only refreshes last_seen. Announcing is idempotent.
// deviceType may be empty; it defaults to led_strip.
func (r *Registry) HandleAnnounce(ctx context.Context, deviceID, deviceType string) error {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[deviceID]; ok {
		if err := r.repo.TouchLastSeen(ctx, deviceID, now); err != nil {
			return fmt.Errorf("touching last_seen: %w", err)
		}
		d.LastSeen = now
		r.logger.Debug("device re-announced", "device_id", deviceID)
		return nil
	}

	stored, err := r.repo.Create(ctx, deviceID, deviceType, now)
	if err != nil {
		// A concurrent create of the same device_id means another
		// path already registered it; refresh and carry on.
		if errors.Is(err, ErrAlreadyExists) {
			stored, err = r.repo.GetByDeviceID(ctx, deviceID)
		}
		if err != nil {
			return fmt.Errorf("registering device: %w", err)
		}
	}

	d := runtimeFromStored(stored)
	d.LastSeen = now
	r.devices[deviceID] = d

	r.logger.Info("device registered", "device_id", deviceID)
	return nil
}

// HandleStateReport processes a device-originated state report. The
// device is the authority for its own operating state: present fields
// overwrite the cache and the stored state, absent fields keep their
// values. Reports from devices that never announced return
// ErrNotFound; the bridge discards them.
func (r *Registry) HandleStateReport(ctx context.Context, deviceID string, patch StatePatch) error {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return ErrNotFound
	}

	if err := r.repo.UpdateState(ctx, deviceID, patch, now); err != nil {
		return fmt.Errorf("persisting state report: %w", err)
	}

	patch.applyTo(d)
	d.LastSeen = now

	r.logger.Debug("device state updated", "device_id", deviceID)
	r.notify(*d.snapshot(now))
	return nil
}

// ApplyOptimistic merges a just-published command into the cached view
// so HTTP readers see the commanded state immediately, before the
// device confirms. Nothing is persisted and last_seen is untouched:
// the stored state only ever records what the device itself reported.
// Observers are not notified; confirmation comes from the device's own
// state report. Returns ErrNotFound for an unknown device.
func (r *Registry) ApplyOptimistic(deviceID string, patch StatePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return ErrNotFound
	}

	patch.applyTo(d)

	r.logger.Debug("optimistic state applied", "device_id", deviceID)
	return nil
}

// Rename sets the friendly name of a device. The name is trimmed of
// surrounding whitespace; a name that trims to empty clears the
// friendly name entirely rather than storing blank text.
func (r *Registry) Rename(ctx context.Context, deviceID, name string) (*RuntimeDevice, error) {
	now := time.Now().UTC()

	trimmed := strings.TrimSpace(name)
	var stored *string
	if trimmed != "" {
		stored = &trimmed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return nil, ErrNotFound
	}

	if err := r.repo.UpdateName(ctx, deviceID, stored); err != nil {
		return nil, fmt.Errorf("persisting friendly name: %w", err)
	}

	d.FriendlyName = stored

	r.logger.Info("device renamed", "device_id", deviceID, "name", trimmed)
	snap := d.snapshot(now)
	r.notify(*snap)
	return snap, nil
}

// notify fans a snapshot out to all observers. Called with r.mu held.
func (r *Registry) notify(d RuntimeDevice) {
	r.observersMu.RLock()
	defer r.observersMu.RUnlock()
	for _, obs := range r.observers {
		obs(d)
	}
}

// runtimeFromStored builds the live view of a stored device: last
// stored state (or defaults if the state row is missing), power
// assumed on, online left for the caller to derive.
func runtimeFromStored(stored *Device) *RuntimeDevice {
	d := &RuntimeDevice{
		DeviceID:   stored.DeviceID,
		Power:      true,
		Brightness: DefaultBrightness,
		Color:      DefaultColor(),
		Effect:     DefaultEffect,
	}
	if stored.FriendlyName != nil {
		name := *stored.FriendlyName
		d.FriendlyName = &name
	}
	if stored.LastSeen != nil {
		d.LastSeen = *stored.LastSeen
	}
	if stored.State != nil {
		d.Brightness = stored.State.Brightness
		d.Color = stored.State.Color
		d.Effect = stored.State.Effect
	}
	return d
}

// snapshot returns a copy safe for callers to hold, with Online
// derived from LastSeen at the given instant.
func (d *RuntimeDevice) snapshot(now time.Time) *RuntimeDevice {
	c := *d
	if d.FriendlyName != nil {
		name := *d.FriendlyName
		c.FriendlyName = &name
	}
	c.Online = d.onlineAt(now)
	return &c
}
