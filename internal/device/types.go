package device

import "time"

// Default operating state assigned to a device on first announcement.
// These match the defaults the controllers boot with.
const (
	DefaultBrightness = 100
	DefaultEffect     = EffectNone
	DefaultDeviceType = "led_strip"
)

// DefaultColor returns the colour assigned on first announcement (white).
func DefaultColor() Color {
	return Color{R: 255, G: 255, B: 255}
}

// onlineWindow is how recently a device must have been seen to count as
// online. Controllers report state every minute or so; five minutes of
// silence means the device is gone.
const onlineWindow = 5 * time.Minute

// Color is an RGB colour with 8-bit channels.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Effect identifies a lighting animation a controller can run.
type Effect = string

// Effects supported by the controller firmware.
const (
	EffectNone    Effect = "none"
	EffectSolid   Effect = "solid"
	EffectRainbow Effect = "rainbow"
	EffectPulse   Effect = "pulse"
	EffectChase   Effect = "chase"
)

// ValidEffect reports whether name is a recognised effect tag.
// Comparison is case-sensitive; the firmware treats tags literally.
func ValidEffect(name string) bool {
	switch name {
	case EffectNone, EffectSolid, EffectRainbow, EffectPulse, EffectChase:
		return true
	}
	return false
}

// Device is the durable identity record for a controller.
// Created on first announcement; never deleted.
type Device struct {
	ID           int64      `json:"-"`
	DeviceID     string     `json:"device_id"`
	FriendlyName *string    `json:"friendly_name"`
	DeviceType   string     `json:"device_type"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	// State is the last operating state the device itself reported.
	// Populated by joined queries; nil if never loaded.
	State *DeviceState `json:"state,omitempty"`
}

// DeviceState is the durable last-known operating state of a device,
// one row per device. Only device-originated reports update it; commands
// do not (the device is the authority for its own confirmed state).
type DeviceState struct {
	DeviceID   string    `json:"device_id"`
	Brightness int       `json:"brightness"`
	Color      Color     `json:"color"`
	Effect     string    `json:"effect"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RuntimeDevice is the in-memory view of a device served to HTTP readers.
//
// Power and Online exist only here: true power state is not persisted
// (assumed on after a restart) and online-ness is derived from LastSeen
// recency rather than stored.
type RuntimeDevice struct {
	DeviceID     string  `json:"device_id"`
	FriendlyName *string `json:"friendly_name"`
	Online       bool    `json:"online"`
	Power        bool    `json:"power"`
	Brightness   int     `json:"brightness"`
	Color        Color   `json:"color"`
	Effect       string  `json:"effect"`

	// LastSeen backs the Online flag; not part of the wire shape.
	LastSeen time.Time `json:"-"`
}

// onlineAt reports whether the device counts as online at the given instant.
func (d *RuntimeDevice) onlineAt(now time.Time) bool {
	return !d.LastSeen.IsZero() && now.Sub(d.LastSeen) < onlineWindow
}

// StatePatch is a partial device state: every field is optional, and a
// nil field means "unchanged". It is the payload shape for both inbound
// state reports and outbound commands.
type StatePatch struct {
	Power      *bool   `json:"power,omitempty"`
	Brightness *int    `json:"brightness,omitempty"`
	Color      *Color  `json:"color,omitempty"`
	Effect     *string `json:"effect,omitempty"`
}

// IsZero reports whether the patch carries no fields.
func (p StatePatch) IsZero() bool {
	return p.Power == nil && p.Brightness == nil && p.Color == nil && p.Effect == nil
}

// applyTo merges the patch into a runtime device: present fields
// overwrite, absent fields are left untouched.
func (p StatePatch) applyTo(d *RuntimeDevice) {
	if p.Power != nil {
		d.Power = *p.Power
	}
	if p.Brightness != nil {
		d.Brightness = *p.Brightness
	}
	if p.Color != nil {
		d.Color = *p.Color
	}
	if p.Effect != nil {
		d.Effect = *p.Effect
	}
}

// Helpers for building patches without ad hoc pointer plumbing.

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// ColorPtr returns a pointer to c.
func ColorPtr(c Color) *Color { return &c }
