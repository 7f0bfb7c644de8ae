package device

import "errors"

// Sentinel errors for device operations. Callers match with errors.Is
// and map them to HTTP status codes at the API boundary.
var (
	// ErrNotFound indicates the device has never announced itself.
	ErrNotFound = errors.New("device not found")

	// ErrAlreadyExists indicates a create raced with another create
	// for the same device_id.
	ErrAlreadyExists = errors.New("device already exists")

	// ErrUnreachable indicates a command could not be handed to the
	// broker, so the device cannot receive it.
	ErrUnreachable = errors.New("device unreachable")

	// ErrInvalidEffect indicates an effect tag outside the supported set.
	ErrInvalidEffect = errors.New("invalid effect")

	// ErrInvalidName indicates a friendly name that cannot be stored.
	ErrInvalidName = errors.New("invalid device name")

	// ErrEmptyPatch indicates a command with no fields to apply.
	ErrEmptyPatch = errors.New("empty state patch")
)
