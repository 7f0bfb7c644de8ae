// Package device implements the device registry for Lumina Core.
//
// The registry holds the authoritative in-memory view of every known
// LED-strip controller, backed by a SQLite repository for the durable
// parts (identity, friendly name, last-known reported state,
// last_seen). Power and online-ness are runtime-only: power is assumed
// on after a restart until the device says otherwise, and online is
// derived from last_seen recency rather than stored.
//
// # Components
//
//   - Registry: in-memory cache over the Repository; handles
//     announcements, device state reports, optimistic updates from
//     commands, and renames. One mutex orders all mutations.
//   - Repository / SQLiteRepository: persistence for device identity
//     and last-known state.
//   - Commands: validates and clamps HTTP command intents, publishes
//     them via a CommandPublisher, then applies them optimistically.
//
// # State authority
//
// Commands are optimistic: they update the cached view immediately so
// reads reflect the commanded state, but nothing durable changes until
// the device itself confirms with a state report. If a command is lost
// the device's next report overwrites the optimistic guess. Last write
// wins throughout; there is no conflict detection.
package device
