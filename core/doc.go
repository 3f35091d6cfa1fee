// Package core defines the barpos entity model and the seams the rest of
// the system plugs into: Storage for snapshot persistence, Broadcaster for
// cross-context change propagation, IDGenerator for entity identifiers,
// and minimal Logger/Telemetry interfaces with no-op defaults.
//
// The unit of state is the whole AppState snapshot. Every mutation in the
// store package reads it, changes one thing, and writes it back; core owns
// what the snapshot looks like and how it is encoded.
package core
