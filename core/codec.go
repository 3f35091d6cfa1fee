package core

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is the current on-disk schema version. Bump it when the
// AppState shape changes and add a migration case to DecodeState.
const SnapshotVersion = 1

// snapshotEnvelope wraps the persisted state with a schema version so
// future migrations can detect what they are reading.
type snapshotEnvelope struct {
	Version int       `json:"version"`
	State   *AppState `json:"state"`
}

// EncodeState serializes a snapshot to its versioned JSON form.
func EncodeState(state *AppState) ([]byte, error) {
	data, err := json.Marshal(snapshotEnvelope{
		Version: SnapshotVersion,
		State:   state,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode state snapshot: %w", err)
	}
	return data, nil
}

// DecodeState parses a snapshot previously produced by EncodeState.
// Unknown versions are rejected rather than guessed at.
func DecodeState(data []byte) (*AppState, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if env.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", ErrCorruptSnapshot, env.Version)
	}
	if env.State == nil {
		return nil, fmt.Errorf("%w: envelope has no state", ErrCorruptSnapshot)
	}
	normalize(env.State)
	return env.State, nil
}

// normalize replaces nil slices left by JSON decoding with empty ones so
// callers can range and append without nil checks.
func normalize(s *AppState) {
	if s.Products == nil {
		s.Products = []Product{}
	}
	if s.Commands == nil {
		s.Commands = []Command{}
	}
	for i := range s.Commands {
		if s.Commands[i].Items == nil {
			s.Commands[i].Items = []OrderItem{}
		}
	}
	if s.Cashier.Transactions == nil {
		s.Cashier.Transactions = []Transaction{}
	}
}
