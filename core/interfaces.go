package core

import (
	"context"
	"sync"
)

// Logger interface - minimal logging interface
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// Telemetry interface - optional telemetry support
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	RecordMetric(name string, value float64, labels map[string]string)
}

// Span represents a telemetry span
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// Storage persists the whole AppState snapshot under a single key.
// Save fully replaces the prior value; there are no partial updates.
// Load returns (nil, nil) when no prior state exists - absence is not
// an error. A failing Save must surface its error: silently dropping a
// sale is unacceptable.
type Storage interface {
	Save(ctx context.Context, state *AppState) error
	Load(ctx context.Context) (*AppState, error)
}

// Broadcaster propagates saved snapshots to every other execution context
// of the same deployment. Delivery is best effort, at most once per publish
// per subscriber. A context never observes its own publishes through the
// broadcaster; same-context updates flow through the store's local
// subscriber list. The broadcaster never reads or writes storage.
type Broadcaster interface {
	Publish(ctx context.Context, state *AppState) error
	Subscribe(ctx context.Context, callback func(*AppState)) (func(), error)
	Close() error
}

// IDGenerator produces unique identifiers for entities. Collision
// resistance at single-venue cardinality is sufficient; cryptographic
// strength is not required. Kept behind an interface so tests can swap in
// a deterministic sequence.
type IDGenerator interface {
	NewID() string
}

// Default no-op implementations

// NoOpLogger provides a no-op logger implementation
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
func (n *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}

// NoOpTelemetry provides a no-op telemetry implementation
type NoOpTelemetry struct{}

func (n *NoOpTelemetry) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &NoOpSpan{}
}

func (n *NoOpTelemetry) RecordMetric(name string, value float64, labels map[string]string) {}

// NoOpSpan provides a no-op span implementation
type NoOpSpan struct{}

func (n *NoOpSpan) End()                                       {}
func (n *NoOpSpan) SetAttribute(key string, value interface{}) {}
func (n *NoOpSpan) RecordError(err error)                      {}

// InMemoryStorage provides a simple in-process implementation of Storage
// for tests and ephemeral runs.
type InMemoryStorage struct {
	mu   sync.RWMutex
	data []byte
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{}
}

func (m *InMemoryStorage) Save(ctx context.Context, state *AppState) error {
	data, err := EncodeState(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

func (m *InMemoryStorage) Load(ctx context.Context) (*AppState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, nil
	}
	return DecodeState(m.data)
}
