package core

import (
	"context"
	"sync"
)

// LoopbackBroadcaster fans snapshots out to subscribers within the same
// process. It backs single-process deployments and tests; multi-context
// deployments use the Redis implementation in the broadcast package.
//
// Matching cross-context semantics, a subscriber does not receive snapshots
// it published itself. Each Publish/Subscribe pair is keyed by the calling
// context's origin token (see WithOrigin).
type LoopbackBroadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]loopbackSub
	closed bool
}

type loopbackSub struct {
	origin   string
	callback func(*AppState)
}

func NewLoopbackBroadcaster() *LoopbackBroadcaster {
	return &LoopbackBroadcaster{subs: make(map[int]loopbackSub)}
}

type originKey struct{}

// WithOrigin tags a context with an origin token. Publishes carrying a
// token skip subscribers registered under the same token, mirroring how a
// browser tab never hears its own channel posts.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFromContext returns the origin token on ctx, or "".
func OriginFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(originKey{}).(string); ok {
		return v
	}
	return ""
}

// Publish delivers the snapshot to every subscriber registered under a
// different origin. Each subscriber gets its own deep copy.
func (b *LoopbackBroadcaster) Publish(ctx context.Context, state *AppState) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBroadcastFailed
	}
	origin := OriginFromContext(ctx)
	targets := make([]func(*AppState), 0, len(b.subs))
	for _, sub := range b.subs {
		if origin != "" && sub.origin == origin {
			continue
		}
		targets = append(targets, sub.callback)
	}
	b.mu.RUnlock()

	for _, cb := range targets {
		cb(state.Clone())
	}
	return nil
}

// Subscribe registers callback under the origin token on ctx and returns
// the deregistration function.
func (b *LoopbackBroadcaster) Subscribe(ctx context.Context, callback func(*AppState)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBroadcastFailed
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = loopbackSub{origin: OriginFromContext(ctx), callback: callback}
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

// Close drops every subscriber. Further publishes and subscribes fail.
func (b *LoopbackBroadcaster) Close() error {
	b.mu.Lock()
	b.closed = true
	b.subs = make(map[int]loopbackSub)
	b.mu.Unlock()
	return nil
}

var _ Broadcaster = (*LoopbackBroadcaster)(nil)
