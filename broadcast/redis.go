// Package broadcast carries saved snapshots between execution contexts over
// Redis Pub/Sub. One namespaced channel is shared by every context of a
// venue; messages are the full encoded snapshot plus the publisher's origin
// token, so a context can filter out its own publishes and never feeds a
// received broadcast back into storage.
//
// Delivery is best effort and at most once per publish per live subscriber.
// The broadcaster only carries snapshots that are already durable; it never
// reads or writes storage itself.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/amorimbar/barpos/core"
)

// envelope is the wire format on the channel. Origin identifies the
// publishing context.
type envelope struct {
	Origin   string          `json:"origin"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// Redis implements core.Broadcaster over a single Redis Pub/Sub channel.
type Redis struct {
	client  *redis.Client
	channel string
	origin  string
	logger  core.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]context.CancelFunc
}

// RedisOptions configures the Redis broadcaster.
type RedisOptions struct {
	RedisURL string
	Channel  string
	Logger   core.Logger // Optional
}

// NewRedis creates a Redis-backed broadcaster with a fresh origin token
// and verifies connectivity.
func NewRedis(opts RedisOptions) (*Redis, error) {
	if opts.Channel == "" {
		return nil, fmt.Errorf("%w: broadcast channel is required", core.ErrInvalidInput)
	}
	redisOpts, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(redisOpts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	return &Redis{
		client:  client,
		channel: opts.Channel,
		origin:  uuid.New().String(),
		logger:  logger,
		subs:    make(map[int]context.CancelFunc),
	}, nil
}

// Origin returns this broadcaster's origin token.
func (b *Redis) Origin() string {
	return b.origin
}

// Publish sends the snapshot to every other live context on the channel.
func (b *Redis) Publish(ctx context.Context, state *core.AppState) error {
	snapshot, err := core.EncodeState(state)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope{Origin: b.origin, Snapshot: snapshot})
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast envelope: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish snapshot", map[string]interface{}{
			"channel": b.channel,
			"error":   err.Error(),
		})
		return fmt.Errorf("%w: %v", core.ErrBroadcastFailed, err)
	}

	b.logger.Debug("Snapshot published", map[string]interface{}{
		"channel":    b.channel,
		"value_size": len(snapshot),
	})
	return nil
}

// Subscribe registers callback for every snapshot published by another
// context. Returns the deregistration function. The receive loop runs until
// deregistration, Close, or ctx cancellation.
func (b *Redis) Subscribe(ctx context.Context, callback func(*core.AppState)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	pubsub := b.client.Subscribe(subCtx, b.channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", core.ErrBroadcastFailed, err)
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = cancel
	b.mu.Unlock()

	go func() {
		defer func() {
			_ = pubsub.Close()
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		}()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Warn("Failed to unmarshal broadcast envelope", map[string]interface{}{
						"channel": b.channel,
						"error":   err.Error(),
					})
					continue
				}
				if env.Origin == b.origin {
					// Own publish looping back through Redis; same-context
					// consistency is handled by the store directly.
					continue
				}

				state, err := core.DecodeState(env.Snapshot)
				if err != nil {
					b.logger.Warn("Failed to decode broadcast snapshot", map[string]interface{}{
						"channel": b.channel,
						"error":   err.Error(),
					})
					continue
				}
				callback(state)
			}
		}
	}()

	return func() { cancel() }, nil
}

// Close cancels all subscriptions and closes the Redis connection.
func (b *Redis) Close() error {
	b.mu.Lock()
	for _, cancel := range b.subs {
		cancel()
	}
	b.subs = make(map[int]context.CancelFunc)
	b.mu.Unlock()

	return b.client.Close()
}

// Compile-time interface compliance check
var _ core.Broadcaster = (*Redis)(nil)
