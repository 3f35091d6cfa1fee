// Package storage provides the durable Storage backends: a Redis key for
// multi-context deployments and a local JSON file for single-machine ones.
// Both hold the whole encoded snapshot under one address and fully replace
// it on every save.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/amorimbar/barpos/core"
)

// Redis stores the snapshot as a single namespaced Redis key. The value
// never expires: the snapshot is the venue's book of record, not a cache.
type Redis struct {
	client *redis.Client
	key    string
	logger core.Logger
}

// RedisOptions configures the Redis storage backend.
type RedisOptions struct {
	RedisURL string
	Key      string
	Logger   core.Logger // Optional
}

// NewRedis creates a Redis-backed Storage and verifies connectivity.
func NewRedis(opts RedisOptions) (*Redis, error) {
	if opts.Key == "" {
		return nil, fmt.Errorf("%w: storage key is required", core.ErrInvalidInput)
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

	return &Redis{client: client, key: opts.Key, logger: logger}, nil
}

// Save overwrites the snapshot key with the encoded state.
func (r *Redis) Save(ctx context.Context, state *core.AppState) error {
	data, err := core.EncodeState(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
	}
	r.logger.Debug("Snapshot saved", map[string]interface{}{
		"key":        r.key,
		"value_size": len(data),
	})
	return nil
}

// Load reads the snapshot key. A missing key means no prior state and
// returns (nil, nil).
func (r *Redis) Load(ctx context.Context) (*core.AppState, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
	}
	return core.DecodeState(data)
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ core.Storage = (*Redis)(nil)
