package pubsub

import (
	"context"
	"fmt"

	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/internal/storage"
)

// RedisSnapshotStore keeps engine checkpoints as JSON values in Redis
type RedisSnapshotStore struct {
	redis  storage.RedisClient
	prefix string
}

// NewRedisSnapshotStore creates a snapshot store on top of a Redis client.
// Keys are stored as prefix+key.
func NewRedisSnapshotStore(redis storage.RedisClient, prefix string) *RedisSnapshotStore {
	return &RedisSnapshotStore{redis: redis, prefix: prefix}
}

var _ storage.SnapshotStore = (*RedisSnapshotStore)(nil)

// SaveSnapshot stores the checkpoint without expiry
func (s *RedisSnapshotStore) SaveSnapshot(ctx context.Context, key string, snap *models.EngineSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if err := s.redis.Set(ctx, s.prefix+key, snap, 0); err != nil {
		return fmt.Errorf("failed to save snapshot %q: %w", key, err)
	}
	return nil
}

// LoadSnapshot returns the stored checkpoint or nil when the key is absent
func (s *RedisSnapshotStore) LoadSnapshot(ctx context.Context, key string) (*models.EngineSnapshot, error) {
	var snap *models.EngineSnapshot
	if err := s.redis.GetJSON(ctx, s.prefix+key, &snap); err != nil {
		return nil, fmt.Errorf("failed to load snapshot %q: %w", key, err)
	}
	return snap, nil
}

// Close is a no-op: the Redis client is shared and closed by its owner
func (s *RedisSnapshotStore) Close() error {
	return nil
}
