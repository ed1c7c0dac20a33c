package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/streamta/internal/models"
)

// SnapshotStore persists engine checkpoints
type SnapshotStore interface {
	// SaveSnapshot stores the checkpoint under key, replacing any previous one
	SaveSnapshot(ctx context.Context, key string, snap *models.EngineSnapshot) error

	// LoadSnapshot returns the checkpoint stored under key, or nil when there is none
	LoadSnapshot(ctx context.Context, key string) (*models.EngineSnapshot, error)

	// Close closes the storage connection
	Close() error
}

// RedisClient defines the interface for Redis operations
type RedisClient interface {
	// Stream operations
	PublishToStream(ctx context.Context, stream string, key string, value interface{}) error
	PublishBatchToStream(ctx context.Context, stream string, messages []map[string]interface{}) error
	ConsumeFromStream(ctx context.Context, stream string, group string, consumer string) (<-chan StreamMessage, error)
	AcknowledgeMessage(ctx context.Context, stream string, group string, id string) error

	// Key-value operations
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// Set operations
	SetAdd(ctx context.Context, key string, members ...string) error

	// Pub/Sub operations
	Publish(ctx context.Context, channel string, message interface{}) error

	// Ping checks the connection
	Ping(ctx context.Context) error

	// Close closes the Redis connection
	Close() error
}

// StreamMessage represents a message from a Redis stream
type StreamMessage struct {
	ID     string
	Stream string
	Values map[string]interface{}
}
