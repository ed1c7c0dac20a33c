package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mohamedkhairy/streamta/internal/models"
)

// MockSnapshotStore is an in-memory SnapshotStore for testing.
// Snapshots are stored as JSON so a load never aliases a saved value.
type MockSnapshotStore struct {
	mu      sync.Mutex
	Data    map[string][]byte
	Saves   int
	SaveErr error
	LoadErr error
	Closed  bool
}

func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{Data: make(map[string][]byte)}
}

func (m *MockSnapshotStore) SaveSnapshot(ctx context.Context, key string, snap *models.EngineSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.Data[key] = data
	m.Saves++
	return nil
}

func (m *MockSnapshotStore) LoadSnapshot(ctx context.Context, key string) (*models.EngineSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	data, ok := m.Data[key]
	if !ok {
		return nil, nil
	}
	var snap models.EngineSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (m *MockSnapshotStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// MockRedisClient is a mock implementation of RedisClient for testing
type MockRedisClient struct {
	mu         sync.Mutex
	Data       map[string]string
	TTLs       map[string]time.Duration
	Sets       map[string]map[string]bool
	StreamData []StreamMessage
	Published  map[string][]string
	Streams    map[string][]map[string]interface{}
	Acked      []string
	PublishErr error
	GetErr     error
	SetErr     error
	ConsumeErr error
	PingErr    error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		Data:      make(map[string]string),
		TTLs:      make(map[string]time.Duration),
		Sets:      make(map[string]map[string]bool),
		Published: make(map[string][]string),
		Streams:   make(map[string][]map[string]interface{}),
	}
}

func (m *MockRedisClient) PublishToStream(ctx context.Context, stream string, key string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.Streams[stream] = append(m.Streams[stream], map[string]interface{}{key: string(jsonData)})
	return nil
}

func (m *MockRedisClient) PublishBatchToStream(ctx context.Context, stream string, messages []map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Streams[stream] = append(m.Streams[stream], messages...)
	return nil
}

// ConsumeFromStream delivers StreamData and then closes the channel
func (m *MockRedisClient) ConsumeFromStream(ctx context.Context, stream string, group string, consumer string) (<-chan StreamMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConsumeErr != nil {
		return nil, m.ConsumeErr
	}
	ch := make(chan StreamMessage, len(m.StreamData))
	for _, msg := range m.StreamData {
		if msg.Stream == "" || msg.Stream == stream {
			msg.Stream = stream
			ch <- msg
		}
	}
	close(ch)
	return ch, nil
}

func (m *MockRedisClient) AcknowledgeMessage(ctx context.Context, stream string, group string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Acked = append(m.Acked, id)
	return nil
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	// Marshal to JSON like the real implementation
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.Data[key] = string(jsonData)
	m.TTLs[key] = ttl
	return nil
}

func (m *MockRedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return m.GetErr
	}
	value, exists := m.Data[key]
	if !exists {
		return nil // Return nil if key doesn't exist (like real implementation)
	}
	return json.Unmarshal([]byte(value), dest)
}

func (m *MockRedisClient) SetAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.Sets[key]
	if !ok {
		set = make(map[string]bool)
		m.Sets[key] = set
	}
	for _, member := range members {
		set[member] = true
	}
	return nil
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	jsonData, err := json.Marshal(message)
	if err != nil {
		return err
	}
	m.Published[channel] = append(m.Published[channel], string(jsonData))
	return nil
}

func (m *MockRedisClient) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockRedisClient) Close() error {
	return nil
}

// AckedIDs returns a copy of the acknowledged message IDs
func (m *MockRedisClient) AckedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Acked...)
}

// Value returns a stored key and whether it exists
func (m *MockRedisClient) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Data[key]
	return v, ok
}

// Messages returns a copy of what was published on channel
func (m *MockRedisClient) Messages(channel string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Published[channel]...)
}

// StreamEntries returns a copy of what was appended to stream
func (m *MockRedisClient) StreamEntries(stream string) []map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]interface{}(nil), m.Streams[stream]...)
}

// Members returns the members of a set
func (m *MockRedisClient) Members(key string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Sets[key]))
	for member := range m.Sets[key] {
		out = append(out, member)
	}
	return out
}
