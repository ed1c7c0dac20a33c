package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohamedkhairy/streamta/internal/models"
)

var (
	// ErrConnectionClosed is returned when sending on a closed connection
	ErrConnectionClosed = errors.New("connection closed")

	// ErrSendBufferFull is returned when a slow client has not drained its buffer
	ErrSendBufferFull = errors.New("send buffer full")
)

// Connection represents a WebSocket connection with a client
type Connection struct {
	ID            string
	UserID        string
	Conn          *websocket.Conn
	Send          chan []byte
	Subscriptions map[string]bool // symbol -> subscribed
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	closeOnce     sync.Once
	lastPong      time.Time
	createdAt     time.Time
}

// NewConnection creates a new WebSocket connection
func NewConnection(id string, userID string, conn *websocket.Conn, bufferSize int) *Connection {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		ID:            id,
		UserID:        userID,
		Conn:          conn,
		Send:          make(chan []byte, bufferSize),
		Subscriptions: make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
		createdAt:     time.Now(),
		lastPong:      time.Now(),
	}
}

// Subscribe subscribes to indicator updates for a symbol
func (c *Connection) Subscribe(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Subscriptions[symbol] = true
}

// Unsubscribe unsubscribes from indicator updates for a symbol
func (c *Connection) Unsubscribe(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Subscriptions, symbol)
}

// IsSubscribed checks if the connection is subscribed to a symbol
func (c *Connection) IsSubscribed(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Subscriptions[symbol]
}

// ShouldReceive reports whether updates of symbol go to this connection.
// A connection without subscriptions receives nothing.
func (c *Connection) ShouldReceive(symbol string) bool {
	return c.IsSubscribed(symbol)
}

// UpdateLastPong updates the last pong time
func (c *Connection) UpdateLastPong() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPong = time.Now()
}

// GetLastPong returns the last pong time
func (c *Connection) GetLastPong() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPong
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection. It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// SendUpdate queues an indicator update for the client
func (c *Connection) SendUpdate(update models.IndicatorUpdate) error {
	return c.enqueue(ServerMessage{Type: MessageTypeIndicators, Data: update})
}

// SendSuccess queues a success message
func (c *Connection) SendSuccess(action string, data interface{}) error {
	return c.enqueue(ServerMessage{
		Type: MessageTypeSuccess,
		Data: map[string]interface{}{
			"action": action,
			"data":   data,
		},
	})
}

// SendPong queues a pong message
func (c *Connection) SendPong() error {
	return c.enqueue(ServerMessage{Type: MessageTypePong})
}

// SendError queues an error message
func (c *Connection) SendError(code string, message string) error {
	return c.enqueue(ServerMessage{Type: MessageTypeError, Code: code, Message: message})
}

// enqueue hands a message to the write pump without blocking. Only the write
// pump writes to the socket.
func (c *Connection) enqueue(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.Send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}
