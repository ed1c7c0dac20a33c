package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mohamedkhairy/streamta/internal/config"
	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// maxClientMessage bounds the size of one client message
const maxClientMessage = 4096

var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "Number of open indicator WebSocket connections",
	})

	messagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_messages_sent_total",
			Help: "Indicator updates handed to WebSocket clients",
		},
		[]string{"status"},
	)
)

// ValueSource provides the current indicator values of a symbol
type ValueSource interface {
	GetIndicators(symbol string) (map[string]float64, error)
}

// Hub manages WebSocket connections and fans indicator updates out to the
// clients subscribed to their symbol
type Hub struct {
	config   config.WSGatewayConfig
	registry *ConnectionRegistry
	auth     *AuthManager
	source   ValueSource
	upgrader websocket.Upgrader
	updates  chan models.IndicatorUpdate
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	stats    HubStats
}

// HubStats holds statistics about the hub
type HubStats struct {
	ConnectionsTotal  int64     `json:"connections_total"`
	ConnectionsActive int64     `json:"connections_active"`
	UpdatesReceived   int64     `json:"updates_received"`
	UpdatesDropped    int64     `json:"updates_dropped"`
	MessagesSent      int64     `json:"messages_sent"`
	MessagesDropped   int64     `json:"messages_dropped"`
	LastUpdateTime    time.Time `json:"last_update_time"`
	mu                sync.RWMutex
}

// NewHub creates a new WebSocket hub. source may be nil.
func NewHub(cfg config.WSGatewayConfig, source ValueSource) *Hub {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 256
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReadTimeout <= cfg.PingInterval {
		cfg.ReadTimeout = 2 * cfg.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		config:   cfg,
		registry: NewConnectionRegistry(),
		auth:     NewAuthManager(cfg.JWTSecret),
		source:   source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Browser dashboards are served from other origins; access is gated by tokens
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		updates: make(chan models.IndicatorUpdate, 1024),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts broadcasting and connection health monitoring
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()

	logger.Info("Starting WebSocket hub",
		logger.Int("max_connections", h.config.MaxConnections),
		logger.Bool("auth", h.auth.Enabled()),
	)

	h.wg.Add(2)
	go h.broadcaster()
	go h.monitorConnections()

	return nil
}

// Stop closes every connection and stops the hub
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	logger.Info("Stopping WebSocket hub")
	h.cancel()
	for _, conn := range h.registry.GetAll() {
		h.Unregister(conn)
	}
	h.wg.Wait()
	logger.Info("WebSocket hub stopped")
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Publish queues an update for broadcast. It never blocks the caller.
func (h *Hub) Publish(update models.IndicatorUpdate) {
	select {
	case h.updates <- update:
		h.stats.mu.Lock()
		h.stats.UpdatesReceived++
		h.stats.LastUpdateTime = time.Now()
		h.stats.mu.Unlock()
	default:
		h.stats.mu.Lock()
		h.stats.UpdatesDropped++
		h.stats.mu.Unlock()
	}
}

// ServeWS upgrades an HTTP request to an indicator WebSocket connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.IsRunning() {
		http.Error(w, "hub not running", http.StatusServiceUnavailable)
		return
	}

	userID, err := h.auth.Authenticate(r)
	if err != nil {
		logger.Debug("Rejected WebSocket connection", logger.ErrorField(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if h.config.MaxConnections > 0 && h.registry.Count() >= h.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logger.Debug("WebSocket upgrade failed", logger.ErrorField(err))
		return
	}

	h.Register(NewConnection(uuid.NewString(), userID, ws, h.config.SendBufferSize))
}

// Register registers a new connection and starts its pumps
func (h *Hub) Register(conn *Connection) {
	h.registry.Add(conn)
	connectionsActive.Set(float64(h.registry.Count()))
	h.stats.mu.Lock()
	h.stats.ConnectionsTotal++
	h.stats.mu.Unlock()

	logger.Info("Connection registered",
		logger.String("connection_id", conn.ID),
		logger.String("user_id", conn.UserID),
		logger.Int("user_connections", h.registry.CountByUser(conn.UserID)),
		logger.Int("total_connections", h.registry.Count()),
	)

	h.wg.Add(2)
	go h.writePump(conn)
	go h.readPump(conn)
}

// Unregister removes and closes a connection. Repeated calls are no-ops.
func (h *Hub) Unregister(conn *Connection) {
	if !h.registry.Remove(conn.ID) {
		return
	}
	conn.Close()
	connectionsActive.Set(float64(h.registry.Count()))

	logger.Info("Connection unregistered",
		logger.String("connection_id", conn.ID),
		logger.String("user_id", conn.UserID),
		logger.Int("total_connections", h.registry.Count()),
	)
}

// broadcaster delivers queued updates until the hub stops
func (h *Hub) broadcaster() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return
		case update := <-h.updates:
			h.broadcast(update)
		}
	}
}

// broadcast sends an update to every connection subscribed to its symbol.
// Slow clients lose the update rather than delaying the others.
func (h *Hub) broadcast(update models.IndicatorUpdate) {
	var sent, dropped int64
	for _, conn := range h.registry.GetSubscribed(update.Symbol) {
		if err := conn.SendUpdate(update); err != nil {
			dropped++
			if errors.Is(err, ErrSendBufferFull) {
				logger.Debug("Client buffer full, dropping update",
					logger.String("connection_id", conn.ID),
					logger.Symbol(update.Symbol),
				)
			}
			continue
		}
		sent++
	}

	messagesSentTotal.WithLabelValues("sent").Add(float64(sent))
	messagesSentTotal.WithLabelValues("dropped").Add(float64(dropped))
	h.stats.mu.Lock()
	h.stats.MessagesSent += sent
	h.stats.MessagesDropped += dropped
	h.stats.mu.Unlock()
}

// sendCurrent pushes the latest values of symbols that already have them
func (h *Hub) sendCurrent(conn *Connection, symbols []string) {
	if h.source == nil {
		return
	}
	for _, symbol := range symbols {
		values, err := h.source.GetIndicators(symbol)
		if err != nil || len(values) == 0 {
			continue
		}
		if err := conn.SendUpdate(models.IndicatorUpdate{Symbol: symbol, Values: values}); err != nil {
			return
		}
	}
}

// writePump is the only writer of conn's socket
func (h *Hub) writePump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			conn.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case <-conn.Done():
			return

		case message := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client messages until the connection fails
func (h *Hub) readPump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	conn.Conn.SetReadLimit(maxClientMessage)
	conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.UpdateLastPong()
		conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket error",
					logger.ErrorField(err),
					logger.String("connection_id", conn.ID),
				)
			}
			return
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			conn.SendError("invalid_message", "failed to parse message")
			continue
		}

		if err := h.handleClientMessage(conn, &clientMsg); err != nil {
			logger.Debug("Failed to handle client message",
				logger.ErrorField(err),
				logger.String("connection_id", conn.ID),
			)
		}
	}
}

// monitorConnections removes connections that stopped answering pings
func (h *Hub) monitorConnections() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			staleThreshold := h.config.ReadTimeout * 2

			for _, conn := range h.registry.GetAll() {
				if idle := now.Sub(conn.GetLastPong()); idle > staleThreshold {
					logger.Info("Removing stale connection",
						logger.String("connection_id", conn.ID),
						logger.String("user_id", conn.UserID),
						logger.Duration("idle_time", idle),
					)
					h.Unregister(conn)
				}
			}
		}
	}
}

// GetStats returns hub statistics
func (h *Hub) GetStats() HubStats {
	h.stats.mu.RLock()
	defer h.stats.mu.RUnlock()

	return HubStats{
		ConnectionsTotal:  h.stats.ConnectionsTotal,
		ConnectionsActive: int64(h.registry.Count()),
		UpdatesReceived:   h.stats.UpdatesReceived,
		UpdatesDropped:    h.stats.UpdatesDropped,
		MessagesSent:      h.stats.MessagesSent,
		MessagesDropped:   h.stats.MessagesDropped,
		LastUpdateTime:    h.stats.LastUpdateTime,
	}
}
