package wsgateway

import (
	"encoding/json"
	"fmt"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	// Client to server
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"

	// Server to client
	MessageTypeIndicators MessageType = "indicators"
	MessageTypeSuccess    MessageType = "success"
	MessageTypeError      MessageType = "error"
	MessageTypePong       MessageType = "pong"
)

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type    string          `json:"type"`
	Symbol  string          `json:"symbol,omitempty"`
	Symbols []string        `json:"symbols,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// symbols returns the symbols named by the message
func (m *ClientMessage) symbols() []string {
	if m.Symbol != "" {
		return []string{m.Symbol}
	}
	return m.Symbols
}

// ServerMessage represents a message to the client
type ServerMessage struct {
	Type    MessageType `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// handleClientMessage applies a client message to conn. Newly subscribed
// symbols get their current values right away when the hub has a source.
func (h *Hub) handleClientMessage(conn *Connection, msg *ClientMessage) error {
	switch MessageType(msg.Type) {
	case MessageTypeSubscribe:
		symbols := msg.symbols()
		if len(symbols) == 0 {
			return conn.SendError("invalid_request", "symbol or symbols field required")
		}
		for _, symbol := range symbols {
			conn.Subscribe(symbol)
		}
		if err := conn.SendSuccess("subscribed", map[string]interface{}{"symbols": symbols}); err != nil {
			return err
		}
		h.sendCurrent(conn, symbols)
		return nil

	case MessageTypeUnsubscribe:
		symbols := msg.symbols()
		if len(symbols) == 0 {
			return conn.SendError("invalid_request", "symbol or symbols field required")
		}
		for _, symbol := range symbols {
			conn.Unsubscribe(symbol)
		}
		return conn.SendSuccess("unsubscribed", map[string]interface{}{"symbols": symbols})

	case MessageTypePing:
		return conn.SendPong()

	default:
		return conn.SendError("unknown_message_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}
