package wsgateway

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mohamedkhairy/streamta/internal/models"
)

func TestConnection_SubscribeUnsubscribe(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil, 4)

	// Subscribe to symbol
	conn.Subscribe("AAPL")
	if !conn.IsSubscribed("AAPL") {
		t.Error("Expected connection to be subscribed to AAPL")
	}

	// Unsubscribe
	conn.Unsubscribe("AAPL")
	if conn.IsSubscribed("AAPL") {
		t.Error("Expected connection to be unsubscribed from AAPL")
	}
}

func TestConnection_ShouldReceive(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil, 4)

	// No subscriptions means nothing is delivered
	if conn.ShouldReceive("AAPL") {
		t.Error("Expected connection without subscriptions to receive nothing")
	}

	conn.Subscribe("AAPL")
	if !conn.ShouldReceive("AAPL") {
		t.Error("Expected connection to receive updates for subscribed symbol")
	}
	if conn.ShouldReceive("MSFT") {
		t.Error("Expected connection not to receive updates for unsubscribed symbol")
	}
}

func TestConnection_UpdateLastPong(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil, 4)
	conn.lastPong = time.Now().Add(-1 * time.Hour)

	initialPong := conn.GetLastPong()
	conn.UpdateLastPong()

	if !conn.GetLastPong().After(initialPong) {
		t.Error("Expected last pong time to be updated")
	}
}

func TestConnection_SendUpdate(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil, 4)
	ts := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)

	err := conn.SendUpdate(models.IndicatorUpdate{
		Symbol:    "AAPL",
		Timestamp: ts,
		Values:    map[string]float64{"sma_10": 101.5},
	})
	if err != nil {
		t.Fatalf("SendUpdate failed: %v", err)
	}

	var msg struct {
		Type MessageType            `json:"type"`
		Data models.IndicatorUpdate `json:"data"`
	}
	if err := json.Unmarshal(<-conn.Send, &msg); err != nil {
		t.Fatalf("Failed to decode message: %v", err)
	}
	if msg.Type != MessageTypeIndicators {
		t.Errorf("Expected type %s, got %s", MessageTypeIndicators, msg.Type)
	}
	if msg.Data.Symbol != "AAPL" || msg.Data.Values["sma_10"] != 101.5 {
		t.Errorf("Unexpected update: %+v", msg.Data)
	}
	if !msg.Data.Timestamp.Equal(ts) {
		t.Errorf("Expected timestamp %s, got %s", ts, msg.Data.Timestamp)
	}
}

func TestConnection_SendBufferFull(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil, 1)

	if err := conn.SendPong(); err != nil {
		t.Fatalf("First send failed: %v", err)
	}
	if err := conn.SendPong(); !errors.Is(err, ErrSendBufferFull) {
		t.Errorf("Expected ErrSendBufferFull, got %v", err)
	}
}

func TestConnection_Close(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil, 4)

	conn.Close()
	conn.Close() // second close is a no-op

	select {
	case <-conn.Done():
	default:
		t.Fatal("Expected Done to be closed")
	}
	if err := conn.SendError("code", "message"); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed, got %v", err)
	}
}
