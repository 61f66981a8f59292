package websocket

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"tradebot/internal/exchange"
	"tradebot/internal/models"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	go hub.Run()
	return hub
}

// addClient регистрирует клиента без реального соединения
func addClient(t *testing.T, hub *Hub, bufSize int) *Client {
	t.Helper()
	client := &Client{hub: hub, send: make(chan []byte, bufSize)}
	hub.register <- client

	deadline := time.After(time.Second)
	for hub.ClientCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("client was not registered")
		case <-time.After(time.Millisecond):
		}
	}
	return client
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHubBroadcastPrice(t *testing.T) {
	hub := newTestHub(t)
	client := addClient(t, hub, 8)

	hub.BroadcastPrice(exchange.PriceUpdate{
		Symbol: "BTCUSDT",
		Price:  50000,
		At:     time.Now().UTC(),
	})

	raw := receive(t, client)
	var msg PriceUpdateMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != MessageTypePriceUpdate {
		t.Errorf("type = %s, want priceUpdate", msg.Type)
	}
	if msg.Symbol != "BTCUSDT" || msg.Price != 50000 {
		t.Errorf("payload = %+v", msg)
	}
	if raw[len(raw)-1] == '\n' {
		t.Error("trailing newline must be stripped")
	}
}

func TestHubBroadcastBotUpdate(t *testing.T) {
	hub := newTestHub(t)
	client := addClient(t, hub, 8)

	hub.BroadcastBotUpdate(&models.Bot{
		ID: 3, Name: "btc-grid", Symbol: "BTCUSDT",
		Status: models.BotStatusPaused,
	})

	var msg BotUpdateMessage
	if err := json.Unmarshal(receive(t, client), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.BotID != 3 || msg.Status != models.BotStatusPaused {
		t.Errorf("payload = %+v", msg)
	}
}

func TestHubRemovesSlowClient(t *testing.T) {
	hub := newTestHub(t)
	slow := addClient(t, hub, 1)

	// Первое сообщение занимает буфер, второе не влезает
	hub.BroadcastNotification(&models.Notification{Type: models.NotificationTypeSL, Message: "first"})
	hub.BroadcastNotification(&models.Notification{Type: models.NotificationTypeSL, Message: "second"})

	deadline := time.After(time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("slow client was not removed")
		case <-time.After(time.Millisecond):
		}
	}

	// Канал закрыт Hub-ом
	select {
	case _, ok := <-slow.send:
		if !ok {
			return
		}
		// первое сообщение, читаем дальше
		if _, ok := <-slow.send; ok {
			t.Error("send channel must be closed")
		}
	case <-time.After(time.Second):
		t.Error("send channel must be closed")
	}
}
