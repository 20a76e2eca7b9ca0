package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"loandesk/dataset"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil, nil, []string{"*"})
	go hub.Run()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})
	return hub, server
}

func dial(t *testing.T, hub *Hub, server *httptest.Server, want int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	waitFor(t, func() bool { return hub.ClientCount() == want })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("bad message %s: %v", data, err)
	}
	return msg
}

func TestHubBroadcastsDatasetEvents(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, hub, server, 1)

	hub.DatasetEvent(dataset.Event{Dataset: dataset.Training, Type: dataset.EventAppended, Index: 4, Rows: 5})

	msg := readMessage(t, conn)
	if msg.Type != DatasetChanged || msg.Topic != dataset.Training || msg.ID == "" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	var event dataset.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != dataset.EventAppended || event.Index != 4 || event.Rows != 5 {
		t.Fatalf("unexpected event: %+v", event)
	}
	if got := hub.metrics.Value("dataset_events_total", map[string]string{"dataset": "training", "type": "appended"}); got != 1 {
		t.Fatalf("expected one counted event, got %v", got)
	}
}

func TestHubSubscriptionFiltersTopics(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, hub, server, 1)

	if err := conn.WriteJSON(ClientMessage{Type: "subscribe", Topic: dataset.Testing}); err != nil {
		t.Fatal(err)
	}
	// the subscription is applied asynchronously by readPump
	waitFor(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for client := range hub.clients {
			if !client.wants(dataset.Training) {
				return true
			}
		}
		return false
	})

	hub.DatasetEvent(dataset.Event{Dataset: dataset.Training, Type: dataset.EventDeleted})
	hub.DatasetEvent(dataset.Event{Dataset: dataset.Testing, Type: dataset.EventInvalidated})

	msg := readMessage(t, conn)
	if msg.Topic != dataset.Testing {
		t.Fatalf("expected only testing events, got %+v", msg)
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, hub, server, 1)
	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}
