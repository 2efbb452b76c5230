package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lectio/admin-console/internal/queries"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func startHub(t *testing.T, origin string) (*Hub, string) {
	t.Helper()
	hub := NewHub(origin, "console-test", testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(server.Close)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMutationIsPushedToDashboards(t *testing.T) {
	hub, url := startHub(t, "*")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.OnMutation(context.Background(), queries.Mutation{
		Action:     "block_user",
		ResourceID: "u1",
		Families:   []string{"users", "students", "user"},
		At:         time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.Type != "invalidate" || msg.Action != "block_user" || len(msg.Families) != 3 || msg.Source != "console-test" {
		t.Errorf("message = %+v", msg)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t, "*")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	waitForClients(t, hub, 1)
	conn.Close()
	waitForClients(t, hub, 0)
}

func TestOriginCheck(t *testing.T) {
	_, url := startHub(t, "https://admin.lectio.dz")

	header := http.Header{"Origin": {"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("expected foreign origin to be rejected")
	}

	header = http.Header{"Origin": {"https://admin.lectio.dz"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	conn.Close()
}

func TestOriginCheckAcceptsList(t *testing.T) {
	_, url := startHub(t, "https://admin.lectio.dz, http://localhost:3000")

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:3000"}})
	if err != nil {
		t.Fatalf("listed origin rejected: %v", err)
	}
	conn.Close()

	if _, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}}); err == nil {
		t.Error("expected foreign origin to be rejected")
	}
}
