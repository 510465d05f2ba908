package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PublishReachesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 1 })

	if !hub.Publish(MsgTypeEpisode, map[string]int{"index": 4}) {
		t.Fatal("publish dropped")
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Type string         `json:"type"`
		Data map[string]int `json:"data"`
	}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != MsgTypeEpisode || got.Data["index"] != 4 {
		t.Fatalf("got %+v", got)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 0 })
}

func TestHub_ShutdownDisconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 1 })

	cancel()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to close")
	}
	if hub.Clients() != 0 {
		t.Fatalf("clients=%d after shutdown", hub.Clients())
	}
}

func TestValidOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://example.test:8080", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1", true},
		{"https://evil.example", false},
		{"::bad", false},
	}
	for _, tt := range tests {
		r, _ := http.NewRequest(http.MethodGet, "http://example.test:8080/feed", nil)
		r.Host = "example.test:8080"
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := validOrigin(r); got != tt.want {
			t.Errorf("origin %q: got %v want %v", tt.origin, got, tt.want)
		}
	}
}
