package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"h2olog/internal/core"
	"h2olog/internal/services"
	"h2olog/internal/storage/memory"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

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

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return ev
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitFor(t, func() bool { return hub.Count() == 2 })

	hub.Broadcast(Event{Kind: "entries.cleared"})

	for _, conn := range []*websocket.Conn{a, b} {
		if ev := readEvent(t, conn); ev.Kind != "entries.cleared" {
			t.Errorf("Kind = %q", ev.Kind)
		}
	}
}

func TestHub_ClientCloseUnregisters(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.Count() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.Count() == 0 })
}

func TestHub_ListenerForwardsStoreChanges(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx := context.Background()
	entries := services.NewEntryStore(ctx, memory.New(), nil, services.WithIDGenerator(func() string { return "e1" }))
	entries.Subscribe(hub.Listener())

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.Count() == 1 })

	if _, err := entries.Add(ctx, core.Draft{Type: core.Intake, Amount: 250}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	ev := readEvent(t, conn)
	if ev.Kind != string(services.ChangeEntryAdded) || ev.EntryID != "e1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.Count() == 1 })

	hub.Close()
	if hub.Count() != 0 {
		t.Fatalf("Count = %d after Close", hub.Count())
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected read error after hub close")
	}
}

func TestHub_BroadcastDoesNotWaitForStalledClient(t *testing.T) {
	hub := NewHub(nil)
	// no writer drains this client
	stalled := newClient(nil)
	hub.register(stalled)

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*4; i++ {
			hub.Broadcast(Event{Kind: "entry.added"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a stalled client")
	}
	if got := len(stalled.send); got != sendBuffer {
		t.Fatalf("queued %d frames, want %d", got, sendBuffer)
	}
	if hub.Count() != 1 {
		t.Fatalf("stalled client was dropped")
	}
}
