// Package realtime pushes store changes to open browser pages over
// websockets so they can re-fetch the affected view.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"h2olog/internal/log"
	"h2olog/internal/services"
)

const (
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 16
)

// Event is the JSON frame sent to clients.
type Event struct {
	Kind    string    `json:"kind"`
	EntryID string    `json:"entryId,omitempty"`
	At      time.Time `json:"at"`
}

// client frames are written only by its writer goroutine.
type client struct {
	conn *websocket.Conn
	send chan []byte
	quit chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		quit: make(chan struct{}),
	}
}

func (c *client) stop() {
	c.once.Do(func() { close(c.quit) })
}

func (c *client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// writeLoop drains the send queue and pings until the client is stopped.
func (h *Hub) writeLoop(c *client) {
	t := time.NewTicker(pingInterval)
	defer func() {
		t.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				h.unregister(c)
				return
			}
		case <-t.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		case <-c.quit:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return
		}
	}
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Discard()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.WithComponent(log.ComponentRealtime),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("Client connected", "clients", n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues payload as JSON for every client and returns without
// waiting for the writes. A client whose queue is full misses the frame.
func (h *Hub) Broadcast(payload any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to encode realtime event", log.FieldError, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("Dropped realtime event for slow client")
		}
	}
}

// Listener turns store changes into broadcasts.
func (h *Hub) Listener() services.Listener {
	return func(c services.Change) {
		h.Broadcast(Event{Kind: string(c.Kind), EntryID: c.EntryID, At: c.At})
	}
}

// ServeHTTP upgrades the request and keeps the connection until the
// client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", log.FieldError, err)
		return
	}
	c := newClient(conn)
	h.register(c)
	go h.writeLoop(c)

	// the read loop ends on client close or error
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister(c)
			return
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.stop()
	}
}
