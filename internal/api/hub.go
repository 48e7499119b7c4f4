package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"skyvario/pkg/flight"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the display is served from another origin on the device
	},
}

// Message is one frame on the live stream.
type Message struct {
	Type     string           `json:"type"` // "state", "snapshot"
	Active   *bool            `json:"active,omitempty"`
	Snapshot *flight.Snapshot `json:"snapshot,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans the scheduler's snapshot stream out to websocket clients. It
// implements core.SnapshotSink.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	active  bool
	last    *flight.Snapshot
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Update broadcasts a snapshot.
func (h *Hub) Update(s *flight.Snapshot) {
	snap := *s
	h.mu.Lock()
	h.last = &snap
	h.mu.Unlock()
	h.broadcast(Message{Type: "snapshot", Snapshot: &snap})
}

// UpdateState broadcasts session state changes.
func (h *Hub) UpdateState(active bool) {
	h.mu.Lock()
	changed := h.active != active
	h.active = active
	h.mu.Unlock()
	if changed {
		h.broadcast(Message{Type: "state", Active: &active})
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		slog.Error("Hub: failed to encode message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// slow reader
			slog.Debug("Hub: dropping slow client", "remote", c.conn.RemoteAddr())
			h.removeLocked(c)
		}
	}
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// HandleWS handles GET /api/ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Hub: websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	active := h.active
	hello := []Message{{Type: "state", Active: &active}}
	if h.last != nil {
		hello = append(hello, Message{Type: "snapshot", Snapshot: h.last})
	}
	for _, m := range hello {
		if data, err := json.Marshal(m); err == nil {
			c.send <- data
		}
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client frames and unregisters on close.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.mu.Lock()
		h.removeLocked(c)
		h.mu.Unlock()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("Hub: write failed", "error", err)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
