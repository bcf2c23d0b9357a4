package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

const (
	hubWriteWait = 5 * time.Second
	hubReadWait  = 60 * time.Second
	hubBuffer    = 32
)

// Hub pushes snapshots and statuses to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{},
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams envelopes until the client
// goes away. Client messages are read only to detect disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("hub: upgrade failed", "error", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, hubBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("hub: client connected", "remote", r.RemoteAddr)

	go h.writeLoop(c)

	conn.SetReadDeadline(time.Now().Add(hubReadWait))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(hubReadWait))
	}

	h.drop(c)
	h.logger.Debug("hub: client disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) writeLoop(c *hubClient) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(typ string, data any) error {
	msg, err := json.Marshal(envelope{Type: typ, Data: data})
	if err != nil {
		return fmt.Errorf("hub: marshal: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("hub: client too slow, dropping")
			delete(h.clients, c)
			close(c.send)
		}
	}
	return nil
}

func (h *Hub) SendSnapshot(_ context.Context, snap snapshot.FontSnapshot) error {
	return h.broadcast("snapshot", snap)
}

func (h *Hub) SendStatus(_ context.Context, st Status) error {
	return h.broadcast("status", st)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}
