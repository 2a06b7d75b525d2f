package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wisefido-rppg/internal/models"
)

const hubWriteTimeout = 200 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type hubClient struct {
	session string // empty = all sessions
}

// Hub pushes estimates to browsers over websocket. Clients may pass ?session_id= to only
// receive one session.
type Hub struct {
	mu      sync.Mutex
	writeMu sync.Mutex
	conns   map[*websocket.Conn]hubClient
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{conns: make(map[*websocket.Conn]hubClient), logger: logger}
}

func (h *Hub) Name() string { return "websocket" }

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// ServeHTTP upgrades the request and keeps the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	h.add(conn, hubClient{session: r.URL.Query().Get("session_id")})
	defer func() {
		h.remove(conn)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish broadcasts ev to the matching clients. Clients that cannot be written to are dropped.
func (h *Hub) Publish(_ context.Context, ev models.EstimateEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal estimate event: %w", err)
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	for _, c := range h.snapshot(ev.SessionID) {
		_ = c.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = c.Close()
			h.remove(c)
		}
	}
	return nil
}

func (h *Hub) add(c *websocket.Conn, client hubClient) {
	h.mu.Lock()
	h.conns[c] = client
	h.mu.Unlock()
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

func (h *Hub) snapshot(session string) []*websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := make([]*websocket.Conn, 0, len(h.conns))
	for c, info := range h.conns {
		if info.session == "" || info.session == session {
			clients = append(clients, c)
		}
	}
	return clients
}
