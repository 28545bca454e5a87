package streaming

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Hub is a secondary push transport alongside the NDJSON Writer: it
// lets a client attach a WebSocket connection to a session_id and
// receive the same frames an NDJSON consumer would poll for,
// trimmed down from the teacher's ConnectionManager (no Postgres
// LISTEN/NOTIFY catchup — this domain's events are produced directly
// in-process by the executing goroutine, so there is no missed-event
// gap to backfill from a database).
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*connection

	sessionMu sync.RWMutex
	sessions  map[string]map[string]bool // session_id -> set of connection ids

	writeTimeout time.Duration
}

type connection struct {
	id     string
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub builds a Hub whose sends time out after writeTimeout.
func NewHub(writeTimeout time.Duration) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Hub{
		connections:  make(map[string]*connection),
		sessions:     make(map[string]map[string]bool),
		writeTimeout: writeTimeout,
	}
}

// Attach registers conn as a listener for sessionID and blocks until
// the connection closes or parentCtx is cancelled, mirroring
// ConnectionManager.HandleConnection's lifecycle.
func (h *Hub) Attach(parentCtx context.Context, sessionID string, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(parentCtx)
	c := &connection{id: uuid.New().String(), conn: conn, ctx: ctx, cancel: cancel}

	h.register(sessionID, c)
	defer h.unregister(sessionID, c)

	// CloseRead reads (and discards) client frames so a close from the
	// client is noticed; its context ends when the connection closes.
	<-conn.CloseRead(ctx).Done()
}

// Push sends frame to every connection attached to sessionID.
func (h *Hub) Push(sessionID string, frame interface{}) {
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Warn("failed to marshal stream frame", "error", err)
		return
	}

	h.sessionMu.RLock()
	ids, ok := h.sessions[sessionID]
	if !ok {
		h.sessionMu.RUnlock()
		return
	}
	connIDs := make([]string, 0, len(ids))
	for id := range ids {
		connIDs = append(connIDs, id)
	}
	h.sessionMu.RUnlock()

	h.mu.RLock()
	conns := make([]*connection, 0, len(connIDs))
	for _, id := range connIDs {
		if c, ok := h.connections[id]; ok {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		writeCtx, cancel := context.WithTimeout(c.ctx, h.writeTimeout)
		err := c.conn.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			slog.Warn("failed to push stream frame", "connection_id", c.id, "error", err)
		}
	}
}

// ActiveConnections returns the count of attached connections, for
// health/readiness reporting.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) register(sessionID string, c *connection) {
	h.mu.Lock()
	h.connections[c.id] = c
	h.mu.Unlock()

	h.sessionMu.Lock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[string]bool)
	}
	h.sessions[sessionID][c.id] = true
	h.sessionMu.Unlock()
}

func (h *Hub) unregister(sessionID string, c *connection) {
	h.sessionMu.Lock()
	if subs, ok := h.sessions[sessionID]; ok {
		delete(subs, c.id)
		if len(subs) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	h.sessionMu.Unlock()

	h.mu.Lock()
	delete(h.connections, c.id)
	h.mu.Unlock()

	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}
