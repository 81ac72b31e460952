package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub keeps every active websocket connection by connection id.
type ConnectionHub struct {
	clients map[uuid.UUID]*Conn
	l       logger.Logger
	mu      sync.RWMutex

	// OnChange is called with the number of clients after Add and Delete.
	OnChange func(n int)
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[uuid.UUID]*Conn),
		l:       l,
	}
}

// Add registers a connection. A connection with the same id is closed and replaced.
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	existing, ok := h.clients[newConn.id]
	h.clients[newConn.id] = newConn
	n := len(h.clients)
	h.mu.Unlock()

	if ok && existing != newConn {
		ctx := wrap.WithAction(context.Background(), "add_ws_connection")
		h.l.Warn(ctx, "replacing existing connection", "conn_id", existing.id)
		_ = existing.Close()
	}

	h.changed(n)
	return nil
}

// Delete closes and removes a connection.
func (h *ConnectionHub) Delete(id uuid.UUID) error {
	h.mu.Lock()
	conn, ok := h.clients[id]
	delete(h.clients, id)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}

	if err := conn.Close(); err != nil {
		ctx := wrap.WithAction(context.Background(), "ws_connection_delete")
		h.l.Warn(ctx, "failed to close conn", "conn_id", id, "error", err.Error())
	}

	h.changed(n)
	return nil
}

// Broadcast sends msg to every connection and drops the ones that fail. It returns the number of deliveries.
func (h *ConnectionHub) Broadcast(ctx context.Context, msg any) int {
	h.mu.RLock()
	clients := make([]*Conn, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if err := c.Send(msg); err != nil {
			h.l.Debug(wrap.WithAction(ctx, "ws_broadcast"), "dropping websocket client", "conn_id", c.id, "error", err.Error())
			_ = h.Delete(c.id)
			continue
		}
		delivered++
	}
	return delivered
}

// Close closes every connection.
func (h *ConnectionHub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[uuid.UUID]*Conn)
	h.mu.Unlock()

	for _, conn := range clients {
		_ = conn.Close()
	}
	h.changed(0)

	h.l.Info(wrap.WithAction(context.Background(), "hub_close"), "all websocket connections closed", "count", len(clients))
}

func (h *ConnectionHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *ConnectionHub) changed(n int) {
	if h.OnChange != nil {
		h.OnChange(n)
	}
}
