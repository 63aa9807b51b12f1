package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub stores and manages all active websocket connections, one per
// actor. Owned by the service instance: created at startup, closed at
// shutdown.
type ConnectionHub struct {
	clients map[uuid.UUID]*Conn
	l       logger.Logger
	mu      sync.Mutex
	wg      sync.WaitGroup
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[uuid.UUID]*Conn),
		l:       l,
	}
}

// Add registers a new connection. An existing connection for the same actor
// is closed and replaced; this is what makes reconnects work.
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "add_ws_connection")

	if existing, ok := h.clients[newConn.actorID]; ok {
		h.l.Warn(ctx,
			"replacing existing connection",
			"actor_id", existing.actorID,
		)
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx,
				"failed to close existing conn",
				"actor_id", existing.actorID,
				"err", err.Error(),
			)
		}
		h.wg.Done()
	}

	h.clients[newConn.actorID] = newConn
	h.wg.Add(1)

	return nil
}

// DeleteConn removes and closes the given connection, but only while the hub
// entry still points at this exact connection. A connection that was already
// replaced by a reconnect leaves the new entry untouched. Returns whether the
// entry was removed.
func (h *ConnectionHub) DeleteConn(conn *Conn) bool {
	if conn == nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "ws_connection_delete")

	current, ok := h.clients[conn.actorID]
	if !ok || current != conn {
		return false
	}

	if err := conn.Close(); err != nil {
		h.l.Warn(ctx,
			"failed to close conn",
			"actor_id", conn.actorID,
			"err", err.Error(),
		)
	}

	delete(h.clients, conn.actorID)
	h.wg.Done()

	return true
}

// SendTo delivers a message to one actor. Returns ErrConnIsNotFound when the
// actor has no live connection.
func (h *ConnectionHub) SendTo(actorID uuid.UUID, msg any) error {
	h.mu.Lock()
	conn, ok := h.clients[actorID]
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}
	return conn.Send(msg)
}

// GetConn returns the connection of the given actor.
func (h *ConnectionHub) GetConn(actorID uuid.UUID) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[actorID]
	if !ok {
		return nil, ErrConnIsNotFound
	}
	return conn, nil
}

// Len returns the number of live connections.
func (h *ConnectionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// RunHealthcheck pings every connection on the given interval and drops the
// dead ones. Blocks until ctx is cancelled; run it on its own goroutine.
func (h *ConnectionHub) RunHealthcheck(ctx context.Context, interval time.Duration) {
	ctx = wrap.WithAction(ctx, "ws_healthcheck")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.Lock()
			clients := make([]*Conn, 0, len(h.clients))
			for _, conn := range h.clients {
				clients = append(clients, conn)
			}
			h.mu.Unlock()

			for _, conn := range clients {
				if err := conn.Health(); err != nil {
					h.l.Debug(ctx, "dropping dead connection",
						"actor_id", conn.actorID,
						"err", err.Error(),
					)
					h.DeleteConn(conn)
				}
			}
		}
	}
}

// Close closes every websocket connection and waits for their removal.
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	// copy the clients under the lock
	h.mu.Lock()
	clients := make([]*Conn, 0, len(h.clients))
	for _, conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.Unlock()
	// close outside of it
	for _, conn := range clients {
		h.DeleteConn(conn)
	}

	h.wg.Wait()

	h.l.Info(ctx, "all websocket connections closed gracefully")
}
