// Package server coordinates session registration, authentication state, and
// event broadcast for the LAN Share real-time channel via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub is the session registry and broadcast relay. It tracks every live
// WebSocket client together with its authenticated flag and fans events out
// to the authenticated members. Membership and the authenticated flag are
// guarded by one mutex so a broadcast always sees a consistent view.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	wg      sync.WaitGroup
	log     *zap.SugaredLogger
}

// NewHub creates an empty hub. A nil logger falls back to a nop logger.
func NewHub(log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		clients: make(map[*Client]bool),
		log:     log,
	}
}

// Register adds a client to the registry in the unauthenticated state.
func (h *Hub) Register(c *Client) {
	if c == nil {
		h.log.Warn("ignoring nil client registration")
		return
	}

	h.mu.Lock()
	c.closed = false
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Infow("client connected", "client", c.id, "addr", c.addr, "total", count)
}

// StartClient registers the client and launches its read/write pumps.
func (h *Hub) StartClient(c *Client) {
	h.Register(c)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// Unregister removes a client and closes its send channel. Removing a client
// that is already gone is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	c.closed = true
	count := len(h.clients)
	h.mu.Unlock()

	// Close the channel after releasing the lock.
	close(c.send)
	h.log.Infow("client disconnected", "client", c.id, "addr", c.addr, "total", count)
}

// MarkAuthenticated flips the client's authenticated flag. The transition is
// one-way; there is no path back to unauthenticated.
func (h *Hub) MarkAuthenticated(c *Client) {
	h.mu.Lock()
	c.authenticated = true
	h.mu.Unlock()
}

func (h *Hub) isAuthenticated(c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.authenticated
}

// ClientCount returns the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// AuthenticatedCount returns the number of authenticated sessions.
func (h *Hub) AuthenticatedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for c := range h.clients {
		if c.authenticated {
			n++
		}
	}
	return n
}

// Broadcast delivers payload to every authenticated session. Delivery is
// best-effort per recipient: a session whose send buffer is full or that
// closed mid-broadcast is dropped from the registry and the remaining
// recipients still receive the payload. Sequential calls from one goroutine
// reach each surviving recipient in call order.
func (h *Hub) Broadcast(payload []byte) {
	clients := h.authenticatedSnapshot()

	var failed []*Client
	for _, c := range clients {
		if !h.sendTo(c, payload) {
			failed = append(failed, c)
		}
	}

	h.removeFailed(failed)
}

// sendTo enqueues payload on the client's send channel without blocking.
// The lock is held across the send so the channel cannot be closed by a
// concurrent unregister in between the membership check and the send.
func (h *Hub) sendTo(c *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warnw("recovered from send on closed channel", "client", c.id, "panic", r)
		}
	}()

	if payload == nil {
		return true
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c]; !ok || c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// authenticatedSnapshot copies the authenticated members under the registry
// lock so slow sends never block membership changes.
func (h *Hub) authenticatedSnapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.authenticated {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) removeFailed(failed []*Client) {
	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	var channelsToClose []chan []byte
	for _, c := range failed {
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			c.closed = true
			channelsToClose = append(channelsToClose, c.send)
			h.log.Warnw("client dropped due to full send buffer", "client", c.id, "addr", c.addr)
		}
	}
	h.mu.Unlock()

	for _, ch := range channelsToClose {
		close(ch)
	}
}

// Shutdown closes every client connection and waits for the pump goroutines
// to finish, or until the timeout elapses.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if c.conn != nil {
			if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warnw("error closing client connection", "client", c.id, "error", err)
			}
		}
	}
	h.log.Infow("closed client connections", "count", len(clients))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
