// Package server manages individual WebSocket sessions: the read/write
// pumps, the per-connection authentication state machine, and chat relay.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/lanshare/lanshare/internal/store"
	"github.com/lanshare/lanshare/internal/token"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Client represents one live WebSocket session. Each client carries a unique
// session id and an authenticated flag that starts false and only ever
// transitions to true. The closed and authenticated fields are guarded by the
// hub's mutex.
type Client struct {
	id            string
	conn          *websocket.Conn
	send          chan []byte
	hub           *Hub
	addr          string
	closed        bool
	authenticated bool

	auth    *token.Authority
	files   *store.FileStore
	limiter *rate.Limiter
}

// NewClient creates a session for the given connection. The send channel is
// buffered so broadcasts to a slow reader do not block the relay.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, auth *token.Authority, files *store.FileStore, cfg Config) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}
	interval := cfg.RateLimit.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, 256),
		hub:     hub,
		addr:    addr,
		auth:    auth,
		files:   files,
		limiter: rate.NewLimiter(rate.Every(interval/time.Duration(burst)), burst),
	}
}

// ID returns the session identifier.
func (c *Client) ID() string {
	return c.id
}

// grantAuth marks the session authenticated and sends the success
// acknowledgment followed by the current file listing to this session only.
// Already-authenticated sessions are left alone.
func (c *Client) grantAuth() {
	if c.hub.isAuthenticated(c) {
		return
	}
	c.hub.MarkAuthenticated(c)
	c.hub.sendTo(c, authSuccessPayload())
	c.hub.sendTo(c, filesHistoryPayload(c.files.List()))
}

// handleInbound dispatches one decoded client message. Malformed payloads are
// logged and dropped; the connection stays up either way.
func (c *Client) handleInbound(raw []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.hub.log.Warnw("invalid message", "client", c.id, "error", err)
		return
	}

	if !c.hub.isAuthenticated(c) {
		if env.Type == messageTypeAuth {
			if c.auth.Validate(env.Token) {
				c.hub.log.Infow("client authenticated via token", "client", c.id)
				c.grantAuth()
			} else {
				c.hub.log.Infow("client auth failed", "client", c.id)
				c.hub.sendTo(c, authFailedPayload())
			}
			return
		}
		c.hub.sendTo(c, errorPayload("Not authenticated"))
		return
	}

	switch env.Type {
	case messageTypeChat:
		if !c.limiter.Allow() {
			c.hub.log.Warnw("chat rate limit exceeded, discarding message", "client", c.id)
			return
		}
		c.hub.Broadcast(chatPayload(env.Message, c.id, time.Now().UTC()))
	case messageTypeAuth:
		// Re-authenticating an authenticated session is a no-op.
	default:
		c.hub.log.Debugw("ignoring unknown message type", "client", c.id, "type", env.Type)
	}
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.hub.log.Warnw("error setting read deadline", "client", c.id, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// handleReadError logs the error by category and always ends the read loop.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.hub.log.Warnw("message exceeded read limit", "client", c.id)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.hub.log.Infow("client closed connection", "client", c.id, "error", err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.hub.log.Infow("connection closed", "client", c.id, "error", err)
	default:
		c.hub.log.Warnw("websocket read error", "client", c.id, "error", err)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.hub.log.Warnw("error closing connection in read pump", "client", c.id, "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		c.handleInbound(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.hub.log.Warnw("error closing connection in write pump", "client", c.id, "error", err)
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Hub closed the channel; say goodbye.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One JSON document per frame; clients decode frame-by-frame.
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					c.hub.log.Warnw("error writing message", "client", c.id, "error", err)
				}
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
