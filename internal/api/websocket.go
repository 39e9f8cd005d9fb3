package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/formations/core/errors"
	"github.com/FocuswithJustin/formations/internal/logging"
	"github.com/FocuswithJustin/formations/internal/validation"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// WordReply answers one word sent over /ws.
type WordReply struct {
	Word       string         `json:"word"`
	Formations map[int]string `json:"formations"`
	Error      *APIError      `json:"error,omitempty"`
}

// Client is one WebSocket connection. Every text message it sends is a
// word; every reply is a WordReply, in request order.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *messageRateBucket
}

// Hub tracks open WebSocket clients so they can be closed on shutdown.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logging.WebSocketEvent("client_connected", n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		logging.WebSocketEvent("client_disconnected", n)
	}
}

// Count returns the number of open clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll closes every client connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// messageRateBucket is a token bucket limiting one client's messages.
type messageRateBucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// newMessageRateBucket allows a burst of twice the per-second rate. A rate
// of zero or less disables limiting.
func newMessageRateBucket(perSecond int) *messageRateBucket {
	if perSecond <= 0 {
		return nil
	}
	capacity := float64(perSecond) * 2
	return &messageRateBucket{tokens: capacity, capacity: capacity, refillRate: float64(perSecond), last: time.Now()}
}

// allow is only called from the client's read loop.
func (b *messageRateBucket) allow() bool {
	if b == nil {
		return true
	}
	now := time.Now()
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.last).Seconds()*b.refillRate)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || s.cfg.allowAllOrigins() {
				return true
			}
			if slices.Contains(s.cfg.AllowedOrigins, origin) {
				return true
			}
			logging.SecurityEvent("websocket_origin_rejected", "api", "origin", origin)
			return false
		},
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		logging.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		hub:     s.hub,
		conn:    conn,
		send:    make(chan []byte, 16),
		limiter: newMessageRateBucket(s.cfg.MaxMessageRate),
	}
	s.hub.register(c)

	// keep the request id for logging but outlive the upgrade request
	ctx := context.WithoutCancel(r.Context())
	go c.writePump()
	go s.readPump(ctx, c)
}

// readPump answers each message in turn and owns closing c.send.
func (s *Server) readPump(ctx context.Context, c *Client) {
	defer func() {
		c.hub.unregister(c)
		close(c.send)
	}()

	if s.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(s.cfg.MaxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.WarnContext(ctx, "websocket unexpected close", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		reply := s.answer(ctx, c, kind, msg)
		data, err := json.Marshal(reply)
		if err != nil {
			logging.ErrorContext(ctx, "failed to marshal websocket reply", "error", err)
			return
		}
		select {
		case c.send <- data:
		default:
			// the writer is gone or the client stopped reading
			logging.WarnContext(ctx, "websocket send queue full, closing")
			return
		}
	}
}

func (s *Server) answer(ctx context.Context, c *Client, kind int, msg []byte) WordReply {
	if kind != websocket.TextMessage {
		return WordReply{Error: &APIError{Code: "BAD_REQUEST", Message: "expected a text message"}}
	}
	if err := validation.ValidateWord(string(msg)); err != nil {
		return WordReply{Error: &APIError{Code: "BAD_REQUEST", Message: err.Error()}}
	}
	word := s.norm.Normalize(string(msg))
	if !c.limiter.allow() {
		return WordReply{Word: word, Error: &APIError{Code: "RATE_LIMITED", Message: "too many messages"}}
	}
	out, err := s.renderer.Render(ctx, word)
	switch {
	case err == nil:
		return WordReply{Word: word, Formations: out}
	case errors.Is(err, errors.ErrCorruptRender):
		logging.ErrorContext(ctx, "corrupt formation", "word", word, "error", err)
		return WordReply{Word: word, Error: &APIError{Code: "CORRUPT_FORMATION", Message: err.Error()}}
	default:
		logging.ErrorContext(ctx, "render failed", "word", word, "error", err)
		return WordReply{Word: word, Error: &APIError{Code: "INTERNAL_ERROR", Message: "Failed to load formations"}}
	}
}

// writePump writes replies and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
