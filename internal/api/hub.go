package api

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/observability"
	"weighted-oracle/internal/oracle"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	defaultSendBuffer = 256
)

// HubOptions configures a Hub.
type HubOptions struct {
	// Lookup validates an oracle address on subscribe. Nil accepts any valid address.
	Lookup         func(domain.Address) error
	AllowedOrigins []string // empty or "*" allows every origin
	SendBuffer     int      // per-client queue length, defaults to 256
	Logger         zerolog.Logger
}

// Hub fans committed oracle events out to subscribed WebSocket clients.
// Run must be running for clients to register and receive events.
type Hub struct {
	opts     HubOptions
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	clients    map[*Client]struct{} // owned by Run
	count      atomic.Int64
	register   chan *Client
	unregister chan *Client
	broadcast  chan oracle.Commit

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a stopped hub.
func NewHub(opts HubOptions) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		opts:       opts,
		logger:     opts.Logger,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan oracle.Commit, opts.SendBuffer),
		ctx:        ctx,
		cancel:     cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			for c := range h.clients {
				close(c.done)
				delete(h.clients, c)
			}
			h.setCount()
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount()
			h.logger.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("websocket client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.done)
				h.setCount()
				h.logger.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("websocket client disconnected")
			}

		case commit := <-h.broadcast:
			h.fanOut(commit)
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.cancel()
}

// Broadcast queues the events of a commit for delivery. Implements ingestion.Broadcaster.
func (h *Hub) Broadcast(c oracle.Commit) {
	if len(c.Events) == 0 {
		return
	}
	select {
	case h.broadcast <- c:
	case <-h.ctx.Done():
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan WSMessage, h.opts.SendBuffer),
		done: make(chan struct{}),
		subs: make(map[string]struct{}),
	}
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) fanOut(commit oracle.Commit) {
	oracleAddr := string(commit.Oracle)
	for c := range h.clients {
		if !c.subscribed(oracleAddr) {
			continue
		}
		for i := range commit.Events {
			ev := commit.Events[i]
			c.enqueue(WSMessage{Type: MessageEvent, Oracle: oracleAddr, Event: &ev})
		}
	}
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.clients)))
	observability.SetWSClients(len(h.clients))
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Client is one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan WSMessage
	done chan struct{} // closed by the hub on unregister

	mu   sync.RWMutex
	subs map[string]struct{}
}

func (c *Client) subscribed(oracleAddr string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.subs[AllOracles]; ok {
		return true
	}
	_, ok := c.subs[oracleAddr]
	return ok
}

// enqueue drops msg when the client is not keeping up.
func (c *Client) enqueue(msg WSMessage) {
	select {
	case c.send <- msg:
	default:
		observability.RecordWSDrop()
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req WSRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		c.handle(req)
	}
}

func (c *Client) handle(req WSRequest) {
	switch req.Action {
	case ActionSubscribe:
		if req.Oracle != AllOracles {
			addr, err := domain.ParseAddress(req.Oracle)
			if err == nil && c.hub.opts.Lookup != nil {
				err = c.hub.opts.Lookup(addr)
			}
			if err != nil {
				c.enqueue(WSMessage{Type: MessageError, Oracle: req.Oracle, Error: err.Error()})
				return
			}
		}
		c.mu.Lock()
		c.subs[req.Oracle] = struct{}{}
		c.mu.Unlock()
		c.enqueue(WSMessage{Type: MessageSubscribed, Oracle: req.Oracle})

	case ActionUnsubscribe:
		c.mu.Lock()
		delete(c.subs, req.Oracle)
		c.mu.Unlock()
		c.enqueue(WSMessage{Type: MessageUnsubscribed, Oracle: req.Oracle})

	default:
		c.enqueue(WSMessage{Type: MessageError, Error: "unknown action " + req.Action})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
