package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"weighted-oracle/internal/api"
	"weighted-oracle/internal/domain"
)

// ErrClosed is returned by a closed Watcher.
var ErrClosed = errors.New("watcher closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription ack.
	SubscribeTimeout time.Duration
	// Buffer is the per-subscription channel capacity.
	Buffer int
	// Logger receives connection state changes.
	Logger zerolog.Logger
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  10 * time.Second,
		Buffer:            1024,
		Logger:            zerolog.Nop(),
	}
}

// WSURL converts an HTTP API endpoint into its event stream URL.
func WSURL(endpoint string) string {
	u := strings.TrimRight(endpoint, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	if !strings.HasSuffix(u, "/ws") {
		u += "/ws"
	}
	return u
}

// Watcher streams oracle events over the API WebSocket. It reconnects with
// exponential backoff and resubscribes; events emitted while disconnected are
// not replayed and can be fetched with Client.Events.
type Watcher struct {
	endpoint string
	config   WSClientConfig
	logger   zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// subs maps an oracle address, or api.AllOracles, to its channel
	subs   map[string]chan domain.Event
	subsMu sync.RWMutex

	// pending maps an oracle address to the waiter for its ack
	pending   map[string]chan error
	pendingMu sync.Mutex

	done         chan struct{}
	wg           sync.WaitGroup
	reconnecting atomic.Bool
	reconnects   atomic.Uint64
}

// NewWatcher connects to the event stream at endpoint (ws:// or wss://).
func NewWatcher(ctx context.Context, endpoint string, config *WSClientConfig) (*Watcher, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultWSConfig().Buffer
	}

	w := &Watcher{
		endpoint: endpoint,
		config:   cfg,
		logger:   cfg.Logger.With().Str("component", "watcher").Logger(),
		subs:     make(map[string]chan domain.Event),
		pending:  make(map[string]chan error),
		done:     make(chan struct{}),
	}

	if err := w.connect(ctx); err != nil {
		return nil, err
	}

	w.wg.Add(2)
	go w.readLoop()
	go w.pingLoop()

	return w, nil
}

func (w *Watcher) connect(ctx context.Context) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	// Server pings keep an idle stream under ReadTimeout.
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(w.config.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(w.config.WriteTimeout))
	})

	w.conn = conn
	return nil
}

// Reconnects returns how many times the connection was re-established.
func (w *Watcher) Reconnects() uint64 {
	return w.reconnects.Load()
}

// Subscribe streams the events of one oracle, or of every oracle for
// api.AllOracles. The channel is closed by Close.
func (w *Watcher) Subscribe(ctx context.Context, oracle string) (<-chan domain.Event, error) {
	ch := make(chan domain.Event, w.config.Buffer)
	w.subsMu.Lock()
	if _, exists := w.subs[oracle]; exists {
		w.subsMu.Unlock()
		return nil, fmt.Errorf("already subscribed to %s", oracle)
	}
	w.subs[oracle] = ch
	w.subsMu.Unlock()

	if err := w.subscribe(ctx, oracle); err != nil {
		w.subsMu.Lock()
		if w.subs[oracle] == ch {
			delete(w.subs, oracle)
		}
		w.subsMu.Unlock()
		return nil, err
	}
	return ch, nil
}

// subscribe sends a subscribe request and waits for its ack.
func (w *Watcher) subscribe(ctx context.Context, oracle string) error {
	if w.closed.Load() {
		return ErrClosed
	}

	ack := make(chan error, 1)
	w.pendingMu.Lock()
	if _, busy := w.pending[oracle]; busy {
		w.pendingMu.Unlock()
		return fmt.Errorf("subscription to %s in progress", oracle)
	}
	w.pending[oracle] = ack
	w.pendingMu.Unlock()

	drop := func() {
		w.pendingMu.Lock()
		delete(w.pending, oracle)
		w.pendingMu.Unlock()
	}

	if err := w.write(api.WSRequest{Action: api.ActionSubscribe, Oracle: oracle}); err != nil {
		drop()
		return err
	}

	select {
	case err := <-ack:
		return err
	case <-time.After(w.config.SubscribeTimeout):
		drop()
		return fmt.Errorf("subscription timeout after %s", w.config.SubscribeTimeout)
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		drop()
		return ctx.Err()
	}
}

func (w *Watcher) write(req api.WSRequest) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("not connected")
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	if err := w.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write %s: %w", req.Action, err)
	}
	return nil
}

// Close closes the connection and every subscription channel.
func (w *Watcher) Close() error {
	if w.closed.Swap(true) {
		return nil
	}

	close(w.done)

	w.connMu.Lock()
	if w.conn != nil {
		_ = w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = w.conn.Close()
	}
	w.connMu.Unlock()

	w.wg.Wait()

	w.subsMu.Lock()
	for oracle, ch := range w.subs {
		close(ch)
		delete(w.subs, oracle)
	}
	w.subsMu.Unlock()
	return nil
}

// readLoop reads messages and dispatches them to subscribers.
func (w *Watcher) readLoop() {
	defer w.wg.Done()

	reconnectDelay := w.config.ReconnectDelay
	var failed *websocket.Conn

	for !w.closed.Load() {
		w.connMu.Lock()
		conn := w.conn
		w.connMu.Unlock()

		if conn == nil || conn == failed {
			reconnectDelay = w.scheduleReconnect(conn, reconnectDelay, nil)
			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		_ = conn.SetReadDeadline(time.Now().Add(w.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if w.closed.Load() {
				return
			}

			failed = conn
			reconnectDelay = w.scheduleReconnect(conn, reconnectDelay, err)

			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = w.config.ReconnectDelay
		w.handleMessage(message)
	}
}

// scheduleReconnect starts a reconnect unless one is running and returns the
// next backoff delay.
func (w *Watcher) scheduleReconnect(dead *websocket.Conn, delay time.Duration, cause error) time.Duration {
	if w.reconnecting.Swap(true) {
		return delay
	}
	w.logger.Warn().Err(cause).Dur("delay", delay).Msg("connection lost, reconnecting")
	w.wg.Add(1)
	go w.reconnect(dead, delay)

	next := delay * 2
	if next > w.config.MaxReconnectDelay {
		next = w.config.MaxReconnectDelay
	}
	return next
}

// reconnect replaces the dead connection and resubscribes.
func (w *Watcher) reconnect(dead *websocket.Conn, delay time.Duration) {
	defer w.wg.Done()
	defer w.reconnecting.Store(false)

	select {
	case <-w.done:
		return
	case <-time.After(delay):
	}

	w.connMu.Lock()
	if w.conn != nil && w.conn == dead {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.connect(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("reconnect failed")
		return
	}
	w.reconnects.Add(1)
	w.logger.Info().Str("endpoint", w.endpoint).Msg("reconnected")

	w.resubscribeAll()
}

// resubscribeAll renews every active subscription on the new connection.
// Acks are consumed by readLoop, so requests are sent without waiting.
func (w *Watcher) resubscribeAll() {
	w.subsMu.RLock()
	oracles := make([]string, 0, len(w.subs))
	for oracle := range w.subs {
		oracles = append(oracles, oracle)
	}
	w.subsMu.RUnlock()

	for _, oracle := range oracles {
		if err := w.write(api.WSRequest{Action: api.ActionSubscribe, Oracle: oracle}); err != nil {
			w.logger.Warn().Err(err).Str("oracle", oracle).Msg("resubscribe failed")
		}
	}
}

func (w *Watcher) handleMessage(message []byte) {
	var msg api.WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		w.logger.Debug().Err(err).Msg("malformed message")
		return
	}

	switch msg.Type {
	case api.MessageSubscribed:
		w.ack(msg.Oracle, nil)

	case api.MessageError:
		if !w.ack(msg.Oracle, errors.New(msg.Error)) {
			w.logger.Warn().Str("oracle", msg.Oracle).Str("error", msg.Error).Msg("server error")
		}

	case api.MessageEvent:
		if msg.Event == nil {
			return
		}
		w.dispatch(msg.Oracle, *msg.Event)
		w.dispatch(api.AllOracles, *msg.Event)
	}
}

// ack resolves a pending subscribe. It reports whether one was waiting.
func (w *Watcher) ack(oracle string, err error) bool {
	w.pendingMu.Lock()
	ch, ok := w.pending[oracle]
	if ok {
		delete(w.pending, oracle)
	}
	w.pendingMu.Unlock()

	if ok {
		ch <- err
	}
	return ok
}

func (w *Watcher) dispatch(key string, ev domain.Event) {
	w.subsMu.RLock()
	ch, ok := w.subs[key]
	w.subsMu.RUnlock()
	if !ok {
		return
	}
	select {
	case ch <- ev:
	case <-w.done:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (w *Watcher) pingLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.connMu.Lock()
			if w.conn != nil {
				_ = w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
				_ = w.conn.WriteMessage(websocket.PingMessage, nil)
			}
			w.connMu.Unlock()
		}
	}
}
