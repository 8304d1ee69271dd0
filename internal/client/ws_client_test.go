package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighted-oracle/internal/api"
	"weighted-oracle/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testWSConfig() *WSClientConfig {
	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.MaxReconnectDelay = 50 * time.Millisecond
	cfg.SubscribeTimeout = 2 * time.Second
	return &cfg
}

func nextEvent(t *testing.T, ch <-chan domain.Event) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

func TestWatcher_StreamsEvents(t *testing.T) {
	ls := newLiveServer(t)
	ctx := context.Background()
	alice := New(ls.url, WithKey(newKey(t)))

	info, err := alice.CreateOracle(ctx, domain.DefaultOracleConfig("", "wgt", "ETH/USD"))
	require.NoError(t, err)

	w, err := NewWatcher(ctx, WSURL(ls.url), testWSConfig())
	require.NoError(t, err)
	defer w.Close()

	one, err := w.Subscribe(ctx, string(info.Oracle))
	require.NoError(t, err)
	all, err := w.Subscribe(ctx, api.AllOracles)
	require.NoError(t, err)

	_, err = w.Subscribe(ctx, string(info.Oracle))
	assert.Error(t, err)

	require.NoError(t, ls.wgt.Mint(alice.Address(), sdkmath.NewInt(10)))
	require.NoError(t, alice.Approve(ctx, "WGT", info.Oracle, sdkmath.NewInt(10)))
	require.NoError(t, alice.Deposit(ctx, info.Oracle, sdkmath.NewInt(10)))

	ev := nextEvent(t, one)
	assert.Equal(t, domain.EventTokenDeposited, ev.Type)
	assert.Equal(t, alice.Address(), ev.Account)
	assert.Equal(t, "10", ev.Amount.String())

	ev = nextEvent(t, all)
	assert.Equal(t, domain.EventTokenDeposited, ev.Type)
	assert.Equal(t, info.Oracle, ev.Oracle)
}

func TestWatcher_SubscribeUnknownOracle(t *testing.T) {
	ls := newLiveServer(t)
	ctx := context.Background()

	w, err := NewWatcher(ctx, WSURL(ls.url), testWSConfig())
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Subscribe(ctx, string(newKey(t).Address))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle not found")
}

func TestWatcher_ReconnectsAndResubscribes(t *testing.T) {
	var conns atomic.Int32
	resubscribed := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		n := conns.Add(1)

		var req api.WSRequest
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		_ = c.WriteJSON(api.WSMessage{Type: api.MessageSubscribed, Oracle: req.Oracle})

		if n == 1 {
			// Drop the first connection right after the ack.
			return
		}
		resubscribed <- req.Oracle

		ev := domain.NewEvent(domain.Address(req.Oracle), domain.EventPaused, 7)
		ev.Sequence = 3
		_ = c.WriteJSON(api.WSMessage{Type: api.MessageEvent, Oracle: req.Oracle, Event: &ev})

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx := context.Background()
	w, err := NewWatcher(ctx, "ws"+strings.TrimPrefix(server.URL, "http"), testWSConfig())
	require.NoError(t, err)
	defer w.Close()

	ch, err := w.Subscribe(ctx, "oracle-a")
	require.NoError(t, err)

	select {
	case oracle := <-resubscribed:
		assert.Equal(t, "oracle-a", oracle)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not resubscribe")
	}

	ev := nextEvent(t, ch)
	assert.Equal(t, domain.EventPaused, ev.Type)
	assert.Equal(t, uint64(3), ev.Sequence)
	assert.GreaterOrEqual(t, w.Reconnects(), uint64(1))
}

func TestWatcher_CloseClosesChannels(t *testing.T) {
	ls := newLiveServer(t)
	ctx := context.Background()

	w, err := NewWatcher(ctx, WSURL(ls.url), testWSConfig())
	require.NoError(t, err)

	ch, err := w.Subscribe(ctx, api.AllOracles)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-ch
	assert.False(t, ok)

	_, err = w.Subscribe(ctx, "x")
	assert.ErrorIs(t, err, ErrClosed)
}
