package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighted-oracle/internal/api"
	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/idhash"
	"weighted-oracle/internal/ingestion"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/signing"
	"weighted-oracle/internal/storage/memory"
	"weighted-oracle/internal/token"
)

func newKey(t *testing.T) *signing.KeyPair {
	t.Helper()
	kp, err := signing.GenerateKey()
	require.NoError(t, err)
	return kp
}

func writeError(w http.ResponseWriter, status int, codespace string, code uint32, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Code: code, Codespace: codespace, Error: msg})
}

func fastClient(url string, opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithRetryDelay(time.Millisecond), WithMaxDelay(5 * time.Millisecond)}, opts...)
	return New(url, opts...)
}

func TestClient_RetriesWithSameNonce(t *testing.T) {
	var mu sync.Mutex
	var nonces []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		nonces = append(nonces, r.Header.Get(signing.HeaderNonce))
		n := len(nonces)
		mu.Unlock()

		if n < 3 {
			writeError(w, http.StatusServiceUnavailable, "", 1, "unavailable")
			return
		}
		_ = json.NewEncoder(w).Encode(api.OKResponse{OK: true})
	}))
	defer server.Close()

	c := fastClient(server.URL, WithKey(newKey(t)))
	require.NoError(t, c.Deposit(context.Background(), "oracle", sdkmath.NewInt(5)))

	require.Len(t, nonces, 3)
	assert.NotEmpty(t, nonces[0])
	assert.Equal(t, nonces[0], nonces[1])
	assert.Equal(t, nonces[0], nonces[2])
}

func TestClient_DoesNotRetryRejectedOperation(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusBadGateway, oracle.Codespace, oracle.ErrTokenTransferFailed.ABCICode(), "transfer failed")
	}))
	defer server.Close()

	c := fastClient(server.URL, WithKey(newKey(t)))
	err := c.Withdraw(context.Background(), "oracle", sdkmath.NewInt(5))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Rejected())
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusNotFound, "", 0, "oracle not found")
	}))
	defer server.Close()

	_, err := fastClient(server.URL).Oracle(context.Background(), "missing")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "oracle not found", apiErr.ErrorResponse.Error)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_MaxRetriesExceeded(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := fastClient(server.URL, WithMaxRetries(2)).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ContextCancelStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := New(server.URL, WithRetryDelay(time.Second), WithMaxRetries(10))
	err := c.Health(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_WriteRequiresKey(t *testing.T) {
	c := New("http://127.0.0.1:1")
	err := c.Pause(context.Background(), "oracle")
	assert.True(t, errors.Is(err, ErrNoKey))
	assert.Empty(t, c.Address())
}

func TestClient_NoncesIncrease(t *testing.T) {
	c := New("http://127.0.0.1:1")
	prev := c.nextNonce()
	for i := 0; i < 1000; i++ {
		n := c.nextNonce()
		require.Greater(t, n, prev)
		prev = n
	}
}

func TestWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/ws", WSURL("http://localhost:8080/"))
	assert.Equal(t, "wss://oracle.example/ws", WSURL("https://oracle.example"))
	assert.Equal(t, "ws://host/ws", WSURL("ws://host/ws"))
}

// liveServer runs the real API with in-memory stores.
type liveServer struct {
	url   string
	clock *oracle.ManualClock
	wgt   *token.Ledger
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()

	factory, err := idhash.FactoryAddress("client-test")
	require.NoError(t, err)
	wgt := token.NewLedger("wgt", "WGT")
	bank := token.NewBank(token.NewLedger("native", "NAT"))
	require.NoError(t, bank.Add(wgt))

	var reg *registry.Registry
	hub := api.NewHub(api.HubOptions{
		Lookup: func(addr domain.Address) error {
			_, err := reg.Get(addr)
			return err
		},
		Logger: zerolog.Nop(),
	})
	go hub.Run()
	t.Cleanup(hub.Stop)

	events := memory.NewEventStore()
	rec := ingestion.NewRecorder(ingestion.RecorderOptions{
		Stores:      ingestion.Stores{Events: events},
		Broadcaster: hub,
	})

	clock := oracle.NewManualClock(1_700_000_000)
	reg, err = registry.New(registry.Options{Factory: factory, Bank: bank, Clock: clock, Sink: rec, Listener: rec})
	require.NoError(t, err)

	srv := httptest.NewServer(api.New(api.Options{
		Registry: reg,
		Hub:      hub,
		Events:   events,
		Logger:   zerolog.Nop(),
	}).Handler())
	t.Cleanup(srv.Close)

	return &liveServer{url: srv.URL, clock: clock, wgt: wgt}
}

func TestClient_AgainstServer(t *testing.T) {
	ls := newLiveServer(t)
	ctx := context.Background()
	alice := New(ls.url, WithKey(newKey(t)))

	require.NoError(t, alice.Health(ctx))

	info, err := alice.CreateOracle(ctx, domain.DefaultOracleConfig("", "wgt", "ETH/USD"))
	require.NoError(t, err)
	assert.Equal(t, alice.Address(), info.Config.Owner)

	require.NoError(t, ls.wgt.Mint(alice.Address(), sdkmath.NewInt(100)))
	require.NoError(t, alice.Approve(ctx, "WGT", info.Oracle, sdkmath.NewInt(100)))
	require.NoError(t, alice.Deposit(ctx, info.Oracle, sdkmath.NewInt(100)))
	ls.clock.Advance(domain.DefaultDepositLockingPeriod)

	_, err = alice.Read(ctx, info.Oracle, false)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Rejected())
	assert.Equal(t, oracle.ErrNoValue.ABCICode(), apiErr.Code)

	rec, err := alice.Submit(ctx, info.Oracle, sdkmath.NewInt(2500))
	require.NoError(t, err)
	assert.Equal(t, "2500", rec.AggregatedPrice.String())

	v, err := alice.Read(ctx, info.Oracle, true)
	require.NoError(t, err)
	assert.Equal(t, "2500", v.String())

	view, err := alice.Oracle(ctx, info.Oracle)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), view.HistoryLength)
	assert.Equal(t, "100", view.TotalDeposited.String())

	h, err := alice.HistoryRange(ctx, info.Oracle, 0, 1)
	require.NoError(t, err)
	require.Len(t, h.LatestValues, 1)

	sub, err := alice.Submission(ctx, info.Oracle, 0)
	require.NoError(t, err)
	assert.Equal(t, alice.Address(), sub.Submitter)

	p, err := alice.Participant(ctx, info.Oracle, alice.Address())
	require.NoError(t, err)
	assert.Equal(t, "100", p.Weight.String())

	bob := newKey(t)
	require.NoError(t, alice.Vote(ctx, info.Oracle, domain.BallotBlacklist, bob.Address))
	votes, err := alice.Votes(ctx, info.Oracle, bob.Address, alice.Address())
	require.NoError(t, err)
	assert.True(t, votes.Blacklisted)
	require.NotNil(t, votes.Voter)
	assert.Equal(t, "100", votes.Voter.BlacklistWeight.String())

	require.NoError(t, alice.Pause(ctx, info.Oracle))
	require.NoError(t, alice.Unpause(ctx, info.Oracle))

	events, err := alice.Events(ctx, info.Oracle, 1, 100)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventTokenDeposited, events[0].Type)
	assert.Equal(t, domain.EventUnpaused, events[len(events)-1].Type)

	list, err := alice.Oracles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	bal, err := alice.Balance(ctx, "WGT", info.Oracle)
	require.NoError(t, err)
	assert.Equal(t, "100", bal.Balance.String())

	status, err := alice.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Oracles)
}
