package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/idhash"
	"weighted-oracle/internal/ingestion"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/signing"
	"weighted-oracle/internal/storage/memory"
	"weighted-oracle/internal/token"
)

type testEnv struct {
	t      *testing.T
	srv    *httptest.Server
	reg    *registry.Registry
	hub    *Hub
	clock  *oracle.ManualClock
	wgt    *token.Ledger
	nonces map[domain.Address]uint64
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	factory, err := idhash.FactoryAddress("api-test")
	require.NoError(t, err)
	nat := token.NewLedger("native", "NAT")
	wgt := token.NewLedger("wgt", "WGT")
	bank := token.NewBank(nat)
	require.NoError(t, bank.Add(wgt))

	var reg *registry.Registry
	hub := NewHub(HubOptions{
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
		Stores: ingestion.Stores{
			Oracles:      memory.NewOracleStore(),
			Events:       events,
			Submissions:  memory.NewSubmissionStore(),
			Snapshots:    memory.NewSnapshotStore(),
			PriceHistory: memory.NewPriceHistoryStore(),
		},
		Broadcaster: hub,
	})

	clock := oracle.NewManualClock(1_700_000_000)
	reg, err = registry.New(registry.Options{
		Factory:  factory,
		Bank:     bank,
		Clock:    clock,
		Sink:     rec,
		Listener: rec,
	})
	require.NoError(t, err)

	opts.Registry = reg
	opts.Hub = hub
	opts.Events = events
	opts.Logger = zerolog.Nop()
	srv := httptest.NewServer(New(opts).Handler())
	t.Cleanup(srv.Close)

	return &testEnv{
		t:      t,
		srv:    srv,
		reg:    reg,
		hub:    hub,
		clock:  clock,
		wgt:    wgt,
		nonces: make(map[domain.Address]uint64),
	}
}

func newKey(t *testing.T) *signing.KeyPair {
	t.Helper()
	kp, err := signing.GenerateKey()
	require.NoError(t, err)
	return kp
}

// signed sends a request signed by kp with the next nonce.
func (e *testEnv) signed(kp *signing.KeyPair, path string, body any) *http.Response {
	e.t.Helper()
	e.nonces[kp.Address]++
	return e.signedWithNonce(kp, path, body, e.nonces[kp.Address])
}

func (e *testEnv) signedWithNonce(kp *signing.KeyPair, path string, body any, nonce uint64) *http.Response {
	e.t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(e.t, err)
	}
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(raw))
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signing.HeaderSigner, string(kp.Address))
	req.Header.Set(signing.HeaderNonce, strconv.FormatUint(nonce, 10))
	req.Header.Set(signing.HeaderSignature, kp.Sign(signing.Payload(http.MethodPost, path, nonce, raw)))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	return resp
}

func (e *testEnv) get(path string) *http.Response {
	e.t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(e.t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response, want int) T {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, want, resp.StatusCode, "body: %s", raw)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// createFundedOracle creates an oracle owned by owner and stakes 100 WGT for staker.
func (e *testEnv) createFundedOracle(owner, staker *signing.KeyPair) domain.OracleInfo {
	e.t.Helper()
	cfg := domain.DefaultOracleConfig("", "wgt", "ETH/USD")
	info := decodeBody[domain.OracleInfo](e.t, e.signed(owner, "/oracles", CreateOracleRequest{Config: cfg}), http.StatusCreated)

	require.NoError(e.t, e.wgt.Mint(staker.Address, sdkmath.NewInt(100)))
	decodeBody[OKResponse](e.t, e.signed(staker, "/tokens/WGT/approve", ApproveRequest{Spender: info.Oracle, Amount: sdkmath.NewInt(100)}), http.StatusOK)
	decodeBody[OKResponse](e.t, e.signed(staker, "/oracles/"+string(info.Oracle)+"/deposit", AmountRequest{Amount: sdkmath.NewInt(100)}), http.StatusOK)
	e.clock.Advance(domain.DefaultDepositLockingPeriod)
	return info
}

func TestHealthAndStatus(t *testing.T) {
	e := newTestEnv(t, Options{})

	health := decodeBody[map[string]string](t, e.get("/health"), http.StatusOK)
	assert.Equal(t, "ok", health["status"])

	status := decodeBody[StatusResponse](t, e.get("/status"), http.StatusOK)
	assert.Equal(t, e.reg.Factory(), status.Factory)
	assert.Equal(t, 0, status.Oracles)
	assert.Equal(t, 2, status.Tokens)

	tokens := decodeBody[[]TokenView](t, e.get("/tokens"), http.StatusOK)
	require.Len(t, tokens, 2)
	assert.Equal(t, "NAT", tokens[0].Symbol)
}

func TestOracleLifecycle(t *testing.T) {
	e := newTestEnv(t, Options{})
	alice := newKey(t)
	info := e.createFundedOracle(alice, alice)
	base := "/oracles/" + string(info.Oracle)

	assert.Equal(t, alice.Address, info.Config.Owner)

	rec := decodeBody[domain.SubmissionRecord](t, e.signed(alice, base+"/submit", SubmitRequest{Value: sdkmath.NewInt(2500)}), http.StatusOK)
	assert.Equal(t, "2500", rec.AggregatedPrice.String())
	assert.Equal(t, uint64(0), rec.Index)
	assert.True(t, rec.Final)

	read := decodeBody[ReadResponse](t, e.signed(alice, base+"/read", nil), http.StatusOK)
	assert.Equal(t, "2500", read.Value.String())

	view := decodeBody[OracleView](t, e.get(base), http.StatusOK)
	assert.Equal(t, info.Oracle, view.Info.Oracle)
	assert.Equal(t, "100", view.TotalDeposited.String())
	assert.Equal(t, uint64(1), view.HistoryLength)
	assert.Equal(t, "2500", view.Consensus.AggregatedPrice.String())

	history := decodeBody[domain.PriceHistory](t, e.get(base+"/history"), http.StatusOK)
	require.Len(t, history.Timestamps, 1)
	assert.Equal(t, "2500", history.LatestValues[0].String())

	sub := decodeBody[domain.SubmissionRecord](t, e.get(base+"/submissions/0"), http.StatusOK)
	assert.Equal(t, alice.Address, sub.Submitter)

	p := decodeBody[ParticipantView](t, e.get(base+"/participants/"+string(alice.Address)), http.StatusOK)
	assert.True(t, p.Participant.LockedTokens.IsZero())
	assert.Equal(t, "100", p.Participant.LockedForWithdrawal.String(), "the submission restarted the withdrawal lock")
	assert.Equal(t, "100", p.Weight.String())
	assert.Equal(t, "2500", p.Submitter.LastSubmittedPrice.String())

	events := decodeBody[[]domain.Event](t, e.get(base+"/events"), http.StatusOK)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventTokenDeposited, events[0].Type)
	assert.Equal(t, domain.EventPriceSubmitted, events[1].Type)
	assert.Equal(t, domain.EventValueRead, events[2].Type)

	list := decodeBody[[]domain.OracleInfo](t, e.get("/oracles"), http.StatusOK)
	require.Len(t, list, 1)

	bal := decodeBody[BalanceResponse](t, e.get("/tokens/WGT/balances/"+string(info.Oracle)), http.StatusOK)
	assert.Equal(t, "100", bal.Balance.String())
}

func TestGovernanceViews(t *testing.T) {
	e := newTestEnv(t, Options{})
	alice := newKey(t)
	bob := newKey(t)
	info := e.createFundedOracle(alice, alice)
	base := "/oracles/" + string(info.Oracle)

	decodeBody[OKResponse](t, e.signed(alice, base+"/voteBlacklist", VoteRequest{Target: bob.Address}), http.StatusOK)

	votes := decodeBody[VotesView](t, e.get(base+"/votes/"+string(bob.Address)+"?voter="+string(alice.Address)), http.StatusOK)
	assert.True(t, votes.Blacklisted)
	assert.Equal(t, "100", votes.BlacklistVotes.String())
	require.NotNil(t, votes.Voter)
	assert.Equal(t, []domain.Address{bob.Address}, votes.Voter.BlacklistTargets)
	assert.Equal(t, "100", votes.Voter.BlacklistWeight.String())
}

func TestErrorMapping(t *testing.T) {
	e := newTestEnv(t, Options{})
	alice := newKey(t)
	bob := newKey(t)
	info := e.createFundedOracle(alice, alice)
	base := "/oracles/" + string(info.Oracle)

	resp := decodeBody[ErrorResponse](t, e.signed(bob, base+"/pause", nil), http.StatusForbidden)
	assert.Equal(t, oracle.Codespace, resp.Codespace)
	assert.Equal(t, oracle.ErrUnauthorized.ABCICode(), resp.Code)

	resp = decodeBody[ErrorResponse](t, e.signed(alice, base+"/deposit", AmountRequest{Amount: sdkmath.ZeroInt()}), http.StatusBadRequest)
	assert.Equal(t, oracle.ErrInvalidAmount.ABCICode(), resp.Code)

	resp = decodeBody[ErrorResponse](t, e.signed(bob, base+"/submit", SubmitRequest{Value: sdkmath.NewInt(1)}), http.StatusConflict)
	assert.Equal(t, oracle.ErrZeroWeight.ABCICode(), resp.Code)

	resp = decodeBody[ErrorResponse](t, e.signed(bob, base+"/readLatest", nil), http.StatusConflict)
	assert.Equal(t, oracle.ErrNoValue.ABCICode(), resp.Code)

	decodeBody[ErrorResponse](t, e.signed(alice, base+"/explode", nil), http.StatusBadRequest)
	decodeBody[ErrorResponse](t, e.signed(alice, base+"/submit", map[string]string{"bogus": "1"}), http.StatusBadRequest)
	decodeBody[ErrorResponse](t, e.get("/oracles/"+string(bob.Address)), http.StatusNotFound)
	decodeBody[ErrorResponse](t, e.get("/oracles/not-an-address"), http.StatusBadRequest)
	decodeBody[ErrorResponse](t, e.get(base+"/submissions/7"), http.StatusNotFound)
	decodeBody[ErrorResponse](t, e.get(base+"/history?start=2&end=1"), http.StatusBadRequest)
}

func TestSignedRequests_Rejected(t *testing.T) {
	e := newTestEnv(t, Options{})
	alice := newKey(t)
	mallory := newKey(t)

	resp, err := http.Post(e.srv.URL+"/oracles", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	body := decodeBody[ErrorResponse](t, resp, http.StatusUnauthorized)
	assert.Equal(t, Codespace, body.Codespace)

	// Signature by mallory presented as alice.
	raw := []byte(`{"config":{}}`)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/oracles", bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set(signing.HeaderSigner, string(alice.Address))
	req.Header.Set(signing.HeaderNonce, "1")
	req.Header.Set(signing.HeaderSignature, mallory.Sign(signing.Payload(http.MethodPost, "/oracles", 1, raw)))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	decodeBody[ErrorResponse](t, resp, http.StatusUnauthorized)

	cfg := domain.DefaultOracleConfig("", "wgt", "ETH/USD")
	decodeBody[domain.OracleInfo](t, e.signedWithNonce(alice, "/oracles", CreateOracleRequest{Config: cfg}, 5), http.StatusCreated)
	decodeBody[ErrorResponse](t, e.signedWithNonce(alice, "/oracles", CreateOracleRequest{Config: cfg}, 5), http.StatusUnauthorized)
	decodeBody[ErrorResponse](t, e.signedWithNonce(alice, "/oracles", CreateOracleRequest{Config: cfg}, 4), http.StatusUnauthorized)
}

func TestRateLimit(t *testing.T) {
	e := newTestEnv(t, Options{WriteRate: 0.0001, WriteBurst: 1})
	alice := newKey(t)
	cfg := domain.DefaultOracleConfig("", "wgt", "ETH/USD")

	decodeBody[domain.OracleInfo](t, e.signed(alice, "/oracles", CreateOracleRequest{Config: cfg}), http.StatusCreated)
	body := decodeBody[ErrorResponse](t, e.signed(alice, "/oracles", CreateOracleRequest{Config: cfg}), http.StatusTooManyRequests)
	assert.Equal(t, ErrRateLimited.ABCICode(), body.Code)

	// Limits are per signer.
	bob := newKey(t)
	decodeBody[domain.OracleInfo](t, e.signed(bob, "/oracles", CreateOracleRequest{Config: cfg}), http.StatusCreated)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{oracle.ErrUnauthorized, http.StatusForbidden},
		{errorsmod.Wrap(oracle.ErrInvalidRange, "x"), http.StatusBadRequest},
		{oracle.ErrWithdrawalLocked, http.StatusConflict},
		{oracle.ErrReentrantCall, http.StatusConflict},
		{oracle.ErrTokenTransferFailed, http.StatusBadGateway},
		{fmt.Errorf("wrap: %w", registry.ErrOracleNotFound), http.StatusNotFound},
		{signing.ErrStaleNonce, http.StatusUnauthorized},
		{ErrRateLimited, http.StatusTooManyRequests},
		{HTTPError(oracle.ErrInvalidRange, http.StatusNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(tt.err), tt.err.Error())
	}
}

func TestWriteError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("database password is hunter2"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body.Error)
}
