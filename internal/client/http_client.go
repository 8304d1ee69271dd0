// Package client talks to the oracle HTTP API and its WebSocket event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/api"
	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/signing"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// ErrNoKey is returned by write calls on a client without a signing key.
var ErrNoKey = errors.New("client has no signing key")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status int
	api.ErrorResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d, %s/%d)", e.ErrorResponse.Error, e.Status, e.Codespace, e.Code)
}

// Rejected reports whether the engine refused a state change. Such errors are never retried.
func (e *APIError) Rejected() bool {
	return e.Codespace == oracle.Codespace
}

// Client is an oracle API client. Write calls are signed with the configured key.
type Client struct {
	endpoint    string
	client      *http.Client
	key         *signing.KeyPair
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64

	nonceMu   sync.Mutex
	lastNonce uint64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithKey sets the key used to sign write requests.
func WithKey(key *signing.KeyPair) ClientOption {
	return func(c *Client) {
		c.key = key
	}
}

// New creates a client for the API at endpoint, e.g. http://localhost:8080.
func New(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    strings.TrimRight(endpoint, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the signer address, or empty without a key.
func (c *Client) Address() domain.Address {
	if c.key == nil {
		return ""
	}
	return c.key.Address
}

// nextNonce returns a strictly increasing nonce seeded from the wall clock, so
// separate processes using the same key keep increasing too.
func (c *Client) nextNonce() uint64 {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()
	n := uint64(time.Now().UnixNano())
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return n
}

// call performs a request with retries and exponential backoff. Transport
// errors, 429 and 5xx are retried; a signed request is resent with the same
// nonce, so a duplicate delivery is rejected by the server instead of applied.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any, signed bool, result any) error {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	header := http.Header{}
	if raw != nil {
		header.Set("Content-Type", "application/json")
	}
	if signed {
		if c.key == nil {
			return ErrNoKey
		}
		nonce := c.nextNonce()
		header.Set(signing.HeaderSigner, string(c.key.Address))
		header.Set(signing.HeaderNonce, strconv.FormatUint(nonce, 10))
		header.Set(signing.HeaderSignature, c.key.Sign(signing.Payload(method, path, nonce, raw)))
	}

	target := c.endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if result != nil {
				if err := json.Unmarshal(respBody, result); err != nil {
					return fmt.Errorf("unmarshal result: %w", err)
				}
			}
			return nil
		}

		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.ErrorResponse); err != nil || apiErr.ErrorResponse.Error == "" {
			apiErr.ErrorResponse.Error = strings.TrimSpace(string(respBody))
		}
		if !retryable(apiErr) {
			return apiErr
		}
		lastErr = apiErr
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func retryable(e *APIError) bool {
	if e.Rejected() {
		return false
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, false, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.call(ctx, http.MethodPost, path, nil, body, true, result)
}

func oraclePath(addr domain.Address, parts ...string) string {
	p := "/oracles/" + url.PathEscape(string(addr))
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil, nil)
}

// Status returns server information.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var out api.StatusResponse
	if err := c.get(ctx, "/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tokens lists the hosted token ledgers.
func (c *Client) Tokens(ctx context.Context) ([]api.TokenView, error) {
	var out []api.TokenView
	if err := c.get(ctx, "/tokens", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Balance returns owner's balance of token, given as address or symbol.
func (c *Client) Balance(ctx context.Context, token string, owner domain.Address) (*api.BalanceResponse, error) {
	var out api.BalanceResponse
	path := "/tokens/" + url.PathEscape(token) + "/balances/" + url.PathEscape(string(owner))
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Approve sets spender's allowance over the signer's token balance.
func (c *Client) Approve(ctx context.Context, token string, spender domain.Address, amount sdkmath.Int) error {
	path := "/tokens/" + url.PathEscape(token) + "/approve"
	return c.post(ctx, path, api.ApproveRequest{Spender: spender, Amount: amount}, nil)
}

// Oracles lists every registered oracle.
func (c *Client) Oracles(ctx context.Context) ([]domain.OracleInfo, error) {
	var out []domain.OracleInfo
	if err := c.get(ctx, "/oracles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOracle creates an oracle with the signer as creator.
func (c *Client) CreateOracle(ctx context.Context, cfg domain.OracleConfig) (*domain.OracleInfo, error) {
	var out domain.OracleInfo
	if err := c.post(ctx, "/oracles", api.CreateOracleRequest{Config: cfg}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Oracle returns the public state of one oracle.
func (c *Client) Oracle(ctx context.Context, addr domain.Address) (*api.OracleView, error) {
	var out api.OracleView
	if err := c.get(ctx, oraclePath(addr), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the whole submission history as parallel arrays.
func (c *Client) History(ctx context.Context, addr domain.Address) (*domain.PriceHistory, error) {
	var out domain.PriceHistory
	if err := c.get(ctx, oraclePath(addr, "history"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HistoryRange returns submissions [start, end).
func (c *Client) HistoryRange(ctx context.Context, addr domain.Address, start, end uint64) (*domain.PriceHistory, error) {
	q := url.Values{}
	q.Set("start", strconv.FormatUint(start, 10))
	q.Set("end", strconv.FormatUint(end, 10))
	var out domain.PriceHistory
	if err := c.get(ctx, oraclePath(addr, "history"), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Events returns persisted events with sequence in [from, to].
func (c *Client) Events(ctx context.Context, addr domain.Address, from, to uint64) ([]domain.Event, error) {
	q := url.Values{}
	q.Set("from", strconv.FormatUint(from, 10))
	q.Set("to", strconv.FormatUint(to, 10))
	var out []domain.Event
	if err := c.get(ctx, oraclePath(addr, "events"), q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Submission returns one history record.
func (c *Client) Submission(ctx context.Context, addr domain.Address, index uint64) (*domain.SubmissionRecord, error) {
	var out domain.SubmissionRecord
	if err := c.get(ctx, oraclePath(addr, "submissions", strconv.FormatUint(index, 10)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Participant returns the stake and submission state of account.
func (c *Client) Participant(ctx context.Context, addr, account domain.Address) (*api.ParticipantView, error) {
	var out api.ParticipantView
	if err := c.get(ctx, oraclePath(addr, "participants", string(account)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Votes returns the governance state of target, including voter's ballots when voter is set.
func (c *Client) Votes(ctx context.Context, addr, target, voter domain.Address) (*api.VotesView, error) {
	var q url.Values
	if voter != "" {
		q = url.Values{"voter": {string(voter)}}
	}
	var out api.VotesView
	if err := c.get(ctx, oraclePath(addr, "votes", string(target)), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit submits value as the signer.
func (c *Client) Submit(ctx context.Context, addr domain.Address, value sdkmath.Int) (*domain.SubmissionRecord, error) {
	var out domain.SubmissionRecord
	if err := c.post(ctx, oraclePath(addr, api.OpSubmit), api.SubmitRequest{Value: value}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Read returns the aggregated value, or the latest raw submission when latest is set.
func (c *Client) Read(ctx context.Context, addr domain.Address, latest bool) (sdkmath.Int, error) {
	op := api.OpRead
	if latest {
		op = api.OpReadLatest
	}
	var out api.ReadResponse
	if err := c.post(ctx, oraclePath(addr, op), nil, &out); err != nil {
		return sdkmath.Int{}, err
	}
	return out.Value, nil
}

// Deposit stakes amount of the weight token. The oracle must be approved as spender.
func (c *Client) Deposit(ctx context.Context, addr domain.Address, amount sdkmath.Int) error {
	return c.post(ctx, oraclePath(addr, api.OpDeposit), api.AmountRequest{Amount: amount}, nil)
}

// Withdraw returns amount of unlocked stake to the signer.
func (c *Client) Withdraw(ctx context.Context, addr domain.Address, amount sdkmath.Int) error {
	return c.post(ctx, oraclePath(addr, api.OpWithdraw), api.AmountRequest{Amount: amount}, nil)
}

// Fund sends amount of native currency to the oracle's reward balance.
func (c *Client) Fund(ctx context.Context, addr domain.Address, amount sdkmath.Int) error {
	return c.post(ctx, oraclePath(addr, api.OpFund), api.AmountRequest{Amount: amount}, nil)
}

// Vote casts the signer's weight on a blacklist or whitelist ballot.
func (c *Client) Vote(ctx context.Context, addr domain.Address, kind domain.BallotKind, target domain.Address) error {
	op := api.OpVoteBlacklist
	if kind == domain.BallotWhitelist {
		op = api.OpVoteWhitelist
	}
	return c.post(ctx, oraclePath(addr, op), api.VoteRequest{Target: target}, nil)
}

// TransferOwnership hands the oracle to newOwner.
func (c *Client) TransferOwnership(ctx context.Context, addr, newOwner domain.Address) error {
	return c.post(ctx, oraclePath(addr, api.OpTransferOwnership), api.TransferOwnershipRequest{NewOwner: newOwner}, nil)
}

// RenounceOwnership leaves the oracle without an owner.
func (c *Client) RenounceOwnership(ctx context.Context, addr domain.Address) error {
	return c.post(ctx, oraclePath(addr, api.OpRenounceOwnership), nil, nil)
}

// Pause stops submissions, deposits and votes.
func (c *Client) Pause(ctx context.Context, addr domain.Address) error {
	return c.post(ctx, oraclePath(addr, api.OpPause), nil, nil)
}

// Unpause resumes a paused oracle.
func (c *Client) Unpause(ctx context.Context, addr domain.Address) error {
	return c.post(ctx, oraclePath(addr, api.OpUnpause), nil, nil)
}
