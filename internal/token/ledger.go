// Package token implements in-process fungible token ledgers.
package token

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
)

// Ledger errors.
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrUnknownToken          = errors.New("unknown token")
)

// TransferHook is invoked after a transfer commits, outside the ledger lock.
// ctx is the context of the operation that caused the transfer.
type TransferHook func(ctx context.Context, from, to domain.Address, amount sdkmath.Int)

// Ledger is a fungible token with balances and allowances.
type Ledger struct {
	address domain.Address
	symbol  string

	mu         sync.RWMutex
	balances   map[domain.Address]sdkmath.Int
	allowances map[domain.Address]map[domain.Address]sdkmath.Int // owner -> spender -> amount
	supply     sdkmath.Int
	hooks      []TransferHook
}

// NewLedger creates an empty ledger.
func NewLedger(address domain.Address, symbol string) *Ledger {
	return &Ledger{
		address:    address,
		symbol:     symbol,
		balances:   make(map[domain.Address]sdkmath.Int),
		allowances: make(map[domain.Address]map[domain.Address]sdkmath.Int),
		supply:     sdkmath.ZeroInt(),
	}
}

// Address returns the token address.
func (l *Ledger) Address() domain.Address { return l.address }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// OnTransfer registers a hook called after every successful transfer.
func (l *Ledger) OnTransfer(hook TransferHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// Mint credits amount to account.
func (l *Ledger) Mint(account domain.Address, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[account] = l.balanceLocked(account).Add(amount)
	l.supply = l.supply.Add(amount)
	return nil
}

// BalanceOf returns the balance of account.
func (l *Ledger) BalanceOf(account domain.Address) sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceLocked(account)
}

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}

// Allowance returns how much spender may move out of owner's balance.
func (l *Ledger) Allowance(owner, spender domain.Address) sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowanceLocked(owner, spender)
}

// Approve sets spender's allowance over owner's balance.
func (l *Ledger) Approve(owner, spender domain.Address, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[domain.Address]sdkmath.Int)
	}
	l.allowances[owner][spender] = amount
	return nil
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(ctx context.Context, from, to domain.Address, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	if err := l.moveLocked(from, to, amount); err != nil {
		l.mu.Unlock()
		return err
	}
	hooks := l.hooks
	l.mu.Unlock()

	l.runHooks(ctx, hooks, from, to, amount)
	return nil
}

// TransferFrom moves amount out of from's balance on behalf of spender, consuming allowance.
func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to domain.Address, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	allowance := l.allowanceLocked(from, spender)
	if allowance.LT(amount) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s allowed, %s requested", ErrInsufficientAllowance, allowance, amount)
	}
	if err := l.moveLocked(from, to, amount); err != nil {
		l.mu.Unlock()
		return err
	}
	l.allowances[from][spender] = allowance.Sub(amount)
	hooks := l.hooks
	l.mu.Unlock()

	l.runHooks(ctx, hooks, from, to, amount)
	return nil
}

// Holders returns all accounts with a non-zero balance, sorted by address.
func (l *Ledger) Holders() []domain.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()

	holders := make([]domain.Address, 0, len(l.balances))
	for addr, bal := range l.balances {
		if bal.IsPositive() {
			holders = append(holders, addr)
		}
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i] < holders[j] })
	return holders
}

func (l *Ledger) moveLocked(from, to domain.Address, amount sdkmath.Int) error {
	balance := l.balanceLocked(from)
	if balance.LT(amount) {
		return fmt.Errorf("%w: %s has %s %s, needs %s", ErrInsufficientBalance, from, balance, l.symbol, amount)
	}
	l.balances[from] = balance.Sub(amount)
	l.balances[to] = l.balanceLocked(to).Add(amount)
	return nil
}

func (l *Ledger) balanceLocked(account domain.Address) sdkmath.Int {
	if bal, ok := l.balances[account]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

func (l *Ledger) allowanceLocked(owner, spender domain.Address) sdkmath.Int {
	if spenders, ok := l.allowances[owner]; ok {
		if amt, ok := spenders[spender]; ok {
			return amt
		}
	}
	return sdkmath.ZeroInt()
}

func (l *Ledger) runHooks(ctx context.Context, hooks []TransferHook, from, to domain.Address, amount sdkmath.Int) {
	for _, hook := range hooks {
		hook(ctx, from, to, amount)
	}
}
