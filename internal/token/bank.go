package token

import (
	"fmt"
	"sort"
	"sync"

	"weighted-oracle/internal/domain"
)

// Bank holds every token ledger hosted by the process, keyed by token address.
type Bank struct {
	mu      sync.RWMutex
	ledgers map[domain.Address]*Ledger
	native  *Ledger
}

// NewBank creates a bank whose native currency is kept in native.
func NewBank(native *Ledger) *Bank {
	b := &Bank{ledgers: make(map[domain.Address]*Ledger), native: native}
	b.ledgers[native.Address()] = native
	return b
}

// Native returns the native currency ledger.
func (b *Bank) Native() *Ledger {
	return b.native
}

// Add registers a token ledger. Fails if the address is already taken.
func (b *Bank) Add(l *Ledger) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.ledgers[l.Address()]; exists {
		return fmt.Errorf("token %s already registered", l.Address())
	}
	b.ledgers[l.Address()] = l
	return nil
}

// Ledger returns the ledger for a token address.
func (b *Bank) Ledger(addr domain.Address) (*Ledger, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	l, ok := b.ledgers[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr)
	}
	return l, nil
}

// Ledgers returns all ledgers sorted by symbol.
func (b *Bank) Ledgers() []*Ledger {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*Ledger, 0, len(b.ledgers))
	for _, l := range b.ledgers {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol() < out[j].Symbol() })
	return out
}
