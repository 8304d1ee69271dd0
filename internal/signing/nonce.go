package signing

import (
	"fmt"
	"sync"

	"weighted-oracle/internal/domain"
)

// NonceTracker enforces strictly increasing nonces per signer.
type NonceTracker struct {
	mu   sync.Mutex
	last map[domain.Address]uint64
}

// NewNonceTracker creates an empty tracker.
func NewNonceTracker() *NonceTracker {
	return &NonceTracker{last: make(map[domain.Address]uint64)}
}

// Use consumes nonce for signer. It fails if nonce is not greater than the last one used.
func (t *NonceTracker) Use(signer domain.Address, nonce uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.last[signer]; ok && nonce <= last {
		return fmt.Errorf("%w: got %d, last %d", ErrStaleNonce, nonce, last)
	}
	t.last[signer] = nonce
	return nil
}

// Last returns the last nonce used by signer, or zero.
func (t *NonceTracker) Last(signer domain.Address) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last[signer]
}
