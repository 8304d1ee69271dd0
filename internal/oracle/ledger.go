package oracle

import (
	"sort"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
)

// stakeLedger holds the per-participant stake buckets of one oracle.
// Every mutation records an undo step in the caller's journal.
type stakeLedger struct {
	participants map[domain.Address]domain.Participant
	total        sdkmath.Int
}

func newStakeLedger() *stakeLedger {
	return &stakeLedger{
		participants: make(map[domain.Address]domain.Participant),
		total:        sdkmath.ZeroInt(),
	}
}

func (l *stakeLedger) get(addr domain.Address) (domain.Participant, bool) {
	p, ok := l.participants[addr]
	return p, ok
}

// getOrEmpty returns the entry for addr or an empty one.
func (l *stakeLedger) getOrEmpty(addr domain.Address) domain.Participant {
	if p, ok := l.participants[addr]; ok {
		return p
	}
	return domain.NewParticipant(addr)
}

func (l *stakeLedger) put(j *journal, p domain.Participant) {
	prev, existed := l.participants[p.Address]
	l.participants[p.Address] = p
	j.record(func() {
		if existed {
			l.participants[p.Address] = prev
		} else {
			delete(l.participants, p.Address)
		}
	})
}

func (l *stakeLedger) setTotal(j *journal, total sdkmath.Int) {
	prev := l.total
	l.total = total
	j.record(func() { l.total = prev })
}

// settled applies every transition that is due at now. Locked stake matures
// once the deposit lock has elapsed; matured stake is unlocked while the
// withdrawal lock since the last operation has elapsed, and locked for
// withdrawal otherwise. The result depends only on p, now and cfg.
func settled(p domain.Participant, now uint64, cfg domain.OracleConfig) domain.Participant {
	p.LockedTokens = orZero(p.LockedTokens)
	matured := orZero(p.UnlockedTokens).Add(orZero(p.LockedForWithdrawal))
	if p.LockedTokens.IsPositive() && lockElapsed(p.DepositTimestamp, now, cfg.DepositLockingPeriod) {
		matured = matured.Add(p.LockedTokens)
		p.LockedTokens = sdkmath.ZeroInt()
	}
	if lockElapsed(p.LastOperationTimestamp, now, cfg.WithdrawalLockingPeriod) {
		p.UnlockedTokens, p.LockedForWithdrawal = matured, sdkmath.ZeroInt()
	} else {
		p.UnlockedTokens, p.LockedForWithdrawal = sdkmath.ZeroInt(), matured
	}
	return p
}

func orZero(v sdkmath.Int) sdkmath.Int {
	if v.IsNil() {
		return sdkmath.ZeroInt()
	}
	return v
}

// settle stores the settled entry of addr. Unknown accounts are left untouched.
func (l *stakeLedger) settle(j *journal, addr domain.Address, now uint64, cfg domain.OracleConfig) domain.Participant {
	p, ok := l.participants[addr]
	if !ok {
		return domain.NewParticipant(addr)
	}
	next := settled(p, now, cfg)
	if !sameBuckets(p, next) {
		l.put(j, next)
	}
	return next
}

func sameBuckets(a, b domain.Participant) bool {
	return orZero(a.LockedTokens).Equal(b.LockedTokens) &&
		orZero(a.UnlockedTokens).Equal(b.UnlockedTokens) &&
		orZero(a.LockedForWithdrawal).Equal(b.LockedForWithdrawal)
}

// deposit locks amount for addr. Matured stake is settled first, so only
// stake that is still immature shares the new deposit timestamp.
func (l *stakeLedger) deposit(j *journal, addr domain.Address, amount sdkmath.Int, now uint64, cfg domain.OracleConfig) domain.Participant {
	p := settled(l.getOrEmpty(addr), now, cfg)
	p.LockedTokens = p.LockedTokens.Add(amount)
	p.DepositTimestamp = now
	p.LastOperationTimestamp = now
	p = settled(p, now, cfg)
	l.put(j, p)
	l.setTotal(j, l.total.Add(amount))
	return p
}

func (l *stakeLedger) withdraw(j *journal, addr domain.Address, amount sdkmath.Int, now uint64, cfg domain.OracleConfig) (domain.Participant, error) {
	p := settled(l.getOrEmpty(addr), now, cfg)
	if !lockElapsed(p.LastOperationTimestamp, now, cfg.WithdrawalLockingPeriod) {
		return p, errorsmod.Wrapf(ErrWithdrawalLocked, "unlocks at %d", p.LastOperationTimestamp+cfg.WithdrawalLockingPeriod)
	}
	if p.UnlockedTokens.LT(amount) {
		return p, errorsmod.Wrapf(ErrInsufficientUnlocked, "%s unlocked, %s requested", p.UnlockedTokens, amount)
	}
	p.UnlockedTokens = p.UnlockedTokens.Sub(amount)
	p.LastOperationTimestamp = now
	p = settled(p, now, cfg)
	l.put(j, p)
	l.setTotal(j, l.total.Sub(amount))
	return p, nil
}

// touch records an operation time for an existing participant.
func (l *stakeLedger) touch(j *journal, addr domain.Address, now uint64, cfg domain.OracleConfig) {
	p, ok := l.participants[addr]
	if !ok {
		return
	}
	p.LastOperationTimestamp = now
	l.put(j, settled(p, now, cfg))
}

// sorted returns all entries ordered by address.
func (l *stakeLedger) sorted() []domain.Participant {
	out := make([]domain.Participant, 0, len(l.participants))
	for _, p := range l.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Address < out[k].Address })
	return out
}

// unlockTime returns the earliest time at which every lock on p has elapsed.
func unlockTime(p domain.Participant, cfg domain.OracleConfig) uint64 {
	depositEnd := p.DepositTimestamp + cfg.DepositLockingPeriod
	withdrawalEnd := p.LastOperationTimestamp + cfg.WithdrawalLockingPeriod
	if depositEnd > withdrawalEnd {
		return depositEnd
	}
	return withdrawalEnd
}
