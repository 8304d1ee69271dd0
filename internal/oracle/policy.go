package oracle

import (
	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
)

// lockElapsed reports whether period seconds have passed since start.
func lockElapsed(start, now, period uint64) bool {
	return now >= start && now-start >= period
}

// inQuorumWindow reports whether a submission at submitted still counts toward
// participation at now. The window is one half-life; with a zero half-life only
// submissions made at now count.
func inQuorumWindow(submitted, now, halfLife uint64) bool {
	if submitted > now {
		return false
	}
	return now-submitted <= halfLife
}

// meetsQuorum reports whether weight reaches quorumBps basis points of total.
func meetsQuorum(weight, total sdkmath.Int, quorumBps uint64) bool {
	lhs := weight.MulRaw(domain.BasisPoints)
	rhs := total.Mul(sdkmath.NewIntFromUint64(quorumBps))
	return lhs.GTE(rhs)
}

// participatingWeight sums the current weight of distinct, non-blacklisted
// submitters whose last submission is inside the quorum window.
func (o *Oracle) participatingWeight(now uint64) sdkmath.Int {
	sum := sdkmath.ZeroInt()
	for addr, info := range o.submitters {
		if o.gov.isBlacklisted(addr) || !inQuorumWindow(info.LastSubmittedTime, now, o.cfg.HalfLifeSeconds) {
			continue
		}
		p, ok := o.ledger.get(addr)
		if !ok {
			continue
		}
		sum = sum.Add(o.weight(p, now, o.cfg))
	}
	return sum
}
