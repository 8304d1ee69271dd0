package oracle

import (
	"sort"

	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
)

type ballotKey struct {
	kind   domain.BallotKind
	target domain.Address
}

type voterKey struct {
	kind  domain.BallotKind
	voter domain.Address
}

// ballot is the tally of one (kind, target) pair.
type ballot struct {
	total   sdkmath.Int
	weights map[domain.Address]sdkmath.Int
	order   []domain.Address
}

func newBallot() *ballot {
	return &ballot{
		total:   sdkmath.ZeroInt(),
		weights: make(map[domain.Address]sdkmath.Int),
	}
}

// governance holds blacklist and whitelist ballots and the resulting flags.
type governance struct {
	ballots     map[ballotKey]*ballot
	userVotes   map[voterKey][]domain.Address
	blacklisted map[domain.Address]bool
}

func newGovernance() *governance {
	return &governance{
		ballots:     make(map[ballotKey]*ballot),
		userVotes:   make(map[voterKey][]domain.Address),
		blacklisted: make(map[domain.Address]bool),
	}
}

func (g *governance) isBlacklisted(addr domain.Address) bool {
	return g.blacklisted[addr]
}

func (g *governance) hasVoted(kind domain.BallotKind, target, voter domain.Address) bool {
	b, ok := g.ballots[ballotKey{kind, target}]
	if !ok {
		return false
	}
	_, voted := b.weights[voter]
	return voted
}

func (g *governance) total(kind domain.BallotKind, target domain.Address) sdkmath.Int {
	if b, ok := g.ballots[ballotKey{kind, target}]; ok {
		return b.total
	}
	return sdkmath.ZeroInt()
}

func (g *governance) voteWeight(kind domain.BallotKind, target, voter domain.Address) sdkmath.Int {
	if b, ok := g.ballots[ballotKey{kind, target}]; ok {
		if w, ok := b.weights[voter]; ok {
			return w
		}
	}
	return sdkmath.ZeroInt()
}

func (g *governance) targets(kind domain.BallotKind, voter domain.Address) []domain.Address {
	src := g.userVotes[voterKey{kind, voter}]
	out := make([]domain.Address, len(src))
	copy(out, src)
	return out
}

// cast adds voter's weight to the (kind, target) ballot and returns the new total.
func (g *governance) cast(j *journal, kind domain.BallotKind, target, voter domain.Address, weight sdkmath.Int) sdkmath.Int {
	key := ballotKey{kind, target}
	b, ok := g.ballots[key]
	if !ok {
		b = newBallot()
		g.ballots[key] = b
		j.record(func() { delete(g.ballots, key) })
	}

	prevTotal, prevOrder := b.total, b.order
	b.weights[voter] = weight
	b.order = append(b.order, voter)
	b.total = b.total.Add(weight)
	j.record(func() {
		delete(b.weights, voter)
		b.order = prevOrder
		b.total = prevTotal
	})

	vk := voterKey{kind, voter}
	prevTargets, had := g.userVotes[vk]
	g.userVotes[vk] = append(prevTargets, target)
	j.record(func() {
		if had {
			g.userVotes[vk] = prevTargets
		} else {
			delete(g.userVotes, vk)
		}
	})

	return b.total
}

// setBlacklisted sets the flag for target and reports whether it changed.
func (g *governance) setBlacklisted(j *journal, target domain.Address, flag bool) bool {
	prev := g.blacklisted[target]
	if prev == flag {
		return false
	}
	if flag {
		g.blacklisted[target] = true
	} else {
		delete(g.blacklisted, target)
	}
	j.record(func() {
		if prev {
			g.blacklisted[target] = true
		} else {
			delete(g.blacklisted, target)
		}
	})
	return true
}

// reset clears the (kind, target) ballot and removes target from its voters' lists.
func (g *governance) reset(j *journal, kind domain.BallotKind, target domain.Address) {
	key := ballotKey{kind, target}
	b, ok := g.ballots[key]
	if !ok {
		return
	}
	delete(g.ballots, key)
	j.record(func() { g.ballots[key] = b })

	for _, voter := range b.order {
		vk := voterKey{kind, voter}
		prev := g.userVotes[vk]
		kept := make([]domain.Address, 0, len(prev))
		for _, t := range prev {
			if t != target {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(g.userVotes, vk)
		} else {
			g.userVotes[vk] = kept
		}
		j.record(func() { g.userVotes[vk] = prev })
	}
}

func (g *governance) summaries() []domain.BallotSummary {
	out := make([]domain.BallotSummary, 0, len(g.ballots))
	for key, b := range g.ballots {
		s := domain.BallotSummary{
			Kind:   key.kind,
			Target: key.target,
			Total:  b.total,
			Votes:  make([]domain.VoteRecord, 0, len(b.order)),
		}
		for _, voter := range b.order {
			s.Votes = append(s.Votes, domain.VoteRecord{Voter: voter, Weight: b.weights[voter]})
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Kind != out[k].Kind {
			return out[i].Kind < out[k].Kind
		}
		return out[i].Target < out[k].Target
	})
	return out
}

func (g *governance) voterLists() []domain.UserVotes {
	out := make([]domain.UserVotes, 0, len(g.userVotes))
	for key, targets := range g.userVotes {
		cp := make([]domain.Address, len(targets))
		copy(cp, targets)
		out = append(out, domain.UserVotes{Kind: key.kind, Voter: key.voter, Targets: cp})
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Kind != out[k].Kind {
			return out[i].Kind < out[k].Kind
		}
		return out[i].Voter < out[k].Voter
	})
	return out
}

func (g *governance) blacklistedList() []domain.Address {
	out := make([]domain.Address, 0, len(g.blacklisted))
	for addr := range g.blacklisted {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, k int) bool { return out[i] < out[k] })
	return out
}

// restoreGovernance rebuilds governance state from snapshot lists.
func restoreGovernance(ballots []domain.BallotSummary, lists []domain.UserVotes, blacklisted []domain.Address) *governance {
	g := newGovernance()
	for _, s := range ballots {
		b := newBallot()
		b.total = s.Total
		for _, v := range s.Votes {
			b.weights[v.Voter] = v.Weight
			b.order = append(b.order, v.Voter)
		}
		g.ballots[ballotKey{s.Kind, s.Target}] = b
	}
	for _, uv := range lists {
		g.userVotes[voterKey{uv.Kind, uv.Voter}] = append([]domain.Address(nil), uv.Targets...)
	}
	for _, addr := range blacklisted {
		g.blacklisted[addr] = true
	}
	return g
}
