// Package verification checks the invariants of recorded oracle state: stake
// conservation, reward bounds, history monotonicity and event-log replay.
package verification

import (
	"context"
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/replay"
)

// Check names.
const (
	CheckConservation = "conservation"
	CheckCustody      = "custody"
	CheckReward       = "reward_bound"
	CheckHistory      = "history_monotonic"
	CheckSequence     = "event_sequence"
	CheckReplay       = "replay"
)

// Finding is one violated invariant.
type Finding struct {
	Oracle domain.Address
	Check  string
	Detail string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s [%s] %s", f.Oracle, f.Check, f.Detail)
}

// OracleResult is the verification outcome of one oracle.
type OracleResult struct {
	Oracle      domain.Address
	Name        string
	Checks      int
	Findings    []Finding
	Events      int
	Submissions int
	Rebuilt     *replay.State
}

// Passed reports whether every check held.
func (r *OracleResult) Passed() bool { return len(r.Findings) == 0 }

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	Results []OracleResult
}

// Passed reports whether every oracle passed.
func (r *VerificationReport) Passed() bool {
	for i := range r.Results {
		if !r.Results[i].Passed() {
			return false
		}
	}
	return true
}

// Findings returns every finding across oracles.
func (r *VerificationReport) Findings() []Finding {
	var out []Finding
	for _, res := range r.Results {
		out = append(out, res.Findings...)
	}
	return out
}

// Input is the recorded state of one oracle.
type Input struct {
	Info        domain.OracleInfo
	Snapshot    domain.OracleSnapshot
	Events      []*domain.Event            // full log, any order
	Submissions []*domain.SubmissionRecord // full history, any order
	// Custody is the weight-token balance held by the oracle address.
	// Nil skips the custody check.
	Custody *sdkmath.Int
}

// Verify runs every check against in.
func Verify(in Input) OracleResult {
	res := OracleResult{
		Oracle:      in.Info.Oracle,
		Name:        in.Info.Config.Name,
		Events:      len(in.Events),
		Submissions: len(in.Submissions),
	}
	add := func(check, format string, args ...any) {
		res.Findings = append(res.Findings, Finding{Oracle: in.Info.Oracle, Check: check, Detail: fmt.Sprintf(format, args...)})
	}

	events := append([]*domain.Event(nil), in.Events...)
	replay.SortEvents(events)
	subs := append([]*domain.SubmissionRecord(nil), in.Submissions...)
	sort.Slice(subs, func(i, j int) bool { return subs[i].Index < subs[j].Index })

	res.Checks++
	checkConservation(in.Snapshot, add)

	if in.Custody != nil {
		res.Checks++
		if !in.Custody.Equal(in.Snapshot.TotalDeposited) {
			add(CheckCustody, "oracle holds %s weight tokens, total deposited is %s", in.Custody, in.Snapshot.TotalDeposited)
		}
	}

	res.Checks++
	checkRewards(events, add)

	res.Checks++
	checkHistory(in.Snapshot, subs, add)

	res.Checks++
	seqOK := checkSequence(in.Info.Oracle, in.Snapshot, events, add)

	if seqOK {
		res.Checks++
		res.Rebuilt = checkReplay(in, events, subs, add)
	}
	return res
}

// checkConservation verifies that the stake total equals the sum of every participant's buckets.
func checkConservation(snap domain.OracleSnapshot, add func(string, string, ...any)) {
	sum := sdkmath.ZeroInt()
	for _, p := range snap.Participants {
		for _, v := range []sdkmath.Int{p.LockedTokens, p.UnlockedTokens, p.LockedForWithdrawal} {
			if v.IsNegative() {
				add(CheckConservation, "participant %s has a negative bucket", p.Address)
			}
		}
		sum = sum.Add(p.Deposited())
	}
	if !sum.Equal(snap.TotalDeposited) {
		add(CheckConservation, "participants hold %s, total deposited is %s", sum, snap.TotalDeposited)
	}
}

// checkRewards walks the log and verifies every reward was covered by the balance at payment time.
func checkRewards(events []*domain.Event, add func(string, string, ...any)) {
	balance := sdkmath.ZeroInt()
	for _, e := range events {
		switch e.Type {
		case domain.EventFunded:
			balance = balance.Add(e.Amount)
		case domain.EventPriceSubmitted:
			if e.Amount.IsNegative() {
				add(CheckReward, "negative reward %s at sequence %d", e.Amount, e.Sequence)
			}
			if e.Amount.GT(balance) {
				add(CheckReward, "reward %s exceeds balance %s at sequence %d", e.Amount, balance, e.Sequence)
			}
			balance = balance.Sub(e.Amount)
		}
	}
}

// checkHistory verifies contiguous indexes, non-decreasing timestamps and the recorded length.
func checkHistory(snap domain.OracleSnapshot, subs []*domain.SubmissionRecord, add func(string, string, ...any)) {
	if uint64(len(subs)) != snap.HistoryLength {
		add(CheckHistory, "history has %d records, snapshot expects %d", len(subs), snap.HistoryLength)
	}
	for i, s := range subs {
		if s.Index != uint64(i) {
			add(CheckHistory, "record %d has index %d", i, s.Index)
			return
		}
		if i > 0 && s.Timestamp < subs[i-1].Timestamp {
			add(CheckHistory, "record %d at %d precedes record %d at %d", i, s.Timestamp, i-1, subs[i-1].Timestamp)
		}
	}
}

func checkSequence(oracle domain.Address, snap domain.OracleSnapshot, events []*domain.Event, add func(string, string, ...any)) bool {
	if err := replay.CheckSequence(oracle, events, 0); err != nil {
		add(CheckSequence, "%v", err)
		return false
	}
	if uint64(len(events)) != snap.Sequence {
		add(CheckSequence, "log ends at %d, snapshot at %d", len(events), snap.Sequence)
		return false
	}
	return true
}

// checkReplay rebuilds state from the log and compares it with the snapshot and history.
func checkReplay(in Input, events []*domain.Event, subs []*domain.SubmissionRecord, add func(string, string, ...any)) *replay.State {
	b := replay.NewRebuilder(in.Info)
	aggregates := make([]sdkmath.Int, 0, len(subs))
	for _, e := range events {
		if err := b.OnEvent(context.Background(), e); err != nil {
			add(CheckReplay, "%v", err)
			return nil
		}
		if e.Type == domain.EventPriceSubmitted {
			aggregates = append(aggregates, b.State().Consensus.AggregatedPrice)
		}
	}

	for _, d := range b.Divergences() {
		add(CheckReplay, "%s at sequence %d: recorded %s, recomputed %s", d.Field, d.Sequence, d.Expected, d.Actual)
	}

	s := b.State()
	snap := in.Snapshot
	if !s.Consensus.AggregatedPrice.Equal(snap.Consensus.AggregatedPrice) {
		add(CheckReplay, "aggregate %s, snapshot %s", s.Consensus.AggregatedPrice, snap.Consensus.AggregatedPrice)
	}
	if !s.TotalDeposited.Equal(snap.TotalDeposited) {
		add(CheckReplay, "total deposited %s, snapshot %s", s.TotalDeposited, snap.TotalDeposited)
	}
	if !s.Balance.Equal(snap.Balance) {
		add(CheckReplay, "balance %s, snapshot %s", s.Balance, snap.Balance)
	}
	if s.Owner != snap.Owner {
		add(CheckReplay, "owner %s, snapshot %s", s.Owner, snap.Owner)
	}
	if s.Paused != snap.Paused {
		add(CheckReplay, "paused %v, snapshot %v", s.Paused, snap.Paused)
	}

	if len(aggregates) != len(subs) {
		add(CheckReplay, "%d PriceSubmitted events for %d history records", len(aggregates), len(subs))
		return s
	}
	for i, sub := range subs {
		if !sub.AggregatedPrice.Equal(aggregates[i]) {
			add(CheckReplay, "record %d aggregate %s, recomputed %s", i, sub.AggregatedPrice, aggregates[i])
		}
	}
	return s
}
