package oracle

import (
	"context"
	"fmt"
	"sort"

	"weighted-oracle/internal/domain"
)

// Snapshot captures the full engine state except the submission history.
func (o *Oracle) Snapshot(ctx context.Context) domain.OracleSnapshot {
	defer o.view(ctx)()
	return o.snapshotLocked(o.clock.Now())
}

func (o *Oracle) snapshotLocked(now uint64) domain.OracleSnapshot {
	submitters := make([]domain.SubmitterInfo, 0, len(o.submitters))
	for _, info := range o.submitters {
		submitters = append(submitters, info)
	}
	sort.Slice(submitters, func(i, k int) bool { return submitters[i].Submitter < submitters[k].Submitter })

	return domain.OracleSnapshot{
		Oracle:         o.address,
		Config:         o.cfg,
		Owner:          o.owner,
		Paused:         o.paused,
		Sequence:       o.sequence,
		Consensus:      o.consensus,
		TotalDeposited: o.ledger.total,
		Balance:        o.native.BalanceOf(o.address),
		Participants:   o.ledger.sorted(),
		Submitters:     submitters,
		Ballots:        o.gov.summaries(),
		UserVotes:      o.gov.voterLists(),
		Blacklisted:    o.gov.blacklistedList(),
		HistoryLength:  uint64(len(o.history)),
		TakenAt:        now,
	}
}

// Restore rebuilds an oracle from a snapshot and its submission history.
// history must hold exactly snap.HistoryLength records in index order.
func Restore(opts Options, snap domain.OracleSnapshot, history []domain.SubmissionRecord) (*Oracle, error) {
	if snap.Oracle != opts.Address {
		return nil, fmt.Errorf("snapshot of %s cannot restore %s", snap.Oracle, opts.Address)
	}
	if uint64(len(history)) != snap.HistoryLength {
		return nil, fmt.Errorf("snapshot expects %d submissions, got %d", snap.HistoryLength, len(history))
	}
	for i, rec := range history {
		if rec.Index != uint64(i) {
			return nil, fmt.Errorf("submission %d out of order (index %d)", i, rec.Index)
		}
	}

	opts.Config = snap.Config
	o, err := New(opts)
	if err != nil {
		return nil, err
	}

	o.owner = snap.Owner
	o.paused = snap.Paused
	o.sequence = snap.Sequence
	o.consensus = snap.Consensus
	o.ledger.total = snap.TotalDeposited
	for _, p := range snap.Participants {
		o.ledger.participants[p.Address] = p
	}
	for _, info := range snap.Submitters {
		o.submitters[info.Submitter] = info
	}
	o.gov = restoreGovernance(snap.Ballots, snap.UserVotes, snap.Blacklisted)
	o.history = append([]domain.SubmissionRecord(nil), history...)
	return o, nil
}
