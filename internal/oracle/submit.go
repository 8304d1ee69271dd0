package oracle

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
)

// SubmitValue records value from caller, folds it into the EWMA aggregate and
// pays the caller's reward.
func (o *Oracle) SubmitValue(ctx context.Context, caller domain.Address, value sdkmath.Int) (domain.SubmissionRecord, error) {
	var rec domain.SubmissionRecord
	err := o.exec(ctx, "submitValue", func(t *tx) error {
		if value.IsNil() {
			return errorsmod.Wrap(ErrInvalidAmount, "value is required")
		}
		if err := o.requireNotPaused(); err != nil {
			return err
		}
		if o.gov.isBlacklisted(caller) {
			return errorsmod.Wrapf(ErrBlacklisted, "%s", caller)
		}

		p := o.ledger.settle(&t.j, caller, t.now, o.cfg)
		w := o.weight(p, t.now, o.cfg)
		if !positive(w) {
			return errorsmod.Wrapf(ErrZeroWeight, "%s", caller)
		}

		o.setConsensus(&t.j, NextConsensus(o.consensus, value, t.now, o.cfg.HalfLifeSeconds))
		o.setSubmitter(&t.j, domain.SubmitterInfo{
			Submitter:          caller,
			LastSubmittedPrice: value,
			LastWeight:         w,
			LastSubmittedTime:  t.now,
		})
		o.ledger.touch(&t.j, caller, t.now, o.cfg)

		final := meetsQuorum(o.participatingWeight(t.now), o.ledger.total, o.cfg.Quorum)
		if final {
			next := o.consensus
			next.LastFinalizedPrice = next.AggregatedPrice
			next.LastFinalizedTime = t.now
			o.setConsensus(&t.j, next)
		}

		balance := o.native.BalanceOf(o.address)
		reward := capReward(o.reward.Reward(RewardInput{
			Reward:      o.cfg.Reward,
			Alpha:       o.cfg.Alpha,
			Weight:      w,
			TotalWeight: o.ledger.total,
			Balance:     balance,
		}), balance)

		rec = domain.SubmissionRecord{
			Oracle:          o.address,
			Index:           uint64(len(o.history)),
			Submitter:       caller,
			Timestamp:       t.now,
			Value:           value,
			AggregatedPrice: o.consensus.AggregatedPrice,
			Weight:          w,
			RewardPaid:      reward,
			Final:           final,
		}
		o.appendHistory(&t.j, rec)

		if reward.IsPositive() {
			if err := o.native.Transfer(t.ctx, o.address, caller, reward); err != nil {
				return transferFailed(err)
			}
		}

		e := o.newEvent(t, domain.EventPriceSubmitted)
		e.Account = caller
		e.Value = value
		e.Aggregate = rec.AggregatedPrice
		e.Weight = w
		e.Amount = reward
		e.Flag = final
		t.emit(e)
		t.submission = &rec
		return nil
	})
	if err != nil {
		return domain.SubmissionRecord{}, err
	}
	return rec, nil
}

// ReadValue returns the aggregated value. Like a write, it settles the
// caller's stake and emits ValueRead.
func (o *Oracle) ReadValue(ctx context.Context, caller domain.Address) (sdkmath.Int, error) {
	return o.read(ctx, caller, "readValue", false)
}

// ReadLatestValue returns the most recent raw submission. See ReadValue.
func (o *Oracle) ReadLatestValue(ctx context.Context, caller domain.Address) (sdkmath.Int, error) {
	return o.read(ctx, caller, "readLatestValue", true)
}

func (o *Oracle) read(ctx context.Context, caller domain.Address, op string, latest bool) (sdkmath.Int, error) {
	var v sdkmath.Int
	err := o.exec(ctx, op, func(t *tx) error {
		if !o.consensus.Initialized {
			return ErrNoValue
		}
		o.ledger.settle(&t.j, caller, t.now, o.cfg)

		v = o.consensus.AggregatedPrice
		if latest {
			v = o.consensus.LatestValue
		}

		e := o.newEvent(t, domain.EventValueRead)
		e.Account = caller
		e.Value = v
		e.Flag = latest
		t.emit(e)
		return nil
	})
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return v, nil
}

func (o *Oracle) setConsensus(j *journal, next domain.ConsensusState) {
	prev := o.consensus
	o.consensus = next
	j.record(func() { o.consensus = prev })
}

func (o *Oracle) setSubmitter(j *journal, info domain.SubmitterInfo) {
	prev, existed := o.submitters[info.Submitter]
	o.submitters[info.Submitter] = info
	j.record(func() {
		if existed {
			o.submitters[info.Submitter] = prev
		} else {
			delete(o.submitters, info.Submitter)
		}
	})
}

func (o *Oracle) appendHistory(j *journal, rec domain.SubmissionRecord) {
	n := len(o.history)
	o.history = append(o.history, rec)
	j.record(func() { o.history = o.history[:n] })
}
