package oracle

import (
	"context"

	errorsmod "cosmossdk.io/errors"

	"weighted-oracle/internal/domain"
)

// VoteBlacklist casts caller's weight toward blacklisting target.
func (o *Oracle) VoteBlacklist(ctx context.Context, caller, target domain.Address) error {
	return o.vote(ctx, domain.BallotBlacklist, caller, target)
}

// VoteWhitelist casts caller's weight toward clearing target's blacklist flag.
func (o *Oracle) VoteWhitelist(ctx context.Context, caller, target domain.Address) error {
	return o.vote(ctx, domain.BallotWhitelist, caller, target)
}

// Vote dispatches on kind.
func (o *Oracle) Vote(ctx context.Context, kind domain.BallotKind, caller, target domain.Address) error {
	if _, err := domain.ParseBallotKind(string(kind)); err != nil {
		return errorsmod.Wrap(ErrInvalidBallot, err.Error())
	}
	return o.vote(ctx, kind, caller, target)
}

func (o *Oracle) vote(ctx context.Context, kind domain.BallotKind, caller, target domain.Address) error {
	return o.exec(ctx, "vote"+string(kind), func(t *tx) error {
		if target == "" {
			return errorsmod.Wrap(ErrInvalidAddress, "target is required")
		}
		if err := o.requireNotPaused(); err != nil {
			return err
		}
		if o.gov.isBlacklisted(caller) {
			return errorsmod.Wrapf(ErrBlacklisted, "%s", caller)
		}
		if o.gov.hasVoted(kind, target, caller) {
			return errorsmod.Wrapf(ErrAlreadyVoted, "%s on %s %s", caller, kind, target)
		}

		p := o.ledger.settle(&t.j, caller, t.now, o.cfg)
		w := o.weight(p, t.now, o.cfg)
		if !positive(w) {
			return errorsmod.Wrapf(ErrZeroWeight, "%s", caller)
		}

		total := o.gov.cast(&t.j, kind, target, caller, w)
		o.ledger.touch(&t.j, caller, t.now, o.cfg)

		e := o.newEvent(t, domain.EventVoted)
		e.Account = caller
		e.Target = target
		e.Kind = kind
		e.Weight = w
		t.emit(e)

		if !meetsQuorum(total, o.ledger.total, o.cfg.Quorum) {
			return nil
		}
		flag := kind == domain.BallotBlacklist
		if !o.gov.setBlacklisted(&t.j, target, flag) {
			return nil
		}
		o.gov.reset(&t.j, kind.Opposite(), target)

		o.logger.Info().Str("target", string(target)).Bool("blacklisted", flag).Msg("blacklist status changed")
		changed := o.newEvent(t, domain.EventBlacklistStatusChanged)
		changed.Target = target
		changed.Flag = flag
		t.emit(changed)
		return nil
	})
}
