package oracle

import (
	"context"

	errorsmod "cosmossdk.io/errors"

	"weighted-oracle/internal/domain"
)

// TransferOwnership hands the oracle to newOwner.
func (o *Oracle) TransferOwnership(ctx context.Context, caller, newOwner domain.Address) error {
	return o.exec(ctx, "transferOwnership", func(t *tx) error {
		if err := o.requireOwner(caller); err != nil {
			return err
		}
		if newOwner.IsZero() {
			return errorsmod.Wrapf(ErrInvalidOwner, "%q", newOwner)
		}
		o.setOwner(t, newOwner)
		return nil
	})
}

// RenounceOwnership leaves the oracle without an owner. Owner-only operations
// become unavailable.
func (o *Oracle) RenounceOwnership(ctx context.Context, caller domain.Address) error {
	return o.exec(ctx, "renounceOwnership", func(t *tx) error {
		if err := o.requireOwner(caller); err != nil {
			return err
		}
		o.setOwner(t, domain.ZeroAddress)
		return nil
	})
}

// Pause stops deposits, submissions and votes.
func (o *Oracle) Pause(ctx context.Context, caller domain.Address) error {
	return o.exec(ctx, "pause", func(t *tx) error {
		if err := o.requireOwner(caller); err != nil {
			return err
		}
		if o.paused {
			return ErrPaused
		}
		o.setPaused(t, true)
		e := o.newEvent(t, domain.EventPaused)
		e.Account = caller
		t.emit(e)
		return nil
	})
}

// Unpause resumes normal operation.
func (o *Oracle) Unpause(ctx context.Context, caller domain.Address) error {
	return o.exec(ctx, "unpause", func(t *tx) error {
		if err := o.requireOwner(caller); err != nil {
			return err
		}
		if !o.paused {
			return ErrNotPaused
		}
		o.setPaused(t, false)
		e := o.newEvent(t, domain.EventUnpaused)
		e.Account = caller
		t.emit(e)
		return nil
	})
}

func (o *Oracle) setOwner(t *tx, owner domain.Address) {
	prev := o.owner
	o.owner = owner
	t.j.record(func() { o.owner = prev })

	e := o.newEvent(t, domain.EventOwnershipTransferred)
	e.Account = prev
	e.Target = owner
	t.emit(e)
}

func (o *Oracle) setPaused(t *tx, paused bool) {
	prev := o.paused
	o.paused = paused
	t.j.record(func() { o.paused = prev })
}
