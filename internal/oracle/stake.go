package oracle

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
)

// DepositTokens pulls amount of the weight token from caller and locks it.
// The caller must have approved the oracle as spender.
func (o *Oracle) DepositTokens(ctx context.Context, caller domain.Address, amount sdkmath.Int) error {
	return o.exec(ctx, "depositTokens", func(t *tx) error {
		if err := validAmount(amount); err != nil {
			return err
		}
		if err := o.requireNotPaused(); err != nil {
			return err
		}

		if err := o.weightToken.TransferFrom(t.ctx, o.address, caller, o.address, amount); err != nil {
			return transferFailed(err)
		}
		o.ledger.deposit(&t.j, caller, amount, t.now, o.cfg)

		e := o.newEvent(t, domain.EventTokenDeposited)
		e.Account = caller
		e.Amount = amount
		t.emit(e)
		return nil
	})
}

// WithdrawTokens pays out amount of unlocked stake to caller. Stake unlocks on
// its own once its deposit lock has elapsed and no operation of caller
// happened within the withdrawal locking period.
// Withdrawals stay available while the oracle is paused.
func (o *Oracle) WithdrawTokens(ctx context.Context, caller domain.Address, amount sdkmath.Int) error {
	return o.exec(ctx, "withdrawTokens", func(t *tx) error {
		if err := validAmount(amount); err != nil {
			return err
		}

		if _, err := o.ledger.withdraw(&t.j, caller, amount, t.now, o.cfg); err != nil {
			return err
		}
		if err := o.weightToken.Transfer(t.ctx, o.address, caller, amount); err != nil {
			return transferFailed(err)
		}

		e := o.newEvent(t, domain.EventTokenWithdrawn)
		e.Account = caller
		e.Amount = amount
		t.emit(e)
		return nil
	})
}

// Fund moves native currency from caller into the reward balance.
func (o *Oracle) Fund(ctx context.Context, caller domain.Address, amount sdkmath.Int) error {
	return o.exec(ctx, "fund", func(t *tx) error {
		if err := validAmount(amount); err != nil {
			return err
		}
		if err := o.native.Transfer(t.ctx, caller, o.address, amount); err != nil {
			return transferFailed(err)
		}

		e := o.newEvent(t, domain.EventFunded)
		e.Account = caller
		e.Amount = amount
		t.emit(e)
		return nil
	})
}
