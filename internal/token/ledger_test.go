package token

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighted-oracle/internal/domain"
)

const (
	alice   domain.Address = "alice"
	bob     domain.Address = "bob"
	spender domain.Address = "spender"
)

func TestLedger_MintAndTransfer(t *testing.T) {
	ctx := context.Background()
	l := NewLedger("wgt", "WGT")

	require.NoError(t, l.Mint(alice, sdkmath.NewInt(100)))
	require.NoError(t, l.Transfer(ctx, alice, bob, sdkmath.NewInt(40)))

	assert.Equal(t, "60", l.BalanceOf(alice).String())
	assert.Equal(t, "40", l.BalanceOf(bob).String())
	assert.Equal(t, "100", l.TotalSupply().String())
	assert.Equal(t, []domain.Address{alice, bob}, l.Holders())
}

func TestLedger_TransferInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	l := NewLedger("wgt", "WGT")
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(10)))

	err := l.Transfer(ctx, alice, bob, sdkmath.NewInt(11))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, "10", l.BalanceOf(alice).String())
	assert.True(t, l.BalanceOf(bob).IsZero())
}

func TestLedger_RejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	l := NewLedger("wgt", "WGT")

	assert.ErrorIs(t, l.Mint(alice, sdkmath.ZeroInt()), ErrInvalidAmount)
	assert.ErrorIs(t, l.Transfer(ctx, alice, bob, sdkmath.NewInt(-1)), ErrInvalidAmount)
	assert.ErrorIs(t, l.Approve(alice, bob, sdkmath.NewInt(-1)), ErrInvalidAmount)
}

func TestLedger_TransferFromConsumesAllowance(t *testing.T) {
	ctx := context.Background()
	l := NewLedger("wgt", "WGT")
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(100)))

	err := l.TransferFrom(ctx, spender, alice, bob, sdkmath.NewInt(10))
	assert.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, l.Approve(alice, spender, sdkmath.NewInt(30)))
	require.NoError(t, l.TransferFrom(ctx, spender, alice, bob, sdkmath.NewInt(20)))

	assert.Equal(t, "10", l.Allowance(alice, spender).String())
	assert.Equal(t, "80", l.BalanceOf(alice).String())

	err = l.TransferFrom(ctx, spender, alice, bob, sdkmath.NewInt(20))
	assert.ErrorIs(t, err, ErrInsufficientAllowance)
	assert.Equal(t, "10", l.Allowance(alice, spender).String())
}

func TestLedger_HooksRunAfterCommit(t *testing.T) {
	ctx := context.Background()
	l := NewLedger("wgt", "WGT")
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(5)))

	var seen sdkmath.Int
	l.OnTransfer(func(_ context.Context, from, to domain.Address, amount sdkmath.Int) {
		// The ledger lock is released, so reading balances must not deadlock.
		seen = l.BalanceOf(to)
	})

	require.NoError(t, l.Transfer(ctx, alice, bob, sdkmath.NewInt(5)))
	assert.Equal(t, "5", seen.String())
}

func TestBank(t *testing.T) {
	native := NewLedger("native", "NAT")
	bank := NewBank(native)

	wgt := NewLedger("wgt", "WGT")
	require.NoError(t, bank.Add(wgt))
	assert.Error(t, bank.Add(wgt))

	got, err := bank.Ledger("wgt")
	require.NoError(t, err)
	assert.Same(t, wgt, got)

	_, err = bank.Ledger("missing")
	assert.ErrorIs(t, err, ErrUnknownToken)

	assert.Same(t, native, bank.Native())
	assert.Len(t, bank.Ledgers(), 2)
}
