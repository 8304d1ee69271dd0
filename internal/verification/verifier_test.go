package verification

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/idhash"
	"weighted-oracle/internal/ingestion"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/signing"
	"weighted-oracle/internal/storage/memory"
	"weighted-oracle/internal/token"
)

type fixture struct {
	ctx    context.Context
	stores ingestion.Stores
	bank   *token.Bank
	reg    *registry.Registry
	clock  *oracle.ManualClock
	info   domain.OracleInfo
}

func account(t *testing.T) domain.Address {
	t.Helper()
	kp, err := signing.GenerateKey()
	require.NoError(t, err)
	return kp.Address
}

// newFixture runs a short history against an oracle recorded into memory stores.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	factory, err := idhash.FactoryAddress("verification-test")
	require.NoError(t, err)
	native := token.NewLedger("native", "NAT")
	wgt := token.NewLedger("wgt", "WGT")
	bank := token.NewBank(native)
	require.NoError(t, bank.Add(wgt))

	stores := ingestion.Stores{
		Oracles:      memory.NewOracleStore(),
		Events:       memory.NewEventStore(),
		Submissions:  memory.NewSubmissionStore(),
		Snapshots:    memory.NewSnapshotStore(),
		PriceHistory: memory.NewPriceHistoryStore(),
	}
	rec := ingestion.NewRecorder(ingestion.RecorderOptions{Stores: stores})

	clock := oracle.NewManualClock(1_700_000_000)
	reg, err := registry.New(registry.Options{Factory: factory, Bank: bank, Clock: clock, Sink: rec, Listener: rec})
	require.NoError(t, err)

	owner, alice, bob := account(t), account(t), account(t)
	info, err := reg.CreateOracle(ctx, owner, domain.DefaultOracleConfig("", "wgt", "ETH/USD"))
	require.NoError(t, err)
	o, err := reg.Get(info.Oracle)
	require.NoError(t, err)

	for _, a := range []domain.Address{alice, bob} {
		require.NoError(t, wgt.Mint(a, sdkmath.NewInt(100)))
		require.NoError(t, wgt.Approve(a, info.Oracle, sdkmath.NewInt(100)))
		require.NoError(t, o.DepositTokens(ctx, a, sdkmath.NewInt(100)))
	}
	require.NoError(t, native.Mint(owner, sdkmath.NewInt(500_000)))
	require.NoError(t, o.Fund(ctx, owner, sdkmath.NewInt(500_000)))
	clock.Advance(3600)

	for i, v := range []int64{2500, 2600, 2550} {
		who := alice
		if i%2 == 1 {
			who = bob
		}
		_, err := o.SubmitValue(ctx, who, sdkmath.NewInt(v))
		require.NoError(t, err)
		clock.Advance(1800)
	}
	clock.Advance(3600)
	require.NoError(t, o.WithdrawTokens(ctx, bob, sdkmath.NewInt(30)))

	return &fixture{ctx: ctx, stores: stores, bank: bank, reg: reg, clock: clock, info: info}
}

func (f *fixture) verifier() *ReplayVerifier {
	return NewReplayVerifier(ReplayVerifierOptions{
		OracleStore:     f.stores.Oracles,
		EventStore:      f.stores.Events,
		SubmissionStore: f.stores.Submissions,
		SnapshotStore:   f.stores.Snapshots,
		Bank:            f.bank,
	})
}

func (f *fixture) input(t *testing.T) Input {
	t.Helper()
	snap, err := f.stores.Snapshots.GetLatest(f.ctx, f.info.Oracle)
	require.NoError(t, err)
	events, err := f.stores.Events.GetByOracle(f.ctx, f.info.Oracle)
	require.NoError(t, err)
	subs, err := f.stores.Submissions.GetByOracle(f.ctx, f.info.Oracle)
	require.NoError(t, err)
	return Input{Info: f.info, Snapshot: *snap, Events: events, Submissions: subs}
}

func checks(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Check)
	}
	return out
}

func TestReplayVerifier_RecordedHistoryPasses(t *testing.T) {
	f := newFixture(t)

	report, err := f.verifier().VerifyAll(f.ctx)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.True(t, report.Passed(), "findings: %v", report.Findings())
	assert.Equal(t, "ETH/USD", res.Name)
	assert.Equal(t, 6, res.Checks)
	assert.Equal(t, 3, res.Submissions)
	require.NotNil(t, res.Rebuilt)
	assert.Equal(t, "170", res.Rebuilt.TotalDeposited.String())
	assert.True(t, res.Rebuilt.RewardsPaid.IsPositive())
}

func TestReplayVerifier_UnknownOracle(t *testing.T) {
	f := newFixture(t)
	_, err := f.verifier().VerifyOracle(f.ctx, account(t))
	assert.ErrorIs(t, err, ErrOracleNotFound)
}

func TestReplayVerifier_UnusedOracle(t *testing.T) {
	f := newFixture(t)
	info, err := f.reg.CreateOracle(f.ctx, account(t), domain.DefaultOracleConfig("", "wgt", "idle"))
	require.NoError(t, err)

	res, err := f.verifier().VerifyOracle(f.ctx, info.Oracle)
	require.NoError(t, err)
	assert.True(t, res.Passed(), "findings: %v", res.Findings)
}

func TestVerify_DetectsTamperedAggregate(t *testing.T) {
	f := newFixture(t)
	in := f.input(t)

	tampered := *in.Submissions[1]
	tampered.AggregatedPrice = tampered.AggregatedPrice.AddRaw(1)
	in.Submissions[1] = &tampered

	res := Verify(in)
	assert.False(t, res.Passed())
	assert.Contains(t, checks(res.Findings), CheckReplay)
}

func TestVerify_DetectsMissingEvent(t *testing.T) {
	f := newFixture(t)
	in := f.input(t)
	in.Events = append(in.Events[:1], in.Events[2:]...)

	res := Verify(in)
	assert.Equal(t, []string{CheckSequence}, checks(res.Findings))
	assert.Nil(t, res.Rebuilt)
}

func TestVerify_DetectsRewardAboveBalance(t *testing.T) {
	f := newFixture(t)
	in := f.input(t)

	for i, e := range in.Events {
		if e.Type == domain.EventPriceSubmitted {
			inflated := *e
			inflated.Amount = sdkmath.NewInt(10_000_000)
			in.Events[i] = &inflated
			break
		}
	}

	res := Verify(in)
	assert.Contains(t, checks(res.Findings), CheckReward)
}

func TestVerify_DetectsConservationBreak(t *testing.T) {
	f := newFixture(t)
	in := f.input(t)
	in.Snapshot.TotalDeposited = in.Snapshot.TotalDeposited.AddRaw(5)

	held := sdkmath.NewInt(170)
	in.Custody = &held

	res := Verify(in)
	found := checks(res.Findings)
	assert.Contains(t, found, CheckConservation)
	assert.Contains(t, found, CheckCustody)
	assert.Contains(t, found, CheckReplay)
}

func TestVerify_DetectsHistoryRegression(t *testing.T) {
	f := newFixture(t)
	in := f.input(t)

	earlier := *in.Submissions[2]
	earlier.Timestamp = in.Submissions[0].Timestamp - 1
	in.Submissions[2] = &earlier

	res := Verify(in)
	assert.Contains(t, checks(res.Findings), CheckHistory)
}
