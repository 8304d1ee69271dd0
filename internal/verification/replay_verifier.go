package verification

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
	"weighted-oracle/internal/token"
)

// ErrOracleNotFound is returned when an oracle address has no registry entry.
var ErrOracleNotFound = errors.New("oracle not found")

// ReplayVerifier verifies oracles from their persisted records.
type ReplayVerifier struct {
	oracleStore     storage.OracleStore
	eventStore      storage.EventStore
	submissionStore storage.SubmissionStore
	snapshotStore   storage.SnapshotStore
	bank            *token.Bank
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	OracleStore     storage.OracleStore
	EventStore      storage.EventStore
	SubmissionStore storage.SubmissionStore
	SnapshotStore   storage.SnapshotStore
	// Bank enables the custody check. Optional.
	Bank *token.Bank
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		oracleStore:     opts.OracleStore,
		eventStore:      opts.EventStore,
		submissionStore: opts.SubmissionStore,
		snapshotStore:   opts.SnapshotStore,
		bank:            opts.Bank,
	}
}

// VerifyOracle verifies a single oracle.
func (v *ReplayVerifier) VerifyOracle(ctx context.Context, addr domain.Address) (*OracleResult, error) {
	info, err := v.oracleStore.GetByAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOracleNotFound, addr)
		}
		return nil, err
	}
	return v.verify(ctx, info)
}

// VerifyAll verifies every registered oracle in creation order.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	infos, err := v.oracleStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{Results: make([]OracleResult, 0, len(infos))}
	for _, info := range infos {
		res, err := v.verify(ctx, info)
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", info.Oracle, err)
		}
		report.Results = append(report.Results, *res)
	}
	return report, nil
}

func (v *ReplayVerifier) verify(ctx context.Context, info *domain.OracleInfo) (*OracleResult, error) {
	snap, err := v.snapshotStore.GetLatest(ctx, info.Oracle)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// Created but never operated on.
		snap = &domain.OracleSnapshot{
			Oracle:         info.Oracle,
			Config:         info.Config,
			Owner:          info.Config.Owner,
			Consensus:      domain.NewConsensusState(),
			TotalDeposited: sdkmath.ZeroInt(),
			Balance:        sdkmath.ZeroInt(),
		}
	case err != nil:
		return nil, err
	}

	events, err := v.eventStore.GetByOracle(ctx, info.Oracle)
	if err != nil {
		return nil, err
	}
	subs, err := v.submissionStore.GetByOracle(ctx, info.Oracle)
	if err != nil {
		return nil, err
	}

	in := Input{Info: *info, Snapshot: *snap, Events: events, Submissions: subs}
	if v.bank != nil {
		if l, err := v.bank.Ledger(info.Config.WeightToken); err == nil {
			held := l.BalanceOf(info.Oracle)
			in.Custody = &held
		}
	}

	res := Verify(in)
	return &res, nil
}
