package oracle

import (
	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
)

const (
	// maxHalvings bounds the integer part of elapsed/halfLife; 0.5^64 is below 18-decimal precision.
	maxHalvings = 64
	// expTerms is the number of Taylor terms used for exp(-x) with x in [0, ln2).
	expTerms = 24
)

var (
	ln2  = sdkmath.LegacyMustNewDecFromStr("0.693147180559945309")
	half = sdkmath.LegacyNewDecWithPrec(5, 1)
)

// DecayFactor returns 2^(-elapsed/halfLife) in 18-decimal fixed point, clamped to [0, 1].
// A zero half-life yields 0, otherwise a zero elapsed time yields 1.
func DecayFactor(elapsed, halfLife uint64) sdkmath.LegacyDec {
	if halfLife == 0 {
		return sdkmath.LegacyZeroDec()
	}
	if elapsed == 0 {
		return sdkmath.LegacyOneDec()
	}

	halvings := elapsed / halfLife
	if halvings >= maxHalvings {
		return sdkmath.LegacyZeroDec()
	}

	d := half.Power(halvings)

	if rem := elapsed % halfLife; rem > 0 {
		x := ln2.MulInt(sdkmath.NewIntFromUint64(rem)).QuoInt(sdkmath.NewIntFromUint64(halfLife))
		d = d.Mul(expNeg(x))
	}

	return clampUnit(d)
}

// expNeg evaluates exp(-x) by Taylor series. x must be small and non-negative.
func expNeg(x sdkmath.LegacyDec) sdkmath.LegacyDec {
	sum := sdkmath.LegacyOneDec()
	term := sdkmath.LegacyOneDec()
	for k := int64(1); k <= expTerms; k++ {
		term = term.Mul(x).QuoInt64(k).Neg()
		if term.IsZero() {
			break
		}
		sum = sum.Add(term)
	}
	return sum
}

func clampUnit(d sdkmath.LegacyDec) sdkmath.LegacyDec {
	if d.IsNegative() {
		return sdkmath.LegacyZeroDec()
	}
	if d.GT(sdkmath.LegacyOneDec()) {
		return sdkmath.LegacyOneDec()
	}
	return d
}

// Blend returns d*previous + (1-d)*value.
func Blend(previous, value, d sdkmath.LegacyDec) sdkmath.LegacyDec {
	return d.Mul(previous).Add(sdkmath.LegacyOneDec().Sub(d).Mul(value))
}

// NextConsensus applies one submission to the consensus state.
// The first submission initializes the aggregate to the submitted value.
func NextConsensus(state domain.ConsensusState, value sdkmath.Int, now, halfLife uint64) domain.ConsensusState {
	v := sdkmath.LegacyNewDecFromInt(value)

	next := state
	if !state.Initialized {
		next.Aggregate = v
		next.Initialized = true
	} else {
		var elapsed uint64
		if now > state.LastTimestamp {
			elapsed = now - state.LastTimestamp
		}
		next.Aggregate = Blend(state.Aggregate, v, DecayFactor(elapsed, halfLife))
	}

	next.AggregatedPrice = next.Aggregate.RoundInt()
	next.LatestValue = value
	next.LastTimestamp = now
	return next
}
