package oracle

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"weighted-oracle/internal/domain"
)

func dec(s string) sdkmath.LegacyDec {
	return sdkmath.LegacyMustNewDecFromStr(s)
}

func TestDecayFactor_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  uint64
		halfLife uint64
		want     string
	}{
		{"no time passed", 0, 3600, "1.000000000000000000"},
		{"one half-life", 3600, 3600, "0.500000000000000000"},
		{"two half-lives", 7200, 3600, "0.250000000000000000"},
		{"zero half-life", 10, 0, "0.000000000000000000"},
		{"zero half-life same timestamp", 0, 0, "0.000000000000000000"},
		{"beyond precision", 64 * 3600, 3600, "0.000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecayFactor(tt.elapsed, tt.halfLife).String())
		})
	}
}

func TestDecayFactor_FractionalHalfLife(t *testing.T) {
	// 2^-0.5
	got := DecayFactor(1800, 3600)
	want := dec("0.707106781186547524")
	diff := got.Sub(want).Abs()
	assert.True(t, diff.LTE(dec("0.000000000000001")), "got %s", got)
}

func TestDecayFactor_MonotoneAndBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		halfLife := rapid.Uint64Range(1, 100000).Draw(t, "halfLife")
		a := rapid.Uint64Range(0, 70*halfLife).Draw(t, "a")
		b := rapid.Uint64Range(a, 70*halfLife).Draw(t, "b")

		da := DecayFactor(a, halfLife)
		db := DecayFactor(b, halfLife)
		if da.IsNegative() || da.GT(sdkmath.LegacyOneDec()) {
			t.Fatalf("decay %s out of [0, 1]", da)
		}
		if db.GT(da) {
			t.Fatalf("decay increased from %s to %s", da, db)
		}
	})
}

func TestBlend(t *testing.T) {
	got := Blend(dec("2500"), dec("2600"), dec("0.5"))
	assert.Equal(t, "2550.000000000000000000", got.String())
}

func TestNextConsensus(t *testing.T) {
	s := domain.NewConsensusState()

	s = NextConsensus(s, sdkmath.NewInt(2500), 100, 3600)
	require.True(t, s.Initialized)
	assert.Equal(t, "2500", s.AggregatedPrice.String())
	assert.Equal(t, uint64(100), s.LastTimestamp)

	s = NextConsensus(s, sdkmath.NewInt(9999), 100, 3600)
	assert.Equal(t, "2500", s.AggregatedPrice.String(), "same timestamp must not move the aggregate")
	assert.Equal(t, "9999", s.LatestValue.String())

	s = NextConsensus(s, sdkmath.NewInt(2600), 3700, 3600)
	assert.Equal(t, "2550", s.AggregatedPrice.String())
}

func TestNextConsensus_ZeroHalfLifeTracksLatest(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.Int64Range(-1_000_000, 1_000_000), 1, 20).Draw(t, "values")
		gaps := rapid.SliceOfN(rapid.Uint64Range(0, 100), len(values), len(values)).Draw(t, "gaps")

		s := domain.NewConsensusState()
		now := uint64(1000)
		for i, v := range values {
			now += gaps[i]
			s = NextConsensus(s, sdkmath.NewInt(v), now, 0)
			if !s.AggregatedPrice.Equal(sdkmath.NewInt(v)) {
				t.Fatalf("aggregate %s, want latest %d", s.AggregatedPrice, v)
			}
		}
	})
}
