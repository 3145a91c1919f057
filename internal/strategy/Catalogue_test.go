package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-fi/alm/internal/types"
)

func alwaysMatch(confidence float64) func(types.PoolSnapshot) types.EligibilityResult {
	return func(types.PoolSnapshot) types.EligibilityResult {
		return types.EligibilityResult{Matches: true, Reason: "always", Confidence: confidence}
	}
}

func neverMatch(types.PoolSnapshot) types.EligibilityResult {
	return types.EligibilityResult{Reason: "never"}
}

func holdExit(types.Position, types.PoolSnapshot) types.RiskVerdict {
	return types.Hold()
}

func testDef(name string, priority int, eligible func(types.PoolSnapshot) types.EligibilityResult) Definition {
	return Definition{
		Name:      name,
		Priority:  priority,
		Timeframe: types.TimeframeMedium,
		Tightness: types.TightnessMedium,
		Risk:      types.RiskClassMedium,
		Eligible:  eligible,
		ExitTest:  holdExit,
	}
}

func TestNewCatalogue_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewCatalogue()
	assert.ErrorIs(t, err, ErrEmptyCatalogue)

	_, err = NewCatalogue(
		testDef("dup", 10, neverMatch),
		testDef("dup", 20, neverMatch),
	)
	assert.ErrorIs(t, err, ErrDuplicateName)

	broken := testDef("broken", 10, nil)
	_, err = NewCatalogue(broken)
	assert.ErrorIs(t, err, ErrInvalidDef)

	_, err = NewCatalogue(testDef("", 10, neverMatch))
	assert.ErrorIs(t, err, ErrInvalidDef)
}

func TestSelect_HighestPriorityWins(t *testing.T) {
	t.Parallel()

	// Both match; the aggressive higher-priority one must win regardless of
	// registration order.
	c, err := NewCatalogue(
		testDef("conservative-ish", 40, alwaysMatch(90)),
		testDef("aggressive-ish", 90, alwaysMatch(70)),
	)
	require.NoError(t, err)

	sel := c.Select(types.PoolSnapshot{Address: "p"}, 10)
	assert.Equal(t, "aggressive-ish", sel.Strategy.Name)
	assert.False(t, sel.Fallback)
	assert.InDelta(t, 70.0, sel.Confidence, 1e-9)
}

func TestSelect_PriorityTieKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	c, err := NewCatalogue(
		testDef("first", 50, alwaysMatch(60)),
		testDef("second", 50, alwaysMatch(60)),
	)
	require.NoError(t, err)

	sel := c.Select(types.PoolSnapshot{}, 10)
	assert.Equal(t, "first", sel.Strategy.Name)
}

func TestSelect_FallbackIsTotal(t *testing.T) {
	t.Parallel()

	c := DefaultCatalogue()

	// A snapshot nothing matches: tiny, dead pool.
	sel := c.Select(types.PoolSnapshot{Address: "dead", TvlUSD: 100}, 10)
	assert.True(t, sel.Fallback)
	assert.Equal(t, "balanced", sel.Strategy.Name)
	assert.InDelta(t, 50.0, sel.Confidence, 1e-9)
	assert.Equal(t, types.Neutral5050(), sel.Allocation)

	// And it is deterministic.
	again := c.Select(types.PoolSnapshot{Address: "dead", TvlUSD: 100}, 10)
	assert.Equal(t, sel.Strategy.Name, again.Strategy.Name)
	assert.Equal(t, sel.Bin, again.Bin)
}

func TestScaleBinRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		base      int
		tightness types.Tightness
		want      int
	}{
		{"verytight scales", 10, types.TightnessVeryTight, 5},
		{"verytight floor", 2, types.TightnessVeryTight, 2},
		{"tight scales", 10, types.TightnessTight, 7},
		{"tight floor", 3, types.TightnessTight, 3},
		{"medium passthrough", 10, types.TightnessMedium, 10},
		{"wide scales", 10, types.TightnessWide, 15},
		{"verywide scales", 10, types.TightnessVeryWide, 25},
		{"unknown passthrough", 10, types.Tightness("odd"), 10},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ScaleBinRange(tt.base, tt.tightness))
		})
	}
}

func TestTokenAllocation_InvalidFallsBackToNeutral(t *testing.T) {
	t.Parallel()

	def := testDef("bad-alloc", 10, alwaysMatch(60))
	def.Allocation = func(types.PoolSnapshot) types.TokenAllocation {
		return types.TokenAllocation{BasePct: 1.7}
	}
	assert.Equal(t, types.Neutral5050(), def.TokenAllocation(types.PoolSnapshot{}))

	def.Allocation = nil
	assert.Equal(t, types.Neutral5050(), def.TokenAllocation(types.PoolSnapshot{}))
}

func TestExitCheck_UnknownStrategyHolds(t *testing.T) {
	t.Parallel()

	c := DefaultCatalogue()
	verdict := c.ExitCheck(types.Position{ID: "x", Strategy: "no-such-strategy"}, types.PoolSnapshot{})
	assert.False(t, verdict.Triggered)
}
