package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-fi/alm/internal/config"
	"github.com/meridian-fi/alm/internal/types"
)

// stubExiter returns a fixed verdict for the strategy exit check.
type stubExiter struct {
	verdict types.RiskVerdict
}

func (s stubExiter) ExitCheck(types.Position, types.PoolSnapshot) types.RiskVerdict {
	return s.verdict
}

func holdingExiter() stubExiter {
	return stubExiter{verdict: types.Hold()}
}

func basePosition() types.Position {
	return types.Position{
		ID:              "pos-1",
		Pool:            "pool-1",
		PoolName:        "SOL-USDC",
		Strategy:        "balanced",
		Status:          types.PositionActive,
		CapitalUSD:      1_000,
		EntryPriceUSD:   100,
		EntryTvlUSD:     500_000,
		EntryYieldPct:   80,
		CurrentValueUSD: 1_000,
		OpenedAt:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func stableSnapshot() types.PoolSnapshot {
	return types.PoolSnapshot{
		Address:      "pool-1",
		PriceUSD:     100,
		TvlUSD:       500_000,
		YieldRatePct: 80,
	}
}

func TestImpermanentLossPct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{"unchanged", 1.0, 0},
		{"4x move", 4.0, -20},
		{"quarter move", 0.25, -20},
		{"invalid ratio", 0, 0},
		{"negative ratio", -2, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, ImpermanentLossPct(tt.ratio), 1e-9)
		})
	}
}

func TestEvaluatePositionExit_StableHolds(t *testing.T) {
	t.Parallel()

	e := NewExitEvaluator(holdingExiter(), config.DefaultParameters)
	verdict := e.EvaluatePositionExit(basePosition(), stableSnapshot())
	assert.False(t, verdict.Triggered)
}

func TestEvaluatePositionExit_DeclaredOrderWins(t *testing.T) {
	t.Parallel()

	e := NewExitEvaluator(holdingExiter(), config.DefaultParameters)

	// Snapshot that trips both the price dump and the blacklist check; the
	// earlier declared check must win no matter which goroutine finishes first.
	snap := stableSnapshot()
	snap.PriceChange1hPct = -45
	snap.Blacklisted = true

	for i := 0; i < 20; i++ {
		verdict := e.EvaluatePositionExit(basePosition(), snap)
		require.True(t, verdict.Triggered)
		assert.Equal(t, "price-dump", verdict.Check)
	}
}

func TestEvaluatePositionExit_StrategyExitBeatsGenericChecks(t *testing.T) {
	t.Parallel()

	strategyExit := stubExiter{verdict: types.RiskVerdict{
		Triggered: true,
		Check:     "strategy:balanced",
		Reason:    "window expired",
		Urgency:   types.UrgencyLow,
	}}
	e := NewExitEvaluator(strategyExit, config.DefaultParameters)

	snap := stableSnapshot()
	snap.Blacklisted = true

	verdict := e.EvaluatePositionExit(basePosition(), snap)
	require.True(t, verdict.Triggered)
	assert.Equal(t, "strategy:balanced", verdict.Check)
}

func TestEvaluatePositionExit_TakeProfitAndStopLoss(t *testing.T) {
	t.Parallel()

	e := NewExitEvaluator(holdingExiter(), config.DefaultParameters)

	winner := basePosition()
	winner.TakeProfitPct = 20
	winner.CurrentValueUSD = 1_150
	winner.FeesEarnedUSD = 80 // net +23%

	verdict := e.EvaluatePositionExit(winner, stableSnapshot())
	require.True(t, verdict.Triggered)
	assert.Equal(t, "take-profit", verdict.Check)

	loser := basePosition()
	loser.StopLossPct = 10
	loser.CurrentValueUSD = 850 // net -15%

	verdict = e.EvaluatePositionExit(loser, stableSnapshot())
	require.True(t, verdict.Triggered)
	assert.Equal(t, "stop-loss", verdict.Check)
	assert.Equal(t, types.UrgencyHigh, verdict.Urgency)

	// Zero bounds disable both rules.
	disabled := basePosition()
	disabled.CurrentValueUSD = 500
	assert.False(t, e.EvaluatePositionExit(disabled, stableSnapshot()).Triggered)
}

func TestEvaluatePositionExit_ImpermanentLoss(t *testing.T) {
	t.Parallel()

	e := NewExitEvaluator(holdingExiter(), config.DefaultParameters)

	// 5x price move: IL = (2*sqrt(5)/6 - 1)*100 = -25.46%, past the 10% ceiling.
	snap := stableSnapshot()
	snap.PriceUSD = 500

	verdict := e.EvaluatePositionExit(basePosition(), snap)
	require.True(t, verdict.Triggered)
	assert.Equal(t, "impermanent-loss", verdict.Check)
	assert.InDelta(t, -25.46, verdict.Details["il_pct"], 0.01)

	// Missing entry price degrades to no verdict.
	pos := basePosition()
	pos.EntryPriceUSD = 0
	assert.False(t, e.EvaluatePositionExit(pos, snap).Triggered)
}

func TestEvaluatePositionExit_YieldAndLiquidityDecline(t *testing.T) {
	t.Parallel()

	e := NewExitEvaluator(holdingExiter(), config.DefaultParameters)

	yieldDrop := stableSnapshot()
	yieldDrop.YieldRatePct = 30 // 62.5% below the 80% entry yield

	verdict := e.EvaluatePositionExit(basePosition(), yieldDrop)
	require.True(t, verdict.Triggered)
	assert.Equal(t, "yield-decline", verdict.Check)

	drained := stableSnapshot()
	drained.TvlUSD = 250_000 // 50% below entry TVL, past the 40% ceiling

	verdict = e.EvaluatePositionExit(basePosition(), drained)
	require.True(t, verdict.Triggered)
	assert.Equal(t, "liquidity-drain", verdict.Check)
	assert.Equal(t, types.UrgencyHigh, verdict.Urgency)
}

func TestEvaluatePositionExit_SecurityAlert(t *testing.T) {
	t.Parallel()

	e := NewExitEvaluator(holdingExiter(), config.DefaultParameters)

	escalated := stableSnapshot()
	escalated.BaseToken.Security.Tier = types.RiskTierHigh

	verdict := e.EvaluatePositionExit(basePosition(), escalated)
	require.True(t, verdict.Triggered)
	assert.Equal(t, "security-alert", verdict.Check)

	// Already high at entry is not an escalation.
	pos := basePosition()
	pos.EntryBaseTier = types.RiskTierHigh
	assert.False(t, e.EvaluatePositionExit(pos, escalated).Triggered)

	// An authority appearing after entry triggers even with stable tiers.
	authority := stableSnapshot()
	authority.QuoteToken.Security.FreezeAuthority = true
	verdict = e.EvaluatePositionExit(basePosition(), authority)
	require.True(t, verdict.Triggered)
	assert.Equal(t, "security-alert", verdict.Check)
}
