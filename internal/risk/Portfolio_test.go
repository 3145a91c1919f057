package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-fi/alm/internal/config"
	"github.com/meridian-fi/alm/internal/types"
)

// fakeClock is an adjustable clock for breaker cooldown tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)}
}

func calmPool(addr string) types.PoolSnapshot {
	return types.PoolSnapshot{
		Address:      types.PoolAddress(addr),
		Name:         addr,
		TvlUSD:       500_000,
		Volume24hUSD: 288_000, // 1000/5m average
		Volume5mUSD:  1_000,
		PriceUSD:     100,
	}
}

func distressedPool(addr string) types.PoolSnapshot {
	snap := calmPool(addr)
	snap.PriceChange1hPct = -60
	return snap
}

func observedSet(distressed, calm int) []types.PoolSnapshot {
	var out []types.PoolSnapshot
	for i := 0; i < distressed; i++ {
		out = append(out, distressedPool("hot-"+string(rune('a'+i))))
	}
	for i := 0; i < calm; i++ {
		out = append(out, calmPool("calm-"+string(rune('a'+i))))
	}
	return out
}

func activePosition(pool string, capitalUSD float64) types.Position {
	return types.Position{
		ID:              "pos-" + pool,
		Pool:            types.PoolAddress(pool),
		Status:          types.PositionActive,
		CapitalUSD:      capitalUSD,
		CurrentValueUSD: capitalUSD,
	}
}

// positionsFor opens one flat position in every observed pool so breaker
// tests evaluate distress over the pools our capital sits in.
func positionsFor(observed []types.PoolSnapshot) []types.Position {
	var out []types.Position
	for _, snap := range observed {
		out = append(out, activePosition(string(snap.Address), 1_000))
	}
	return out
}

func TestEvaluateEntry_CleanEntryAllowed(t *testing.T) {
	t.Parallel()

	s := NewPortfolioState(config.DefaultParameters)
	decision := s.EvaluateEntry(calmPool("target"), 5_000, nil, observedSet(0, 10))
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reasons)
	assert.InDelta(t, 1.0, decision.SizeMultiplier, 1e-9)
}

func TestEvaluateEntry_CircuitBreaker(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newPortfolioState(config.DefaultParameters, clock.Now)

	// 2 of 10 active pools swinging is under the 30% trip fraction.
	observed := observedSet(2, 8)
	decision := s.EvaluateEntry(calmPool("target"), 1_000, positionsFor(observed), observed)
	assert.True(t, decision.Allowed)

	// 4 of 10 trips the breaker.
	observed = observedSet(4, 6)
	decision = s.EvaluateEntry(calmPool("target"), 1_000, positionsFor(observed), observed)
	require.False(t, decision.Allowed)
	require.Len(t, decision.Reasons, 1)
	assert.Contains(t, decision.Reasons[0], "circuit breaker tripped")

	// The market recovers but the cooldown still blocks.
	clock.Advance(5 * time.Minute)
	observed = observedSet(0, 10)
	decision = s.EvaluateEntry(calmPool("target"), 1_000, positionsFor(observed), observed)
	require.False(t, decision.Allowed)
	assert.Contains(t, decision.Reasons[0], "cooling down")

	// Past the cooldown with a calm market, entries flow again.
	clock.Advance(11 * time.Minute)
	decision = s.EvaluateEntry(calmPool("target"), 1_000, positionsFor(observed), observed)
	assert.True(t, decision.Allowed)
}

func TestEvaluateEntry_VolumeCollapseCountsAsDistress(t *testing.T) {
	t.Parallel()

	s := NewPortfolioState(config.DefaultParameters)

	collapsed := calmPool("collapsed")
	collapsed.Volume5mUSD = 0.5 // far below 0.1% of the 1000/5m average

	observed := []types.PoolSnapshot{collapsed, calmPool("a")}
	decision := s.EvaluateEntry(calmPool("target"), 1_000, positionsFor(observed), observed)
	require.False(t, decision.Allowed)
	assert.Contains(t, decision.Reasons[0], "volume collapse")
}

func TestEvaluateEntry_CircuitBreakerCountsConditionsSeparately(t *testing.T) {
	t.Parallel()

	s := NewPortfolioState(config.DefaultParameters)

	// 2 pools swinging and 2 collapsed out of 10: 20% per condition, neither
	// alone crosses the 30% fraction, so the breaker stays unarmed.
	observed := observedSet(2, 8)
	observed[2].Volume5mUSD = 0.5
	observed[3].Volume5mUSD = 0.5

	decision := s.EvaluateEntry(calmPool("target"), 1_000, positionsFor(observed), observed)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reasons)

	// Two more swinging pools push that condition past the fraction on its own.
	observed[4].PriceChange1hPct = 80
	observed[5].PriceChange1hPct = -70
	decision = s.EvaluateEntry(calmPool("target"), 1_000, positionsFor(observed), observed)
	require.False(t, decision.Allowed)
	assert.Contains(t, decision.Reasons[0], "price swings")
}

func TestEvaluateEntry_CircuitBreakerIgnoresIdlePools(t *testing.T) {
	t.Parallel()

	s := NewPortfolioState(config.DefaultParameters)

	// A distressed market with no capital deployed never arms the breaker;
	// only the pools of active positions are measured.
	decision := s.EvaluateEntry(calmPool("target"), 1_000, nil, observedSet(8, 2))
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reasons)
}

func TestEvaluateEntry_ExposureCeiling(t *testing.T) {
	t.Parallel()

	params := config.DefaultParameters
	params.TotalCapitalUSD = 10_000
	params.MaxExposureFraction = 0.8
	s := NewPortfolioState(params)

	active := []types.Position{
		activePosition("a", 4_000),
		activePosition("b", 3_000),
	}

	// 7000 deployed + 1000 proposed = 8000, exactly at the ceiling.
	decision := s.EvaluateEntry(calmPool("target"), 1_000, active, observedSet(0, 5))
	assert.True(t, decision.Allowed)

	// One dollar more is over.
	decision = s.EvaluateEntry(calmPool("target"), 1_001, active, observedSet(0, 5))
	require.False(t, decision.Allowed)
	assert.Contains(t, decision.Reasons[0], "exposure")
	// Rejections still carry the sizing the entry would have had.
	assert.InDelta(t, 1.0, decision.SizeMultiplier, 1e-9)
}

func TestEvaluateEntry_DrawdownCeiling(t *testing.T) {
	t.Parallel()

	params := config.DefaultParameters
	params.TotalCapitalUSD = 100_000
	params.MaxDrawdownPct = 15
	s := NewPortfolioState(params)

	// Ratchet the peak with a winning book.
	winning := []types.Position{activePosition("a", 10_000)}
	winning[0].CurrentValueUSD = 30_000
	decision := s.EvaluateEntry(calmPool("target"), 1_000, winning, observedSet(0, 5))
	assert.True(t, decision.Allowed)

	// Equity falls back to 100k against a 120k peak: 16.7% drawdown.
	flat := []types.Position{activePosition("a", 10_000)}
	decision = s.EvaluateEntry(calmPool("target"), 1_000, flat, observedSet(0, 5))
	require.False(t, decision.Allowed)
	assert.Contains(t, decision.Reasons[0], "drawdown")
}

func TestEvaluateEntry_TokenCorrelationWarns(t *testing.T) {
	t.Parallel()

	params := config.DefaultParameters
	params.MaxSharedTokenPositions = 2
	s := NewPortfolioState(params)

	solPool := func(addr, other string) types.PoolSnapshot {
		snap := calmPool(addr)
		snap.BaseToken = types.TokenInfo{Symbol: "SOL", Mint: "sol-mint"}
		snap.QuoteToken = types.TokenInfo{Symbol: other, Mint: other + "-mint"}
		return snap
	}

	observed := []types.PoolSnapshot{
		solPool("p1", "USDC"),
		solPool("p2", "USDT"),
		solPool("p3", "JUP"),
	}
	active := []types.Position{
		activePosition("p1", 1_000),
		activePosition("p2", 1_000),
		activePosition("p3", 1_000),
	}

	candidate := solPool("p4", "BONK")
	decision := s.EvaluateEntry(candidate, 1_000, active, observed)
	assert.True(t, decision.Allowed, "correlation is a warning, not a block")
	require.Len(t, decision.Warnings, 1)
	assert.Contains(t, decision.Warnings[0], "share a token")
}

func TestEvaluateEntry_VolatilitySizing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		change24h  float64
		multiplier float64
	}{
		{"calm", 2, 1.0},
		{"moderate", 10, 0.75},
		{"elevated", 25, 0.5},
		{"violent", 45, 0.25},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewPortfolioState(config.DefaultParameters)
			candidate := calmPool("target")
			candidate.PriceChange24hPct = tt.change24h
			decision := s.EvaluateEntry(candidate, 1_000, nil, observedSet(0, 5))
			assert.InDelta(t, tt.multiplier, decision.SizeMultiplier, 1e-9)
		})
	}
}
