package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-fi/alm/internal/config"
	"github.com/meridian-fi/alm/internal/types"
)

func healthySnapshot() types.PoolSnapshot {
	return types.PoolSnapshot{
		Address: "pool-healthy",
		Name:    "SOL-USDC",
		BaseToken: types.TokenInfo{
			Symbol:   "SOL",
			Mint:     "So11111111111111111111111111111111111111112",
			Security: types.TokenSecurity{Tier: types.RiskTierLow},
		},
		QuoteToken: types.TokenInfo{
			Symbol:   "USDC",
			Mint:     "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			Security: types.TokenSecurity{Tier: types.RiskTierLow},
		},
		TvlUSD:       500_000,
		YieldRatePct: 80,
		MarketCapUSD: 20_000_000,
		Fees24hUSD:   2_500,
		Volume24hUSD: 600_000,
		Volume1hUSD:  30_000,
		Volume5mUSD:  2_500,
		PriceUSD:     150,
		Buys24h:      800,
		Sells24h:     700,
		Holders:      types.HolderInfo{TopConcentrationPct: 15},
		FetchedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCalculateScoreSet_Bounds(t *testing.T) {
	t.Parallel()

	toxic := healthySnapshot()
	toxic.BaseToken.Security = types.TokenSecurity{Tier: types.RiskTierHigh, MintAuthority: true, FreezeAuthority: true}
	toxic.QuoteToken.Security = types.TokenSecurity{Tier: types.RiskTierHigh, MintAuthority: true}
	toxic.Holders.TopConcentrationPct = 95
	toxic.PriceChange24hPct = -85
	toxic.Blacklisted = true

	saturated := healthySnapshot()
	saturated.YieldRatePct = 5000
	saturated.Fees24hUSD = saturated.TvlUSD
	saturated.Volume24hUSD = saturated.TvlUSD * 50
	saturated.Buys24h = 100_000
	saturated.Sells24h = 100_000

	snaps := []types.PoolSnapshot{
		healthySnapshot(),
		toxic,
		saturated,
		{}, // fully zero snapshot must not panic or escape the range
	}

	for _, snap := range snaps {
		set := CalculateScoreSet(snap, config.DefaultParameters)
		for name, score := range map[string]int{
			"profitability": set.Profitability,
			"risk":          set.Risk,
			"liquidity":     set.Liquidity,
			"market":        set.Market,
			"overall":       set.Overall,
		} {
			assert.GreaterOrEqual(t, score, 0, "%s for %s", name, snap.Address)
			assert.LessOrEqual(t, score, 100, "%s for %s", name, snap.Address)
		}
	}
}

func TestCalculateScoreSet_Deterministic(t *testing.T) {
	t.Parallel()

	snap := healthySnapshot()
	first := CalculateScoreSet(snap, config.DefaultParameters)
	second := CalculateScoreSet(snap, config.DefaultParameters)
	assert.Equal(t, first, second)
}

func TestCalculateProfitabilityScore_Saturation(t *testing.T) {
	t.Parallel()

	snap := healthySnapshot()
	snap.YieldRatePct = 250          // past the 200% saturation point
	snap.Fees24hUSD = 6_000          // 1.2% of TVL, past 1%
	snap.Volume24hUSD = 1_500_000    // 3x TVL, past 2x

	// 40 + 30 + 20, with the reserved incentive bonus contributing 0.
	assert.InDelta(t, 90.0, CalculateProfitabilityScore(snap), 1e-9)
}

func TestCalculateProfitabilityScore_Partial(t *testing.T) {
	t.Parallel()

	snap := healthySnapshot()
	snap.YieldRatePct = 100        // half of saturation -> 20
	snap.Fees24hUSD = 2_500        // 0.5% of 500k TVL -> 15
	snap.Volume24hUSD = 500_000    // 1x TVL -> 10

	assert.InDelta(t, 45.0, CalculateProfitabilityScore(snap), 1e-9)
}

func TestCalculateRiskScore_Deductions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*types.PoolSnapshot)
		want   float64
	}{
		{"clean pool", func(s *types.PoolSnapshot) {}, 100},
		{"medium tier", func(s *types.PoolSnapshot) {
			s.BaseToken.Security.Tier = types.RiskTierMedium
		}, 80},
		{"high tier dominates medium", func(s *types.PoolSnapshot) {
			s.BaseToken.Security.Tier = types.RiskTierMedium
			s.QuoteToken.Security.Tier = types.RiskTierHigh
		}, 60},
		{"authorities capped at 20", func(s *types.PoolSnapshot) {
			s.BaseToken.Security.MintAuthority = true
			s.BaseToken.Security.FreezeAuthority = true
			s.QuoteToken.Security.MintAuthority = true
		}, 80},
		{"concentration tier", func(s *types.PoolSnapshot) {
			s.Holders.TopConcentrationPct = 65
		}, 85},
		{"volatility tier", func(s *types.PoolSnapshot) {
			s.PriceChange24hPct = -35
		}, 93},
		{"blacklist", func(s *types.PoolSnapshot) {
			s.Blacklisted = true
		}, 90},
		{"everything wrong floors at zero", func(s *types.PoolSnapshot) {
			s.BaseToken.Security = types.TokenSecurity{Tier: types.RiskTierHigh, MintAuthority: true, FreezeAuthority: true}
			s.QuoteToken.Security.MintAuthority = true
			s.Holders.TopConcentrationPct = 90
			s.PriceChange24hPct = 70
			s.Blacklisted = true
		}, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			snap := healthySnapshot()
			snap.Holders.TopConcentrationPct = 0
			tt.mutate(&snap)
			assert.InDelta(t, tt.want, CalculateRiskScore(snap), 1e-9)
		})
	}
}

func TestCalculateMarketScore_Extremes(t *testing.T) {
	t.Parallel()

	best := healthySnapshot()
	best.PriceChange1hPct = 2
	best.PriceChange6hPct = 5
	best.PriceChange24hPct = 10
	best.Buys24h = 500
	best.Sells24h = 500
	assert.InDelta(t, 100.0, CalculateMarketScore(best), 1e-9)

	worst := healthySnapshot()
	worst.PriceChange1hPct = -5
	worst.PriceChange6hPct = -20
	worst.PriceChange24hPct = -60
	worst.Buys24h = 900
	worst.Sells24h = 100
	assert.InDelta(t, 0.0, CalculateMarketScore(worst), 1e-9)

	noFlow := healthySnapshot()
	noFlow.Buys24h = 0
	noFlow.Sells24h = 0
	noFlow.PriceChange1hPct = -1
	// No transactions is no buy/sell signal, not a penalty.
	assert.InDelta(t, 50.0, CalculateMarketScore(noFlow), 1e-9)
}

func TestRankPools_OrderAndStability(t *testing.T) {
	t.Parallel()

	strong := healthySnapshot()
	strong.Address = "pool-strong"
	strong.YieldRatePct = 300
	strong.Volume24hUSD = 2_000_000
	strong.TvlUSD = 1_000_000
	strong.Fees24hUSD = 12_000

	weak := types.PoolSnapshot{Address: "pool-weak", TvlUSD: 1_000}

	twinA := healthySnapshot()
	twinA.Address = "pool-twin-a"
	twinB := healthySnapshot()
	twinB.Address = "pool-twin-b"

	ranked := RankPools([]types.PoolSnapshot{weak, twinA, strong, twinB}, config.DefaultParameters)
	require.Len(t, ranked, 4)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Scores.Overall, ranked[i].Scores.Overall)
	}
	assert.Equal(t, types.PoolAddress("pool-strong"), ranked[0].Snapshot.Address)
	assert.Equal(t, types.PoolAddress("pool-weak"), ranked[3].Snapshot.Address)

	// Equal scores keep snapshot order.
	var twins []types.PoolAddress
	for _, rp := range ranked {
		if rp.Snapshot.Address == "pool-twin-a" || rp.Snapshot.Address == "pool-twin-b" {
			twins = append(twins, rp.Snapshot.Address)
		}
	}
	assert.Equal(t, []types.PoolAddress{"pool-twin-a", "pool-twin-b"}, twins)
}
