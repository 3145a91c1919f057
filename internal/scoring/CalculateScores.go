/*

This file contains the scoring engine: it converts one pool snapshot into a
normalized 0-100 composite score along four independent axes. Scoring is a pure
function of the snapshot and the validated parameters - it has no failure mode.
Missing or degenerate fields contribute zero instead of erroring, per the
degrade-gracefully rule for data-quality issues.

*/

package scoring

import (
	"math"

	"github.com/meridian-fi/alm/internal/logger"
	"github.com/meridian-fi/alm/internal/types"
)

var scoreLogger = logger.GetForComponent("scoring_engine")

// Saturation points for the profitability bands.
const (
	yieldSaturationPct    = 200.0 // yield >= 200% APR earns the full 40 points
	feeTvlSaturationPct   = 1.0   // 24h fees >= 1% of TVL earns the full 30 points
	volTvlSaturationRatio = 2.0   // 24h volume >= 2x TVL earns the full 20 points
)

// Liquidity tiers.
const (
	tvlFullScoreUSD  = 1_000_000.0
	txnsFullScore24h = 1000.0
)

// CalculateScoreSet computes all four sub-scores and the weighted overall
// score for one snapshot. All outputs are clamped to [0,100] and rounded to
// integers; ranking stability depends on this rounding being deterministic.
func CalculateScoreSet(snap types.PoolSnapshot, params types.Parameters) types.ScoreSet {
	profitability := CalculateProfitabilityScore(snap)
	risk := CalculateRiskScore(snap)
	liquidity := CalculateLiquidityScore(snap)
	market := CalculateMarketScore(snap)

	overall := profitability*params.ProfitabilityWeight +
		risk*params.RiskWeight +
		liquidity*params.LiquidityWeight +
		market*params.MarketWeight

	set := types.ScoreSet{
		Pool:          snap.Address,
		Profitability: clampScore(profitability),
		Risk:          clampScore(risk),
		Liquidity:     clampScore(liquidity),
		Market:        clampScore(market),
		Overall:       clampScore(overall),
	}

	scoreLogger.Debug().
		Str("pool", string(snap.Address)).
		Str("name", snap.Name).
		Int("profitability", set.Profitability).
		Int("risk", set.Risk).
		Int("liquidity", set.Liquidity).
		Int("market", set.Market).
		Int("overall", set.Overall).
		Msg("Score set calculated")

	return set
}

// CalculateProfitabilityScore maps yield, fee efficiency and turnover onto
// 0-100. Each band is piecewise linear up to its saturation point:
//   - annualized yield, saturating at >=200% for 40 points
//   - 24h fee-to-TVL ratio, saturating at >=1% for 30 points
//   - 24h volume-to-TVL ratio, saturating at >=2x for 20 points
//
// The remaining 10 points are reserved for an incentive-reward bonus which is
// not yet sourced, so they currently always contribute 0.
func CalculateProfitabilityScore(snap types.PoolSnapshot) float64 {
	score := band(snap.YieldRatePct, yieldSaturationPct, 40)

	if snap.TvlUSD > 0 {
		feeRatePct := snap.Fees24hUSD / snap.TvlUSD * 100
		score += band(feeRatePct, feeTvlSaturationPct, 30)

		volumeRatio := snap.Volume24hUSD / snap.TvlUSD
		score += band(volumeRatio, volTvlSaturationRatio, 20)
	}

	// Incentive-reward bonus: reserved, always 0 for now.

	return score
}

// CalculateRiskScore rates how safe a pool looks, higher meaning safer.
// It starts from 100 and deducts for token security tier, active mint/freeze
// authorities, holder concentration, 24h volatility and the blacklist flag.
func CalculateRiskScore(snap types.PoolSnapshot) float64 {
	score := 100.0

	score -= securityTierDeduction(snap.BaseToken.Security.Tier, snap.QuoteToken.Security.Tier)
	score -= authorityDeduction(snap)
	score -= concentrationDeduction(snap.Holders.TopConcentrationPct)
	score -= volatilityDeduction(math.Abs(snap.PriceChange24hPct))

	if snap.Blacklisted {
		score -= 10
	}

	return score
}

// securityTierDeduction deducts up to 40 points for the worst risk tier of
// the pair's tokens.
func securityTierDeduction(tiers ...types.RiskTier) float64 {
	worst := 0.0
	for _, tier := range tiers {
		var d float64
		switch tier {
		case types.RiskTierHigh:
			d = 40
		case types.RiskTierMedium:
			d = 20
		default:
			d = 0
		}
		if d > worst {
			worst = d
		}
	}
	return worst
}

// authorityDeduction deducts 10 points per detected live authority, capped
// at 20 across the pair.
func authorityDeduction(snap types.PoolSnapshot) float64 {
	deduction := 0.0
	for _, sec := range []types.TokenSecurity{snap.BaseToken.Security, snap.QuoteToken.Security} {
		if sec.MintAuthority {
			deduction += 10
		}
		if sec.FreezeAuthority {
			deduction += 10
		}
	}
	return math.Min(deduction, 20)
}

// concentrationDeduction applies tiered deductions for top-holder
// concentration above 80/60/40/20 percent.
func concentrationDeduction(concentrationPct float64) float64 {
	switch {
	case concentrationPct > 80:
		return 20
	case concentrationPct > 60:
		return 15
	case concentrationPct > 40:
		return 10
	case concentrationPct > 20:
		return 5
	default:
		return 0
	}
}

// volatilityDeduction applies tiered deductions for 24h volatility above
// 50/30/20/10 percent.
func volatilityDeduction(volatilityPct float64) float64 {
	switch {
	case volatilityPct > 50:
		return 10
	case volatilityPct > 30:
		return 7
	case volatilityPct > 20:
		return 5
	case volatilityPct > 10:
		return 3
	default:
		return 0
	}
}

// CalculateLiquidityScore rates depth and activity: TVL tier (40), turnover
// ratio (30) and 24h transaction count (30), each scaled linearly below its
// full-score threshold.
func CalculateLiquidityScore(snap types.PoolSnapshot) float64 {
	score := band(snap.TvlUSD, tvlFullScoreUSD, 40)

	if snap.TvlUSD > 0 {
		score += band(snap.Volume24hUSD/snap.TvlUSD, 1.0, 30)
	}

	score += band(float64(snap.Txns24h()), txnsFullScore24h, 30)

	return score
}

// CalculateMarketScore rates current market conditions around a neutral
// baseline of 50: +20 for a consistent positive trend across the 1h/6h/24h
// windows, -20 for extreme 24h volatility, and up to +-30 for how balanced
// the 24h buy/sell transaction flow is.
func CalculateMarketScore(snap types.PoolSnapshot) float64 {
	score := 50.0

	if snap.PriceChange1hPct > 0 && snap.PriceChange6hPct > 0 && snap.PriceChange24hPct > 0 {
		score += 20
	}

	if math.Abs(snap.PriceChange24hPct) > 50 {
		score -= 20
	}

	if ratio, ok := snap.BuyRatio24h(); ok {
		// Perfectly balanced flow earns +30, drifting to 0 at an 80/20 split
		// and -30 beyond it. No transactions at all is treated as no signal.
		deviation := math.Abs(ratio - 0.5)
		if deviation >= 0.3 {
			score -= 30
		} else {
			score += 30 * (1 - deviation/0.3)
		}
	}

	return score
}

// band linearly maps value onto [0,points], saturating at the given ceiling.
// Non-finite or negative inputs contribute nothing.
func band(value, saturation, points float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 || saturation <= 0 {
		return 0
	}
	fraction := value / saturation
	if fraction > 1 {
		fraction = 1
	}
	return fraction * points
}

// clampScore clamps to [0,100] and rounds to the nearest integer.
func clampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(math.Round(score))
}
