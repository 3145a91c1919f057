/*

This file contains the reference strategy set. Each strategy is a set of
numeric thresholds over snapshot fields (volume, price-change bands,
transaction counts, market cap, buy/sell balance) plus its own termination
condition, typically a combination of elapsed holding time and a market
reversal. Priorities order the catalogue so that the most specific,
highest-risk strategies are tested first.

*/

package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/meridian-fi/alm/internal/types"
)

// Selection priorities of the reference set. Spread out so operators can
// register custom strategies between them.
const (
	PriorityLaunchSniper   = 95
	PriorityVolumeSurge    = 85
	PriorityHighVolume     = 70
	PriorityMeanRevert     = 60
	PriorityDCAAccumulate  = 50
	PriorityBalanced       = 40
	PriorityPassiveWide    = 30
	PriorityConservative   = 20
)

// DefaultCatalogue registers the reference strategy set. It panics on a
// registration error since the definitions below are static.
func DefaultCatalogue() *Catalogue {
	c, err := NewCatalogue(
		LaunchSniper(),
		VolumeSurge(),
		HighVolume(),
		MeanRevert(),
		DCAAccumulate(),
		Balanced(),
		PassiveWide(),
		Conservative(),
	)
	if err != nil {
		panic(fmt.Sprintf("default catalogue registration failed: %v", err))
	}
	return c
}

// neutralDefault is the fallback when no eligibility predicate matches:
// balanced allocation, medium timeframe, medium tightness.
func neutralDefault() Definition {
	return Balanced()
}

// LaunchSniper targets freshly launched pools in an active pump: heavy
// 5-minute volume, rising price and buy-dominated flow. Ultra-fast holds with
// very tight bins to farm the launch fee spike.
func LaunchSniper() Definition {
	return Definition{
		Name:      "launch-sniper",
		Priority:  PriorityLaunchSniper,
		Timeframe: types.TimeframeUltraFast,
		Tightness: types.TightnessVeryTight,
		Risk:      types.RiskClassHigh,
		Eligible: func(snap types.PoolSnapshot) types.EligibilityResult {
			if snap.MarketCapUSD < 100_000 {
				return noMatch("market cap below $100k floor")
			}
			if snap.Volume5mUSD < 20_000 {
				return noMatch("5m volume below $20k")
			}
			if snap.PriceChange5mPct < 3 {
				return noMatch("no active 5m price momentum")
			}
			total1h := snap.Buys1h + snap.Sells1h
			if total1h == 0 {
				return noMatch("no 1h transactions")
			}
			buyRatio := float64(snap.Buys1h) / float64(total1h)
			if buyRatio < 0.6 {
				return noMatch(fmt.Sprintf("1h buy ratio %.2f below 0.60", buyRatio))
			}

			confidence := 75.0
			if snap.PriceChange5mPct >= 8 {
				confidence += 10
			}
			if buyRatio >= 0.7 {
				confidence += 10
			}
			return types.EligibilityResult{
				Matches:    true,
				Reason:     fmt.Sprintf("launch pump: $%.0f 5m volume, %.1f%% 5m move, %.0f%% buys", snap.Volume5mUSD, snap.PriceChange5mPct, buyRatio*100),
				Confidence: math.Min(confidence, 95),
				Metadata:   map[string]float64{"buy_ratio_1h": buyRatio, "volume_5m_usd": snap.Volume5mUSD},
			}
		},
		Allocation: func(snap types.PoolSnapshot) types.TokenAllocation {
			// Lean into the base token while momentum is up; the fee spike
			// pays for the added divergence exposure.
			return types.TokenAllocation{BasePct: 0.65}
		},
		ExitTest: func(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
			age := pos.Age(asOf(snap))
			if age >= 2*time.Hour {
				return exitVerdict("launch-sniper", "launch window expired after 2h", types.UrgencyMedium, nil)
			}
			if age >= 30*time.Minute {
				if snap.Volume5mUSD < 5_000 {
					return exitVerdict("launch-sniper", "launch volume collapsed below $5k/5m", types.UrgencyHigh,
						map[string]float64{"volume_5m_usd": snap.Volume5mUSD})
				}
				if snap.PriceChange1hPct <= -10 {
					return exitVerdict("launch-sniper", "launch reversed: 1h price down more than 10%", types.UrgencyHigh,
						map[string]float64{"price_change_1h_pct": snap.PriceChange1hPct})
				}
			}
			return types.Hold()
		},
	}
}

// VolumeSurge targets pools whose hourly volume runs well above their own
// 24h baseline - event-driven flow that usually fades within hours.
func VolumeSurge() Definition {
	return Definition{
		Name:      "volume-surge",
		Priority:  PriorityVolumeSurge,
		Timeframe: types.TimeframeFast,
		Tightness: types.TightnessTight,
		Risk:      types.RiskClassHigh,
		Eligible: func(snap types.PoolSnapshot) types.EligibilityResult {
			hourlyBaseline := snap.Volume24hUSD / 24
			if hourlyBaseline <= 0 {
				return noMatch("no 24h volume baseline")
			}
			surge := snap.Volume1hUSD / hourlyBaseline
			if surge < 3 {
				return noMatch(fmt.Sprintf("1h volume only %.1fx baseline", surge))
			}
			if snap.Volume1hUSD < 50_000 {
				return noMatch("1h volume below $50k")
			}
			if snap.Txns24h() < 300 {
				return noMatch("under 300 transactions in 24h")
			}
			return types.EligibilityResult{
				Matches:    true,
				Reason:     fmt.Sprintf("volume surge: %.1fx hourly baseline on $%.0f", surge, snap.Volume1hUSD),
				Confidence: math.Min(60+surge*5, 95),
				Metadata:   map[string]float64{"surge_factor": surge},
			}
		},
		Allocation: momentumAllocation,
		ExitTest: func(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
			age := pos.Age(asOf(snap))
			if age >= 6*time.Hour {
				return exitVerdict("volume-surge", "surge window expired after 6h", types.UrgencyLow, nil)
			}
			hourlyBaseline := snap.Volume24hUSD / 24
			if age >= time.Hour && hourlyBaseline > 0 && snap.Volume1hUSD < hourlyBaseline {
				return exitVerdict("volume-surge", "surge collapsed back to baseline", types.UrgencyMedium,
					map[string]float64{"volume_1h_usd": snap.Volume1hUSD, "hourly_baseline_usd": hourlyBaseline})
			}
			return types.Hold()
		},
	}
}

// HighVolume targets pools with sustained deep turnover rather than a spike:
// the steady fee engine of the catalogue.
func HighVolume() Definition {
	return Definition{
		Name:      "high-volume",
		Priority:  PriorityHighVolume,
		Timeframe: types.TimeframeFast,
		Tightness: types.TightnessTight,
		Risk:      types.RiskClassMedium,
		Eligible: func(snap types.PoolSnapshot) types.EligibilityResult {
			if snap.Volume24hUSD < 1_000_000 {
				return noMatch("24h volume below $1M")
			}
			if snap.TvlUSD <= 0 || snap.Volume24hUSD/snap.TvlUSD < 1 {
				return noMatch("turnover below 1x TVL")
			}
			if snap.Txns24h() < 1000 {
				return noMatch("under 1000 transactions in 24h")
			}
			turnover := snap.Volume24hUSD / snap.TvlUSD
			return types.EligibilityResult{
				Matches:    true,
				Reason:     fmt.Sprintf("sustained high volume: $%.0f at %.1fx turnover", snap.Volume24hUSD, turnover),
				Confidence: math.Min(60+turnover*10, 90),
				Metadata:   map[string]float64{"turnover": turnover},
			}
		},
		Allocation: momentumAllocation,
		ExitTest: func(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
			if snap.Volume24hUSD < 500_000 {
				return exitVerdict("high-volume", "24h volume fell below $500k floor", types.UrgencyMedium,
					map[string]float64{"volume_24h_usd": snap.Volume24hUSD})
			}
			if pos.Age(asOf(snap)) >= 24*time.Hour && snap.YieldRatePct < 20 {
				return exitVerdict("high-volume", "yield no longer justifies tight bins after 24h", types.UrgencyLow, nil)
			}
			return types.Hold()
		},
	}
}

// MeanRevert targets range-bound pools: flat on the day, flat on the hour,
// with enough volume to keep fees flowing through very tight bins.
func MeanRevert() Definition {
	return Definition{
		Name:      "mean-revert",
		Priority:  PriorityMeanRevert,
		Timeframe: types.TimeframeMedium,
		Tightness: types.TightnessVeryTight,
		Risk:      types.RiskClassMedium,
		Eligible: func(snap types.PoolSnapshot) types.EligibilityResult {
			if math.Abs(snap.PriceChange24hPct) > 3 {
				return noMatch("not range-bound on 24h window")
			}
			if math.Abs(snap.PriceChange1hPct) > 1 {
				return noMatch("not range-bound on 1h window")
			}
			if snap.Volume24hUSD < 250_000 {
				return noMatch("24h volume below $250k")
			}
			if snap.TvlUSD < 100_000 {
				return noMatch("TVL below $100k")
			}
			return types.EligibilityResult{
				Matches:    true,
				Reason:     fmt.Sprintf("range-bound: %.2f%% 24h move on $%.0f volume", snap.PriceChange24hPct, snap.Volume24hUSD),
				Confidence: 80 - math.Abs(snap.PriceChange24hPct)*5,
			}
		},
		ExitTest: func(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
			if pos.EntryPriceUSD > 0 && snap.PriceUSD > 0 {
				movePct := math.Abs(snap.PriceUSD-pos.EntryPriceUSD) / pos.EntryPriceUSD * 100
				if movePct > 4 {
					return exitVerdict("mean-revert", "price left the entry range", types.UrgencyHigh,
						map[string]float64{"move_pct": movePct})
				}
			}
			if math.Abs(snap.PriceChange24hPct) > 10 {
				return exitVerdict("mean-revert", "range regime broke down", types.UrgencyMedium,
					map[string]float64{"price_change_24h_pct": snap.PriceChange24hPct})
			}
			return types.Hold()
		},
	}
}

// DCAAccumulate enters established tokens on a sharp dip, single-sided on the
// quote token so the position buys the base token as price recovers.
func DCAAccumulate() Definition {
	return Definition{
		Name:      "dca-accumulate",
		Priority:  PriorityDCAAccumulate,
		Timeframe: types.TimeframeSlow,
		Tightness: types.TightnessWide,
		Risk:      types.RiskClassLow,
		Eligible: func(snap types.PoolSnapshot) types.EligibilityResult {
			if snap.PriceChange24hPct > -10 {
				return noMatch("no meaningful dip on 24h window")
			}
			if snap.MarketCapUSD < 1_000_000 {
				return noMatch("market cap below $1M, dip could be terminal")
			}
			if snap.BaseToken.Security.Tier == types.RiskTierHigh || snap.QuoteToken.Security.Tier == types.RiskTierHigh {
				return noMatch("high security tier, not accumulating")
			}
			if snap.Blacklisted {
				return noMatch("pool blacklisted")
			}
			return types.EligibilityResult{
				Matches:    true,
				Reason:     fmt.Sprintf("accumulating %.1f%% dip on established token", snap.PriceChange24hPct),
				Confidence: math.Min(60+math.Abs(snap.PriceChange24hPct), 85),
			}
		},
		Allocation: func(snap types.PoolSnapshot) types.TokenAllocation {
			return types.TokenAllocation{BasePct: 0, SingleSided: true, Side: "quote"}
		},
		ExitTest: func(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
			if pos.EntryPriceUSD > 0 && snap.PriceUSD > 0 {
				recoveryPct := (snap.PriceUSD - pos.EntryPriceUSD) / pos.EntryPriceUSD * 100
				if recoveryPct >= 15 {
					return exitVerdict("dca-accumulate", "recovery target reached", types.UrgencyLow,
						map[string]float64{"recovery_pct": recoveryPct})
				}
			}
			if pos.Age(asOf(snap)) >= 72*time.Hour {
				return exitVerdict("dca-accumulate", "accumulation window expired after 72h", types.UrgencyLow, nil)
			}
			return types.Hold()
		},
	}
}

// Balanced is the workhorse and the neutral fallback: any pool with minimum
// viable depth and activity, medium everything.
func Balanced() Definition {
	return Definition{
		Name:      "balanced",
		Priority:  PriorityBalanced,
		Timeframe: types.TimeframeMedium,
		Tightness: types.TightnessMedium,
		Risk:      types.RiskClassMedium,
		Eligible: func(snap types.PoolSnapshot) types.EligibilityResult {
			if snap.TvlUSD < 50_000 {
				return noMatch("TVL below $50k")
			}
			if snap.Volume24hUSD < 10_000 {
				return noMatch("24h volume below $10k")
			}
			return types.EligibilityResult{
				Matches:    true,
				Reason:     "viable depth and activity for a balanced position",
				Confidence: 60,
			}
		},
		ExitTest: func(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
			if pos.Age(asOf(snap)) >= 48*time.Hour {
				return exitVerdict("balanced", "position window expired after 48h", types.UrgencyLow, nil)
			}
			return types.Hold()
		},
	}
}

// PassiveWide parks capital in deep, quiet, yielding pools for multi-day
// holds with wide bins.
func PassiveWide() Definition {
	return Definition{
		Name:      "passive-wide",
		Priority:  PriorityPassiveWide,
		Timeframe: types.TimeframeSlow,
		Tightness: types.TightnessWide,
		Risk:      types.RiskClassLow,
		Eligible: func(snap types.PoolSnapshot) types.EligibilityResult {
			if snap.TvlUSD < 2_000_000 {
				return noMatch("TVL below $2M")
			}
			if math.Abs(snap.PriceChange24hPct) > 30 {
				return noMatch("too volatile for a passive hold")
			}
			if snap.YieldRatePct < 15 {
				return noMatch("yield below 15% APR")
			}
			return types.EligibilityResult{
				Matches:    true,
				Reason:     fmt.Sprintf("deep quiet pool at %.0f%% APR", snap.YieldRatePct),
				Confidence: 70,
			}
		},
		ExitTest: func(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
			if snap.TvlUSD < 1_000_000 {
				return exitVerdict("passive-wide", "pool depth fell below $1M", types.UrgencyMedium,
					map[string]float64{"tvl_usd": snap.TvlUSD})
			}
			if pos.Age(asOf(snap)) >= 7*24*time.Hour {
				return exitVerdict("passive-wide", "passive window expired after 7d", types.UrgencyLow, nil)
			}
			return types.Hold()
		},
	}
}

// Conservative is the lowest-priority strategy: only the deepest, cleanest
// pools, very wide bins, two-week holds.
func Conservative() Definition {
	return Definition{
		Name:      "conservative",
		Priority:  PriorityConservative,
		Timeframe: types.TimeframeSlow,
		Tightness: types.TightnessVeryWide,
		Risk:      types.RiskClassLow,
		Eligible: func(snap types.PoolSnapshot) types.EligibilityResult {
			if snap.TvlUSD < 5_000_000 {
				return noMatch("TVL below $5M")
			}
			if snap.BaseToken.Security.Tier != types.RiskTierLow || snap.QuoteToken.Security.Tier != types.RiskTierLow {
				return noMatch("pair is not uniformly low risk tier")
			}
			if math.Abs(snap.PriceChange24hPct) > 15 {
				return noMatch("too volatile for a conservative hold")
			}
			return types.EligibilityResult{
				Matches:    true,
				Reason:     "deep, clean pair suitable for wide-range hold",
				Confidence: 75,
			}
		},
		ExitTest: func(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
			if math.Abs(snap.PriceChange24hPct) > 40 {
				return exitVerdict("conservative", "volatility regime no longer conservative", types.UrgencyMedium,
					map[string]float64{"price_change_24h_pct": snap.PriceChange24hPct})
			}
			if pos.Age(asOf(snap)) >= 14*24*time.Hour {
				return exitVerdict("conservative", "hold window expired after 14d", types.UrgencyLow, nil)
			}
			return types.Hold()
		},
	}
}

// momentumAllocation biases allocation toward the base token when short-term
// momentum is positive and away from it when negative, 50/50 otherwise.
func momentumAllocation(snap types.PoolSnapshot) types.TokenAllocation {
	switch {
	case snap.PriceChange1hPct >= 5:
		return types.TokenAllocation{BasePct: 0.6}
	case snap.PriceChange1hPct <= -5:
		return types.TokenAllocation{BasePct: 0.4}
	default:
		return types.Neutral5050()
	}
}

func noMatch(reason string) types.EligibilityResult {
	return types.EligibilityResult{Reason: reason}
}

func exitVerdict(check, reason string, urgency types.Urgency, details map[string]float64) types.RiskVerdict {
	return types.RiskVerdict{
		Triggered: true,
		Check:     "strategy:" + check,
		Reason:    reason,
		Urgency:   urgency,
		Details:   details,
	}
}
