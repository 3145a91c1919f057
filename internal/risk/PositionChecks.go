/*

This file contains the per-position exit evaluation. The checks are
independent of each other, so they fan out concurrently; the verdict is the
first triggered check in declared priority order, not the first to complete.
All verdicts are gathered before one is selected, which preserves the
original sequential short-circuit semantics without serializing the work.

*/

package risk

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/meridian-fi/alm/internal/logger"
	"github.com/meridian-fi/alm/internal/types"
)

// StrategyExiter runs the strategy-specific exit test for a position.
// Satisfied by the strategy catalogue.
type StrategyExiter interface {
	ExitCheck(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict
}

// ExitEvaluator runs the ordered per-position risk checks.
type ExitEvaluator struct {
	exiter StrategyExiter
	params types.Parameters
	logger zerolog.Logger
}

func NewExitEvaluator(exiter StrategyExiter, params types.Parameters) *ExitEvaluator {
	return &ExitEvaluator{
		exiter: exiter,
		params: params,
		logger: logger.GetForComponent("risk_exit"),
	}
}

// EvaluatePositionExit evaluates whether a position must be closed given its
// current snapshot. Checks run concurrently; the returned verdict is the
// first triggered check in this fixed order:
//
//	take-profit, stop-loss (optional per-position bounds),
//	strategy exit test, impermanent loss, yield decline, security alert,
//	liquidity drain, price dump, blacklist.
//
// If nothing triggers, the position is held. A malformed snapshot degrades to
// no verdict for the affected checks rather than failing the evaluation.
func (e *ExitEvaluator) EvaluatePositionExit(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
	checks := []func(types.Position, types.PoolSnapshot) types.RiskVerdict{
		e.checkTakeProfit,
		e.checkStopLoss,
		e.exiter.ExitCheck,
		e.checkImpermanentLoss,
		e.checkYieldDecline,
		e.checkSecurityAlert,
		e.checkLiquidityDrain,
		e.checkPriceDump,
		e.checkBlacklist,
	}

	verdicts := make([]types.RiskVerdict, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check func(types.Position, types.PoolSnapshot) types.RiskVerdict) {
			defer wg.Done()
			verdicts[i] = check(pos, snap)
		}(i, check)
	}
	wg.Wait()

	for _, verdict := range verdicts {
		if verdict.Triggered {
			e.logger.Info().
				Str("position", pos.ID).
				Str("pool", string(pos.Pool)).
				Str("check", verdict.Check).
				Str("urgency", string(verdict.Urgency)).
				Str("reason", verdict.Reason).
				Msg("Position exit triggered")
			return verdict
		}
	}

	return types.Hold()
}

// ImpermanentLossPct computes impermanent loss in percent from the price
// ratio current/entry: IL% = (2*sqrt(r)/(1+r) - 1) * 100. A ratio of 1
// yields 0; a ratio of 4 yields -20.
func ImpermanentLossPct(priceRatio float64) float64 {
	if priceRatio <= 0 || math.IsNaN(priceRatio) || math.IsInf(priceRatio, 0) {
		return 0
	}
	return (2*math.Sqrt(priceRatio)/(1+priceRatio) - 1) * 100
}

// checkTakeProfit triggers when net P&L meets the position's optional
// take-profit bound. Zero disables the rule.
func (e *ExitEvaluator) checkTakeProfit(pos types.Position, _ types.PoolSnapshot) types.RiskVerdict {
	if pos.TakeProfitPct <= 0 || pos.CurrentValueUSD <= 0 {
		return types.Hold()
	}
	profitPct := pos.ProfitPct()
	if profitPct < pos.TakeProfitPct {
		return types.Hold()
	}
	return types.RiskVerdict{
		Triggered: true,
		Check:     "take-profit",
		Reason:    fmt.Sprintf("net P&L %.2f%% reached take-profit bound %.2f%%", profitPct, pos.TakeProfitPct),
		Urgency:   types.UrgencyMedium,
		Details:   map[string]float64{"profit_pct": profitPct},
	}
}

// checkStopLoss triggers when net P&L breaches the position's optional
// stop-loss bound. Zero disables the rule.
func (e *ExitEvaluator) checkStopLoss(pos types.Position, _ types.PoolSnapshot) types.RiskVerdict {
	if pos.StopLossPct <= 0 || pos.CurrentValueUSD <= 0 {
		return types.Hold()
	}
	profitPct := pos.ProfitPct()
	if profitPct > -pos.StopLossPct {
		return types.Hold()
	}
	return types.RiskVerdict{
		Triggered: true,
		Check:     "stop-loss",
		Reason:    fmt.Sprintf("net P&L %.2f%% breached stop-loss bound -%.2f%%", profitPct, pos.StopLossPct),
		Urgency:   types.UrgencyHigh,
		Details:   map[string]float64{"profit_pct": profitPct},
	}
}

// checkImpermanentLoss triggers when divergence loss since entry exceeds the
// configured ceiling.
func (e *ExitEvaluator) checkImpermanentLoss(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
	if pos.EntryPriceUSD <= 0 || snap.PriceUSD <= 0 {
		return types.Hold()
	}
	ratio := snap.PriceUSD / pos.EntryPriceUSD
	ilPct := ImpermanentLossPct(ratio)
	if math.Abs(ilPct) <= e.params.MaxImpermanentLossPct {
		return types.Hold()
	}
	return types.RiskVerdict{
		Triggered: true,
		Check:     "impermanent-loss",
		Reason:    fmt.Sprintf("impermanent loss %.2f%% exceeds %.2f%% ceiling", ilPct, e.params.MaxImpermanentLossPct),
		Urgency:   types.UrgencyMedium,
		Details:   map[string]float64{"il_pct": ilPct, "price_ratio": ratio},
	}
}

// checkYieldDecline triggers when current yield has fallen more than the
// configured percentage below the entry yield.
func (e *ExitEvaluator) checkYieldDecline(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
	if pos.EntryYieldPct <= 0 {
		return types.Hold()
	}
	declinePct := (pos.EntryYieldPct - snap.YieldRatePct) / pos.EntryYieldPct * 100
	if declinePct <= e.params.MaxYieldDeclinePct {
		return types.Hold()
	}
	return types.RiskVerdict{
		Triggered: true,
		Check:     "yield-decline",
		Reason:    fmt.Sprintf("yield fell %.1f%% below entry (%.1f%% -> %.1f%%)", declinePct, pos.EntryYieldPct, snap.YieldRatePct),
		Urgency:   types.UrgencyMedium,
		Details:   map[string]float64{"decline_pct": declinePct},
	}
}

// checkSecurityAlert triggers when either token's risk tier became high or a
// mint/freeze authority appeared after entry.
func (e *ExitEvaluator) checkSecurityAlert(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
	baseTierWorsened := snap.BaseToken.Security.Tier == types.RiskTierHigh && pos.EntryBaseTier != types.RiskTierHigh
	quoteTierWorsened := snap.QuoteToken.Security.Tier == types.RiskTierHigh && pos.EntryQuoteTier != types.RiskTierHigh

	authorityNow := snap.BaseToken.Security.MintAuthority || snap.BaseToken.Security.FreezeAuthority ||
		snap.QuoteToken.Security.MintAuthority || snap.QuoteToken.Security.FreezeAuthority
	authorityAppeared := authorityNow && !pos.EntryAuthorities

	if !baseTierWorsened && !quoteTierWorsened && !authorityAppeared {
		return types.Hold()
	}

	reason := "token risk tier escalated to high after entry"
	if authorityAppeared {
		reason = "mint/freeze authority appeared after entry"
	}
	return types.RiskVerdict{
		Triggered: true,
		Check:     "security-alert",
		Reason:    reason,
		Urgency:   types.UrgencyHigh,
	}
}

// checkLiquidityDrain triggers when TVL fell more than the configured
// percentage below the entry TVL.
func (e *ExitEvaluator) checkLiquidityDrain(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
	if pos.EntryTvlUSD <= 0 {
		return types.Hold()
	}
	drainPct := (pos.EntryTvlUSD - snap.TvlUSD) / pos.EntryTvlUSD * 100
	if drainPct <= e.params.MaxTvlDeclinePct {
		return types.Hold()
	}
	return types.RiskVerdict{
		Triggered: true,
		Check:     "liquidity-drain",
		Reason:    fmt.Sprintf("TVL drained %.1f%% since entry ($%.0f -> $%.0f)", drainPct, pos.EntryTvlUSD, snap.TvlUSD),
		Urgency:   types.UrgencyHigh,
		Details:   map[string]float64{"drain_pct": drainPct},
	}
}

// checkPriceDump triggers when the 1h price change fell below the configured
// negative threshold.
func (e *ExitEvaluator) checkPriceDump(_ types.Position, snap types.PoolSnapshot) types.RiskVerdict {
	if snap.PriceChange1hPct >= -e.params.PriceDump1hPct {
		return types.Hold()
	}
	return types.RiskVerdict{
		Triggered: true,
		Check:     "price-dump",
		Reason:    fmt.Sprintf("1h price change %.1f%% below -%.1f%% threshold", snap.PriceChange1hPct, e.params.PriceDump1hPct),
		Urgency:   types.UrgencyHigh,
		Details:   map[string]float64{"price_change_1h_pct": snap.PriceChange1hPct},
	}
}

// checkBlacklist triggers when the pool was flagged blacklisted.
func (e *ExitEvaluator) checkBlacklist(_ types.Position, snap types.PoolSnapshot) types.RiskVerdict {
	if !snap.Blacklisted {
		return types.Hold()
	}
	return types.RiskVerdict{
		Triggered: true,
		Check:     "blacklist",
		Reason:    "pool was flagged blacklisted",
		Urgency:   types.UrgencyHigh,
	}
}
