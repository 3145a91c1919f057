/*

This file contains the startup validation for ALM parameters. Invalid
parameters are fatal at startup; the per-tick paths assume a validated set.

*/

package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/meridian-fi/alm/internal/types"
)

var ErrInvalidParameters = errors.New("invalid parameters")

const weightSumTolerance = 0.001

// ValidateParameters performs a full sanity check of a parameter set.
// It is called once at startup so that scoring and risk paths never have to
// re-validate configuration per tick.
func ValidateParameters(p types.Parameters) error {
	weights := []struct {
		value float64
		name  string
	}{
		{p.ProfitabilityWeight, "ProfitabilityWeight"},
		{p.RiskWeight, "RiskWeight"},
		{p.LiquidityWeight, "LiquidityWeight"},
		{p.MarketWeight, "MarketWeight"},
	}
	for _, w := range weights {
		if math.IsNaN(w.value) || math.IsInf(w.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidParameters, w.name)
		}
		if w.value < 0 {
			return fmt.Errorf("%w: %s cannot be negative", ErrInvalidParameters, w.name)
		}
	}
	sum := p.ProfitabilityWeight + p.RiskWeight + p.LiquidityWeight + p.MarketWeight
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: scoring weights must sum to 1.0, got %.4f", ErrInvalidParameters, sum)
	}

	positives := []struct {
		value float64
		name  string
	}{
		{p.MaxImpermanentLossPct, "MaxImpermanentLossPct"},
		{p.MaxYieldDeclinePct, "MaxYieldDeclinePct"},
		{p.MaxTvlDeclinePct, "MaxTvlDeclinePct"},
		{p.PriceDump1hPct, "PriceDump1hPct"},
		{p.TotalCapitalUSD, "TotalCapitalUSD"},
		{p.MaxDrawdownPct, "MaxDrawdownPct"},
		{p.DailyCapitalLimitUSD, "DailyCapitalLimitUSD"},
		{p.WeeklyCapitalLimitUSD, "WeeklyCapitalLimitUSD"},
		{p.MaxPositionUSD, "MaxPositionUSD"},
		{p.DailyLossLimitUSD, "DailyLossLimitUSD"},
		{p.WeeklyLossLimitUSD, "WeeklyLossLimitUSD"},
		{p.ScoreDeltaThreshold, "ScoreDeltaThreshold"},
		{p.FeeRateAlertPct, "FeeRateAlertPct"},
	}
	for _, v := range positives {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidParameters, v.name)
		}
		if v.value <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidParameters, v.name)
		}
	}

	if p.MaxExposureFraction <= 0 || p.MaxExposureFraction > 1 {
		return fmt.Errorf("%w: MaxExposureFraction must be in (0,1], got %.4f", ErrInvalidParameters, p.MaxExposureFraction)
	}
	if p.MaxSharedTokenPositions < 0 {
		return fmt.Errorf("%w: MaxSharedTokenPositions cannot be negative", ErrInvalidParameters)
	}
	if p.MaxConsecutiveFailures <= 0 {
		return fmt.Errorf("%w: MaxConsecutiveFailures must be positive", ErrInvalidParameters)
	}
	if p.MaxTransactionsPerHour <= 0 {
		return fmt.Errorf("%w: MaxTransactionsPerHour must be positive", ErrInvalidParameters)
	}
	if p.WeeklyCapitalLimitUSD < p.DailyCapitalLimitUSD {
		return fmt.Errorf("%w: WeeklyCapitalLimitUSD cannot be below DailyCapitalLimitUSD", ErrInvalidParameters)
	}
	if p.WeeklyLossLimitUSD < p.DailyLossLimitUSD {
		return fmt.Errorf("%w: WeeklyLossLimitUSD cannot be below DailyLossLimitUSD", ErrInvalidParameters)
	}

	if p.MinHoldTime <= 0 {
		return fmt.Errorf("%w: MinHoldTime must be positive", ErrInvalidParameters)
	}
	if p.SwitchCooldown <= 0 {
		return fmt.Errorf("%w: SwitchCooldown must be positive", ErrInvalidParameters)
	}
	if p.MinStrategySamples < 0 {
		return fmt.Errorf("%w: MinStrategySamples cannot be negative", ErrInvalidParameters)
	}

	if p.ClaimMinFeesUSD < 0 || p.ClaimGasCostUSD < 0 {
		return fmt.Errorf("%w: claim thresholds cannot be negative", ErrInvalidParameters)
	}
	if p.ClaimMinInterval < 0 {
		return fmt.Errorf("%w: ClaimMinInterval cannot be negative", ErrInvalidParameters)
	}

	if p.AlertCooldown <= 0 {
		return fmt.Errorf("%w: AlertCooldown must be positive", ErrInvalidParameters)
	}
	if p.MaxAlertBatch <= 0 {
		return fmt.Errorf("%w: MaxAlertBatch must be positive", ErrInvalidParameters)
	}
	if p.EntryCandidateSize <= 0 {
		return fmt.Errorf("%w: EntryCandidateSize must be positive", ErrInvalidParameters)
	}

	return nil
}
