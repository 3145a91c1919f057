/*

This file contains the default parameters for the ALM.

These parameters are designed for unattended operation on volatile DLMM pools.
Each value has been chosen to balance yield capture against capital preservation.

*/

package config

import (
	"time"

	"github.com/meridian-fi/alm/internal/types"
)

// DefaultParameters provides the baseline parameter set for the ALM's scoring,
// risk, optimizer and safety logic. These values are used when no operator
// overrides are supplied at startup.
//
// IMPORTANT: These defaults assume fast-moving pools where security conditions
// can deteriorate within hours. They favor early exits over maximum yield.
var DefaultParameters = types.Parameters{
	// --- Scoring Weights ---
	ProfitabilityWeight: 0.30,
	RiskWeight:          0.30,
	// Rationale: profitability and safety matter equally; a pool that scores
	// high on yield but low on safety should not outrank a balanced one.

	LiquidityWeight: 0.25,
	MarketWeight:    0.15,
	// Rationale: liquidity depth determines whether we can actually exit at
	// the quoted price. Market microstructure is the weakest signal of the
	// four, so it carries the smallest weight.

	// --- Per-Position Risk Ceilings ---
	MaxImpermanentLossPct: 10.0,
	// Rationale: past 10% divergence loss, accrued fees rarely recover the
	// gap on the timeframes these strategies hold for.

	MaxYieldDeclinePct: 50.0,
	// Rationale: the entry thesis is the yield. Half the yield gone means the
	// thesis is gone.

	MaxTvlDeclinePct: 40.0,
	// Rationale: a 40% TVL drain from entry usually precedes a full drain.
	// Exiting into remaining liquidity beats exiting into none.

	PriceDump1hPct: 20.0,
	// Rationale: a 20% hourly dump on top of concentrated exposure is a
	// rug-pull signature more often than a dip.

	// --- Portfolio Gating ---
	TotalCapitalUSD: 100_000,
	MaxDrawdownPct:  15.0,
	// Rationale: new entries during a 15% portfolio drawdown compound the
	// problem. Existing positions keep being managed; fresh capital waits.

	MaxExposureFraction: 0.80,
	// Rationale: a liquid reserve is needed for gas and for averaging into
	// recoveries. Never deploy the last 20%.

	MaxSharedTokenPositions: 2,
	// Rationale: three positions sharing one token is concentration wearing
	// a diversification costume. Warn, but let the operator decide.

	// --- Safety Throttle ---
	DailyCapitalLimitUSD:   20_000,
	WeeklyCapitalLimitUSD:  75_000,
	MaxPositionUSD:         5_000,
	DailyLossLimitUSD:      2_000,
	WeeklyLossLimitUSD:     6_000,
	MaxConsecutiveFailures: 3,
	MaxTransactionsPerHour: 12,
	// Rationale: the throttle is the last line of defense and is deliberately
	// independent of market data. Three consecutive execution failures means
	// something is wrong with the pipe, not the market - stop and page.

	// --- Strategy Optimizer ---
	MinHoldTime:         time.Hour,
	SwitchCooldown:      time.Hour,
	ScoreDeltaThreshold: 15.0,
	MinStrategySamples:  3,
	// Rationale: switching costs two transactions plus slippage. A candidate
	// strategy must be clearly better, not marginally better, and thrashing
	// between strategies inside an hour is never signal.

	// --- Fee-Claim Advisory ---
	ClaimMinFeesUSD:  10.0,
	ClaimMinInterval: 6 * time.Hour,
	ClaimGasCostUSD:  0.50,
	// Rationale: the fee estimate is APR-derived (medium confidence), so the
	// margin over gas cost is kept wide.

	// --- Signal Scanner ---
	FeeRateAlertPct:    5.0,
	AlertCooldown:      30 * time.Minute,
	MaxAlertBatch:      5,
	MinAlertTvlUSD:     10_000,
	EntryCandidateSize: 10,
	// Rationale: a 5% 30-minute fee rate is extraordinary and short-lived.
	// The cooldown keeps the same pool from spamming the operator while the
	// spike persists.
}
