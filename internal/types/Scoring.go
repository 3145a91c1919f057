/*

This file contains the scoring output type and the tunable parameters for the ALM.

*/

package types

import "time"

// ScoreSet is the ephemeral output of scoring one pool snapshot: four
// sub-scores and a weighted overall, all integers clamped to [0,100].
// It is recomputed on demand and never persisted apart from its snapshot.
type ScoreSet struct {
	Pool          PoolAddress `json:"pool"`
	Profitability int         `json:"profitability"`
	Risk          int         `json:"risk"` // higher = safer
	Liquidity     int         `json:"liquidity"`
	Market        int         `json:"market"`
	Overall       int         `json:"overall"`
}

// Parameters holds all tunable weights, ceilings and thresholds used by the
// ALM's scoring, risk, optimizer and safety logic. One validated instance is
// loaded at startup; invalid values are a startup failure, never a per-tick one.
type Parameters struct {
	// --- Scoring Weights (must sum to 1.0) ---
	ProfitabilityWeight float64 `json:"profitability_weight"`
	RiskWeight          float64 `json:"risk_weight"`
	LiquidityWeight     float64 `json:"liquidity_weight"`
	MarketWeight        float64 `json:"market_weight"`

	// --- Per-Position Risk Ceilings ---
	MaxImpermanentLossPct float64 `json:"max_impermanent_loss_pct"` // exit when |IL%| exceeds this
	MaxYieldDeclinePct    float64 `json:"max_yield_decline_pct"`    // exit when yield fell this % below entry
	MaxTvlDeclinePct      float64 `json:"max_tvl_decline_pct"`      // exit when TVL fell this % below entry
	PriceDump1hPct        float64 `json:"price_dump_1h_pct"`        // exit when 1h price change is below -this

	// --- Portfolio Gating ---
	TotalCapitalUSD         float64 `json:"total_capital_usd"`          // capital base for exposure math
	MaxDrawdownPct          float64 `json:"max_drawdown_pct"`           // reject new entries beyond this drawdown
	MaxExposureFraction     float64 `json:"max_exposure_fraction"`      // deployed+proposed ceiling as fraction of total capital
	MaxSharedTokenPositions int     `json:"max_shared_token_positions"` // above this, correlation warning (non-blocking)

	// --- Safety Throttle ---
	DailyCapitalLimitUSD   float64 `json:"daily_capital_limit_usd"`
	WeeklyCapitalLimitUSD  float64 `json:"weekly_capital_limit_usd"`
	MaxPositionUSD         float64 `json:"max_position_usd"`
	DailyLossLimitUSD      float64 `json:"daily_loss_limit_usd"`
	WeeklyLossLimitUSD     float64 `json:"weekly_loss_limit_usd"`
	MaxConsecutiveFailures int     `json:"max_consecutive_failures"`
	MaxTransactionsPerHour int     `json:"max_transactions_per_hour"`

	// --- Strategy Optimizer ---
	MinHoldTime         time.Duration `json:"min_hold_time"`         // below this age a position is never switched
	SwitchCooldown      time.Duration `json:"switch_cooldown"`       // no re-switch within this window
	ScoreDeltaThreshold float64       `json:"score_delta_threshold"` // candidate must beat current by this many points
	MinStrategySamples  int           `json:"min_strategy_samples"`  // below this, candidate track record is penalized

	// --- Fee-Claim Advisory ---
	ClaimMinFeesUSD  float64       `json:"claim_min_fees_usd"`
	ClaimMinInterval time.Duration `json:"claim_min_interval"`
	ClaimGasCostUSD  float64       `json:"claim_gas_cost_usd"` // expected gas cost of one claim

	// --- Signal Scanner ---
	FeeRateAlertPct    float64       `json:"fee_rate_alert_pct"` // 30min fee/TVL rate threshold, in percent
	AlertCooldown      time.Duration `json:"alert_cooldown"`     // per-pool re-notification suppression window
	MaxAlertBatch      int           `json:"max_alert_batch"`
	MinAlertTvlUSD     float64       `json:"min_alert_tvl_usd"`
	EntryCandidateSize int           `json:"entry_candidate_size"` // top-N ranked pools considered per cycle
}
