/*

This file contains the types for positions which contains all the state needed for
monitoring, risk evaluation and strategy switching.

*/

package types

import "time"

type PositionStatus string

const (
	PositionActive PositionStatus = "active"
	PositionClosed PositionStatus = "closed"
)

// Position is the unit of capital deployment: one pool, one strategy, one
// capital amount. Created when an approved entry executes, mutated by the
// monitoring tick, terminal once closed.
type Position struct {
	ID       string         `json:"id"` // uuid
	Pool     PoolAddress    `json:"pool"`
	PoolName string         `json:"pool_name"`
	Strategy string         `json:"strategy"`
	Status   PositionStatus `json:"status"`

	CapitalUSD float64 `json:"capital_usd"`

	// Entry snapshot values, recorded once at open.
	EntryPriceUSD    float64  `json:"entry_price_usd"`
	EntryTvlUSD      float64  `json:"entry_tvl_usd"`
	EntryYieldPct    float64  `json:"entry_yield_pct"`
	EntryBaseTier    RiskTier `json:"entry_base_tier"`
	EntryQuoteTier   RiskTier `json:"entry_quote_tier"`
	EntryAuthorities bool     `json:"entry_authorities"` // mint/freeze authority present at entry
	EntryScores      ScoreSet `json:"entry_scores"`

	// Running values, updated each monitoring tick.
	CurrentValueUSD float64 `json:"current_value_usd"`
	FeesEarnedUSD   float64 `json:"fees_earned_usd"`
	GasSpentUSD     float64 `json:"gas_spent_usd"`

	// Optional per-position exit bounds. Zero disables the rule.
	TakeProfitPct float64 `json:"take_profit_pct,omitempty"`
	StopLossPct   float64 `json:"stop_loss_pct,omitempty"` // positive number, loss magnitude

	// Strategy switch audit trail.
	SwitchCount      int       `json:"switch_count,omitempty"`
	PreviousStrategy string    `json:"previous_strategy,omitempty"`
	LastSwitchAt     time.Time `json:"last_switch_at,omitempty"`

	OpenedAt      time.Time `json:"opened_at"`
	ClosedAt      time.Time `json:"closed_at,omitempty"`
	LastClaimedAt time.Time `json:"last_claimed_at,omitempty"`
}

// Age returns how long the position has been open as of now.
func (p Position) Age(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}

// ProfitPct is net P&L percent versus deployed capital: current value plus
// accrued fees against the entry amount. Returns 0 when capital is unknown.
func (p Position) ProfitPct() float64 {
	if p.CapitalUSD <= 0 {
		return 0
	}
	total := p.CurrentValueUSD + p.FeesEarnedUSD
	return (total - p.CapitalUSD) / p.CapitalUSD * 100
}
