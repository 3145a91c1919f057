/*

This file contains the ephemeral decision types returned by the risk manager,
the safety throttle and the strategy optimizer. None of these are persisted as
entities; only the action they trigger is.

*/

package types

// Urgency ranks how quickly a triggered verdict should be acted on when
// multiple positions need action in the same tick.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// RiskVerdict is the result of one risk check against one position.
type RiskVerdict struct {
	Triggered bool               `json:"triggered"`
	Check     string             `json:"check,omitempty"` // which check fired
	Reason    string             `json:"reason,omitempty"`
	Urgency   Urgency            `json:"urgency,omitempty"`
	Details   map[string]float64 `json:"details,omitempty"`
}

// Hold is the non-triggered verdict.
func Hold() RiskVerdict {
	return RiskVerdict{}
}

// EntryDecision is the portfolio-level answer to "may this capital deploy".
// SizeMultiplier is always populated, even on rejection, so callers can log
// what the volatility-adjusted size would have been.
type EntryDecision struct {
	Allowed        bool     `json:"allowed"`
	Reasons        []string `json:"reasons,omitempty"`  // rejection reasons
	Warnings       []string `json:"warnings,omitempty"` // non-blocking
	SizeMultiplier float64  `json:"size_multiplier"`
}

// SafetyDecision is the throttle's answer to "may this capital deploy".
type SafetyDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// SwitchSuggestion names the strategy the optimizer would move a position to.
type SwitchSuggestion struct {
	Strategy   string  `json:"strategy"`
	ScoreDelta float64 `json:"score_delta"`
	Reason     string  `json:"reason"`
}

// OptimizationResult is the optimizer's verdict for one position on one tick.
type OptimizationResult struct {
	ShouldSwitch bool              `json:"should_switch"`
	Confidence   float64           `json:"confidence"` // 0-100
	Reason       string            `json:"reason"`
	Suggestion   *SwitchSuggestion `json:"suggestion,omitempty"`
}

// ClaimAdvice is the advisory output of the fee-claim profitability check.
// The estimate is APR-derived, not read from chain, so it is never treated
// as a guaranteed value.
type ClaimAdvice struct {
	ShouldClaim      bool    `json:"should_claim"`
	EstimatedFeesUSD float64 `json:"estimated_fees_usd"`
	GasCostUSD       float64 `json:"gas_cost_usd"`
	Reason           string  `json:"reason"`
}
