/*

This file contains the shared types for the strategy catalogue: classification
enums, eligibility results, bin parameters and token allocations.

*/

package types

// Timeframe is the nominal holding horizon class of a strategy.
type Timeframe string

const (
	TimeframeUltraFast Timeframe = "ultrafast"
	TimeframeFast      Timeframe = "fast"
	TimeframeMedium    Timeframe = "medium"
	TimeframeSlow      Timeframe = "slow"
)

// Tightness is the bin-range class of a strategy on the concentrated
// liquidity curve.
type Tightness string

const (
	TightnessVeryTight Tightness = "verytight"
	TightnessTight     Tightness = "tight"
	TightnessMedium    Tightness = "medium"
	TightnessWide      Tightness = "wide"
	TightnessVeryWide  Tightness = "verywide"
)

// RiskClass is the nominal risk level of a strategy.
type RiskClass string

const (
	RiskClassLow    RiskClass = "low"
	RiskClassMedium RiskClass = "medium"
	RiskClassHigh   RiskClass = "high"
)

// EligibilityResult is the outcome of one strategy's eligibility predicate
// against one snapshot.
type EligibilityResult struct {
	Matches    bool               `json:"matches"`
	Reason     string             `json:"reason"`
	Confidence float64            `json:"confidence,omitempty"` // 0-100 when matched
	Metadata   map[string]float64 `json:"metadata,omitempty"`
}

// BinParameters is the concrete bin range a strategy wants for an entry,
// derived from a caller-supplied baseline range and the tightness class.
type BinParameters struct {
	Range     int       `json:"range"` // number of bins on each side of the active bin
	Tightness Tightness `json:"tightness"`
}

// TokenAllocation describes how entry capital splits across the pair.
type TokenAllocation struct {
	BasePct     float64 `json:"base_pct"` // base token share in [0,1]; 0.5 is neutral
	SingleSided bool    `json:"single_sided"`
	Side        string  `json:"side,omitempty"` // "base" or "quote" when single sided
}

// Neutral5050 is the default allocation when a strategy expresses no bias.
func Neutral5050() TokenAllocation {
	return TokenAllocation{BasePct: 0.5}
}
