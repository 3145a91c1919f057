/*

This file contains the strategy optimizer: it decides, per position per
cycle, whether the position should switch to the strategy the catalogue
would pick for the pool's current state, and whether accrued fees are worth
claiming. Switching is deliberately sticky: a minimum hold time, a cooldown
after every switch and a score-delta threshold all have to clear before a
switch is suggested.

*/

package optimizer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-fi/alm/internal/logger"
	"github.com/meridian-fi/alm/internal/strategy"
	"github.com/meridian-fi/alm/internal/types"
)

const (
	hoursPerYear = 24 * 365

	// Confidence components. Base plus capped delta contribution, a bonus
	// when the market has visibly moved since entry, a win-rate spread
	// scaled in, and a penalty for thin candidate track records.
	confidenceBase         = 40.0
	confidenceDeltaCap     = 30.0
	confidenceMarketBonus  = 15.0
	confidenceWinRateScale = 20.0
	confidenceSamplePen    = 20.0

	// Market-move detection thresholds against the entry snapshot.
	scoreAxisMoveThreshold = 20
	priceMovePctThreshold  = 25.0
)

// Optimizer evaluates active positions for strategy switches and fee claims.
type Optimizer struct {
	catalogue    *strategy.Catalogue
	tracker      *PerformanceTracker
	params       types.Parameters
	baseBinRange int
	now          func() time.Time
	logger       zerolog.Logger

	mu         sync.Mutex
	lastSwitch map[string]time.Time // position ID -> last committed switch
}

func New(catalogue *strategy.Catalogue, tracker *PerformanceTracker, params types.Parameters, baseBinRange int) *Optimizer {
	return newOptimizer(catalogue, tracker, params, baseBinRange, time.Now)
}

func newOptimizer(catalogue *strategy.Catalogue, tracker *PerformanceTracker, params types.Parameters, baseBinRange int, now func() time.Time) *Optimizer {
	return &Optimizer{
		catalogue:    catalogue,
		tracker:      tracker,
		params:       params,
		baseBinRange: baseBinRange,
		now:          now,
		logger:       logger.GetForComponent("optimizer"),
		lastSwitch:   make(map[string]time.Time),
	}
}

// Evaluate decides whether pos should switch strategy given the pool's
// current snapshot and scores. The gates fire in order: minimum hold time,
// switch cooldown, candidate identity, score delta. Only when all clear does
// the result carry a suggestion.
func (o *Optimizer) Evaluate(pos types.Position, snap types.PoolSnapshot, scores types.ScoreSet) types.OptimizationResult {
	now := o.now()

	if age := pos.Age(now); age < o.params.MinHoldTime {
		return types.OptimizationResult{
			Reason: fmt.Sprintf("position age %s below %s minimum hold time",
				age.Round(time.Second), o.params.MinHoldTime),
		}
	}

	if last, ok := o.lastSwitchAt(pos); ok {
		if since := now.Sub(last); since < o.params.SwitchCooldown {
			return types.OptimizationResult{
				Reason: fmt.Sprintf("switch cooldown active, %s remaining",
					(o.params.SwitchCooldown - since).Round(time.Second)),
			}
		}
	}

	sel := o.catalogue.Select(snap, o.baseBinRange)
	candidate := sel.Strategy.Name
	if candidate == pos.Strategy {
		return types.OptimizationResult{
			Confidence: sel.Confidence,
			Reason:     fmt.Sprintf("%s is still the preferred strategy", candidate),
		}
	}

	currentScore, ok := o.tracker.AverageScore(pos.Strategy)
	if !ok {
		// No track record yet, fall back to what the pool scored at entry.
		currentScore = float64(pos.EntryScores.Overall)
	}
	delta := sel.Confidence - currentScore
	if delta <= o.params.ScoreDeltaThreshold {
		return types.OptimizationResult{
			Reason: fmt.Sprintf("%s beats %s by only %.1f points, threshold is %.1f",
				candidate, pos.Strategy, delta, o.params.ScoreDeltaThreshold),
		}
	}

	confidence, notes := o.switchConfidence(pos, snap, scores, candidate, delta)
	reason := fmt.Sprintf("%s beats %s by %.1f points", candidate, pos.Strategy, delta)
	if notes != "" {
		reason += " (" + notes + ")"
	}

	o.logger.Info().
		Str("position", pos.ID).
		Str("from", pos.Strategy).
		Str("to", candidate).
		Float64("delta", delta).
		Float64("confidence", confidence).
		Msg("Strategy switch suggested")

	return types.OptimizationResult{
		ShouldSwitch: true,
		Confidence:   confidence,
		Reason:       reason,
		Suggestion: &types.SwitchSuggestion{
			Strategy:   candidate,
			ScoreDelta: delta,
			Reason:     sel.Reason,
		},
	}
}

// CommitSwitch arms the cooldown for a position after its switch executed.
func (o *Optimizer) CommitSwitch(positionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastSwitch[positionID] = o.now()
}

// Forget drops cooldown state for a closed position.
func (o *Optimizer) Forget(positionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.lastSwitch, positionID)
}

func (o *Optimizer) lastSwitchAt(pos types.Position) (time.Time, bool) {
	o.mu.Lock()
	committed := o.lastSwitch[pos.ID]
	o.mu.Unlock()

	last := pos.LastSwitchAt
	if committed.After(last) {
		last = committed
	}
	return last, !last.IsZero()
}

// switchConfidence scores how sure the optimizer is about a suggested
// switch, in [0,100].
func (o *Optimizer) switchConfidence(pos types.Position, snap types.PoolSnapshot, scores types.ScoreSet, candidate string, delta float64) (float64, string) {
	confidence := confidenceBase + math.Min(delta, confidenceDeltaCap)
	notes := ""

	if marketMoved(pos, snap, scores) {
		confidence += confidenceMarketBonus
	}

	candWR, candOK := o.tracker.WinRate(candidate)
	curWR, curOK := o.tracker.WinRate(pos.Strategy)
	if candOK && curOK {
		confidence += (candWR - curWR) * confidenceWinRateScale
	}

	if o.tracker.Samples(candidate) < o.params.MinStrategySamples {
		confidence -= confidenceSamplePen
		notes = fmt.Sprintf("thin track record for %s", candidate)
	}

	return math.Max(0, math.Min(100, confidence)), notes
}

// marketMoved reports whether the pool's state has moved materially since
// the position entered: any score axis shifted past the threshold, or price
// moved past the percentage threshold.
func marketMoved(pos types.Position, snap types.PoolSnapshot, scores types.ScoreSet) bool {
	entry := pos.EntryScores
	if absInt(scores.Profitability-entry.Profitability) > scoreAxisMoveThreshold ||
		absInt(scores.Risk-entry.Risk) > scoreAxisMoveThreshold ||
		absInt(scores.Liquidity-entry.Liquidity) > scoreAxisMoveThreshold ||
		absInt(scores.Market-entry.Market) > scoreAxisMoveThreshold {
		return true
	}
	if pos.EntryPriceUSD > 0 && snap.PriceUSD > 0 {
		movePct := math.Abs(snap.PriceUSD-pos.EntryPriceUSD) / pos.EntryPriceUSD * 100
		if movePct > priceMovePctThreshold {
			return true
		}
	}
	return false
}

// EvaluateClaim advises whether accrued fees are worth claiming. The fee
// estimate is derived from the pool's advertised yield over the time since
// the last claim, so it is an approximation, never a chain-read value.
func (o *Optimizer) EvaluateClaim(pos types.Position, snap types.PoolSnapshot) types.ClaimAdvice {
	since := pos.LastClaimedAt
	if since.IsZero() {
		since = pos.OpenedAt
	}
	elapsed := o.now().Sub(since)

	estimate := 0.0
	if pos.CapitalUSD > 0 && snap.YieldRatePct > 0 && elapsed > 0 {
		estimate = pos.CapitalUSD * (snap.YieldRatePct / 100) * (elapsed.Hours() / hoursPerYear)
	}

	advice := types.ClaimAdvice{
		EstimatedFeesUSD: estimate,
		GasCostUSD:       o.params.ClaimGasCostUSD,
	}

	switch {
	case elapsed < o.params.ClaimMinInterval:
		advice.Reason = fmt.Sprintf("last claim %s ago, minimum interval is %s",
			elapsed.Round(time.Minute), o.params.ClaimMinInterval)
	case estimate < o.params.ClaimMinFeesUSD:
		advice.Reason = fmt.Sprintf("estimated fees $%.2f below $%.2f minimum",
			estimate, o.params.ClaimMinFeesUSD)
	case estimate <= o.params.ClaimGasCostUSD:
		advice.Reason = fmt.Sprintf("estimated fees $%.2f would not cover $%.2f gas",
			estimate, o.params.ClaimGasCostUSD)
	default:
		advice.ShouldClaim = true
		advice.Reason = fmt.Sprintf("estimated fees $%.2f clear gas and minimum", estimate)
	}
	return advice
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
