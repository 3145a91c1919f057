/*

This file contains the portfolio-level entry gate: drawdown ceiling, market
circuit breaker, capital exposure ceiling, token correlation warning and
volatility-adjusted position sizing. The gate holds the only mutable risk
state in the ALM (the equity peak and the breaker trip time), so all entries
must flow through one PortfolioState instance.

*/

package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/meridian-fi/alm/internal/logger"
	"github.com/meridian-fi/alm/internal/scoring"
	"github.com/meridian-fi/alm/internal/types"
	"github.com/meridian-fi/alm/internal/utils"
)

const (
	// Breaker trips when more than this fraction of active-position pools
	// shows the same distress condition.
	breakerPoolFraction = 0.30
	// A pool is distressed on a 1h price swing beyond this magnitude.
	breakerPriceSwingPct = 50.0
	// Or when its 5m volume collapsed below this fraction of its average
	// 5m volume (24h volume spread over 288 five-minute slices).
	breakerVolumeCollapseFraction = 0.001
	volumeSlicesPerDay            = 288
	// Once tripped, entries stay blocked for this long.
	breakerCooldown = 15 * time.Minute
)

// PortfolioState is the stateful portfolio gate. The equity peak only ever
// rises, so drawdown is always measured against the best the portfolio has
// done, not against a resettable baseline.
type PortfolioState struct {
	mu sync.Mutex

	params     types.Parameters
	peakEquity sdkmath.LegacyDec
	breakerAt  time.Time // zero when the breaker has never tripped
	now        func() time.Time
	logger     zerolog.Logger
}

func NewPortfolioState(params types.Parameters) *PortfolioState {
	return newPortfolioState(params, time.Now)
}

func newPortfolioState(params types.Parameters, now func() time.Time) *PortfolioState {
	return &PortfolioState{
		params:     params,
		peakEquity: sdkmath.LegacyZeroDec(),
		now:        now,
		logger:     logger.GetForComponent("risk_portfolio"),
	}
}

// EvaluateEntry answers whether proposedUSD may deploy into candidate given
// the currently active positions and the latest snapshot of every observed
// pool. Blocking checks run in order: drawdown ceiling, circuit breaker,
// exposure ceiling. The token correlation check only warns. SizeMultiplier
// is populated from candidate volatility even when the entry is rejected.
func (s *PortfolioState) EvaluateEntry(
	candidate types.PoolSnapshot,
	proposedUSD float64,
	active []types.Position,
	observed []types.PoolSnapshot,
) types.EntryDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	decision := types.EntryDecision{
		Allowed:        true,
		SizeMultiplier: volatilitySizeMultiplier(candidate),
	}

	if reason := s.checkDrawdown(active); reason != "" {
		decision.Allowed = false
		decision.Reasons = append(decision.Reasons, reason)
	}
	if reason := s.checkCircuitBreaker(active, observed); reason != "" {
		decision.Allowed = false
		decision.Reasons = append(decision.Reasons, reason)
	}
	if reason := s.checkExposure(proposedUSD, active); reason != "" {
		decision.Allowed = false
		decision.Reasons = append(decision.Reasons, reason)
	}
	if warning := s.checkTokenCorrelation(candidate, active, observed); warning != "" {
		decision.Warnings = append(decision.Warnings, warning)
	}

	if !decision.Allowed {
		s.logger.Warn().
			Str("pool", string(candidate.Address)).
			Float64("proposed_usd", proposedUSD).
			Strs("reasons", decision.Reasons).
			Msg("Entry rejected by portfolio gate")
	}
	return decision
}

// checkDrawdown ratchets the equity peak and rejects when current equity has
// fallen more than the configured percentage below it. Equity is the capital
// base adjusted by each active position's unrealized P&L.
func (s *PortfolioState) checkDrawdown(active []types.Position) string {
	equity := utils.MustFloatToDec(s.params.TotalCapitalUSD)
	for _, pos := range active {
		gain := pos.CurrentValueUSD + pos.FeesEarnedUSD - pos.CapitalUSD
		if gain >= 0 {
			equity = equity.Add(utils.MustFloatToDec(gain))
		} else {
			equity = equity.Sub(utils.MustFloatToDec(-gain))
		}
	}

	if equity.GT(s.peakEquity) {
		s.peakEquity = equity
	}
	if s.peakEquity.IsZero() {
		return ""
	}

	drawdownPct := utils.MustDecToFloat(s.peakEquity.Sub(equity).Quo(s.peakEquity)) * 100
	if drawdownPct <= s.params.MaxDrawdownPct {
		return ""
	}
	return fmt.Sprintf("portfolio drawdown %.2f%% exceeds %.2f%% ceiling", drawdownPct, s.params.MaxDrawdownPct)
}

// checkCircuitBreaker rejects all entries while the pools our capital sits in
// look distressed. The two distress conditions are measured as independent
// fractions over the active-position pools: a violent 1h price swing in more
// than breakerPoolFraction of them, or a collapsed 5m volume relative to the
// pool's own 24h average in more than breakerPoolFraction of them. Once
// tripped, the breaker keeps rejecting until the cooldown elapses, even if the
// market recovers sooner.
func (s *PortfolioState) checkCircuitBreaker(active []types.Position, observed []types.PoolSnapshot) string {
	now := s.now()
	if !s.breakerAt.IsZero() && now.Sub(s.breakerAt) < breakerCooldown {
		remaining := breakerCooldown - now.Sub(s.breakerAt)
		return fmt.Sprintf("circuit breaker cooling down, %s remaining", remaining.Round(time.Second))
	}

	pools := activePoolSnapshots(active, observed)
	if len(pools) == 0 {
		return ""
	}
	swings, collapses := 0, 0
	for _, snap := range pools {
		if math.Abs(snap.PriceChange1hPct) > breakerPriceSwingPct {
			swings++
		}
		if volumeCollapsed(snap) {
			collapses++
		}
	}

	total := float64(len(pools))
	var cause string
	switch {
	case float64(swings)/total > breakerPoolFraction:
		cause = fmt.Sprintf("%d of %d active pools in violent price swings", swings, len(pools))
	case float64(collapses)/total > breakerPoolFraction:
		cause = fmt.Sprintf("%d of %d active pools in volume collapse", collapses, len(pools))
	default:
		return ""
	}

	s.breakerAt = now
	s.logger.Warn().
		Int("price_swings", swings).
		Int("volume_collapses", collapses).
		Int("active_pools", len(pools)).
		Msg("Market circuit breaker tripped")
	return "circuit breaker tripped: " + cause
}

// activePoolSnapshots collects the latest snapshot of each distinct pool that
// holds an active position. Positions whose pool is no longer observed are
// skipped.
func activePoolSnapshots(active []types.Position, observed []types.PoolSnapshot) []types.PoolSnapshot {
	byAddress := make(map[types.PoolAddress]types.PoolSnapshot, len(observed))
	for _, snap := range observed {
		byAddress[snap.Address] = snap
	}

	seen := make(map[types.PoolAddress]bool, len(active))
	var pools []types.PoolSnapshot
	for _, pos := range active {
		if seen[pos.Pool] {
			continue
		}
		seen[pos.Pool] = true
		if snap, ok := byAddress[pos.Pool]; ok {
			pools = append(pools, snap)
		}
	}
	return pools
}

func volumeCollapsed(snap types.PoolSnapshot) bool {
	if snap.Volume24hUSD <= 0 {
		return false
	}
	avg5m := snap.Volume24hUSD / volumeSlicesPerDay
	return snap.Volume5mUSD < breakerVolumeCollapseFraction*avg5m
}

// checkExposure rejects when deployed capital plus the proposed amount would
// exceed the exposure fraction of the capital base.
func (s *PortfolioState) checkExposure(proposedUSD float64, active []types.Position) string {
	deployed := sdkmath.LegacyZeroDec()
	for _, pos := range active {
		deployed = deployed.Add(utils.MustFloatToDec(pos.CapitalUSD))
	}
	proposed := deployed.Add(utils.MustFloatToDec(proposedUSD))
	ceiling := utils.MustFloatToDec(s.params.MaxExposureFraction * s.params.TotalCapitalUSD)
	if proposed.LTE(ceiling) {
		return ""
	}
	return fmt.Sprintf("exposure $%.2f would exceed ceiling $%.2f (%.0f%% of capital)",
		utils.MustDecToFloat(proposed), utils.MustDecToFloat(ceiling), s.params.MaxExposureFraction*100)
}

// checkTokenCorrelation warns when too many active positions already share a
// token with the candidate. Measured against the latest snapshot of each
// position's pool; positions whose pool is no longer observed are skipped.
func (s *PortfolioState) checkTokenCorrelation(
	candidate types.PoolSnapshot,
	active []types.Position,
	observed []types.PoolSnapshot,
) string {
	byAddress := make(map[types.PoolAddress]types.PoolSnapshot, len(observed))
	for _, snap := range observed {
		byAddress[snap.Address] = snap
	}

	shared := 0
	for _, pos := range active {
		snap, ok := byAddress[pos.Pool]
		if !ok {
			continue
		}
		if candidate.SharesToken(snap) {
			shared++
		}
	}
	if shared <= s.params.MaxSharedTokenPositions {
		return ""
	}
	return fmt.Sprintf("%d active positions already share a token with %s (limit %d)",
		shared, candidate.Name, s.params.MaxSharedTokenPositions)
}

// volatilitySizeMultiplier maps candidate volatility to a position size
// fraction. Calm pools deploy full size, violent ones a quarter.
func volatilitySizeMultiplier(snap types.PoolSnapshot) float64 {
	vol := scoring.SnapshotVolatilityPct(snap)
	switch {
	case vol < 5:
		return 1.0
	case vol < 15:
		return 0.75
	case vol < 30:
		return 0.5
	default:
		return 0.25
	}
}
