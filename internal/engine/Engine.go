/*

This file contains the decision engine: the per-cycle orchestration that
ties scoring, strategy selection, risk, safety, optimization and signal
scanning together. One cycle runs the full pipeline over fresh snapshots;
RunLoop repeats it on a fixed interval until the context is cancelled.

The engine itself never talks to a chain or a database. Everything with a
side effect goes through the collaborator interfaces, which is what makes
paper mode and the tests possible.

*/

package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meridian-fi/alm/internal/logger"
	"github.com/meridian-fi/alm/internal/optimizer"
	"github.com/meridian-fi/alm/internal/risk"
	"github.com/meridian-fi/alm/internal/safety"
	"github.com/meridian-fi/alm/internal/scoring"
	"github.com/meridian-fi/alm/internal/signals"
	"github.com/meridian-fi/alm/internal/strategy"
	"github.com/meridian-fi/alm/internal/types"
)

// DefaultBaseBinRange is the baseline bin count strategies scale from.
const DefaultBaseBinRange = 10

const hoursPerYear = 24 * 365

// Engine drives the decision cycle over injected collaborators.
type Engine struct {
	logger zerolog.Logger

	source   SnapshotSource
	store    PositionStore
	executor Executor
	notifier Notifier

	catalogue *strategy.Catalogue
	params    types.Parameters
	portfolio *risk.PortfolioState
	exitEval  *risk.ExitEvaluator
	throttle  *safety.Throttle
	tracker   *optimizer.PerformanceTracker
	optimizer *optimizer.Optimizer
	scanner   *signals.Scanner

	baseBinRange int
	cycleCount   int
}

// Config holds the collaborators and parameters for a new Engine.
type Config struct {
	Source       SnapshotSource
	Store        PositionStore
	Executor     Executor
	Notifier     Notifier
	Catalogue    *strategy.Catalogue
	Params       types.Parameters
	BaseBinRange int // zero means DefaultBaseBinRange
}

// NewEngine builds an engine and its internal decision components from cfg.
func NewEngine(cfg Config) (*Engine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	binRange := cfg.BaseBinRange
	if binRange == 0 {
		binRange = DefaultBaseBinRange
	}

	tracker := optimizer.NewPerformanceTracker()
	eng := &Engine{
		logger:       logger.GetForComponent("engine"),
		source:       cfg.Source,
		store:        cfg.Store,
		executor:     cfg.Executor,
		notifier:     cfg.Notifier,
		catalogue:    cfg.Catalogue,
		params:       cfg.Params,
		portfolio:    risk.NewPortfolioState(cfg.Params),
		exitEval:     risk.NewExitEvaluator(cfg.Catalogue, cfg.Params),
		throttle:     safety.NewThrottle(cfg.Params),
		tracker:      tracker,
		optimizer:    optimizer.New(cfg.Catalogue, tracker, cfg.Params, binRange),
		scanner:      signals.NewScanner(cfg.Params),
		baseBinRange: binRange,
	}

	eng.logger.Info().
		Int("baseBinRange", binRange).
		Int("strategies", len(cfg.Catalogue.Definitions())).
		Msg("Engine instance created")
	return eng, nil
}

func validateConfig(cfg Config) error {
	if cfg.Source == nil {
		return fmt.Errorf("snapshot source cannot be nil")
	}
	if cfg.Store == nil {
		return fmt.Errorf("position store cannot be nil")
	}
	if cfg.Executor == nil {
		return fmt.Errorf("executor cannot be nil")
	}
	if cfg.Notifier == nil {
		return fmt.Errorf("notifier cannot be nil")
	}
	if cfg.Catalogue == nil {
		return fmt.Errorf("strategy catalogue cannot be nil")
	}
	return nil
}

// Throttle exposes the safety throttle for operator controls.
func (e *Engine) Throttle() *safety.Throttle {
	return e.throttle
}

// RunLoop runs cycles on a fixed interval until ctx is cancelled. The first
// cycle runs immediately.
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) {
	e.logger.Info().Dur("interval", interval).Msg("Starting engine main loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.cycleCount++
	e.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Engine loop stopped due to context cancellation")
			return
		case <-ticker.C:
			e.cycleCount++
			e.RunCycle(ctx)
		}
	}
}

// RunCycle executes one full decision cycle.
func (e *Engine) RunCycle(ctx context.Context) {
	cycleStart := time.Now()
	cycleID := uuid.New().String()
	cycleLogger := e.logger.With().Str("cycle_id", cycleID).Int("cycle", e.cycleCount).Logger()

	cycleLogger.Info().Msg("--- Starting Cycle ---")

	// --- Step 1: Fetch Snapshots ---
	cycleLogger.Info().Msg("Step 1: Fetching pool snapshots...")
	snapshots, err := e.source.FetchSnapshots(ctx)
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to fetch snapshots.")
		return
	}
	if len(snapshots) == 0 {
		cycleLogger.Warn().Msg("Cycle aborted: no snapshots available.")
		return
	}
	byAddress := make(map[types.PoolAddress]types.PoolSnapshot, len(snapshots))
	for _, snap := range snapshots {
		byAddress[snap.Address] = snap
	}
	cycleLogger.Info().Int("pools", len(snapshots)).Msg("Step 1: Snapshot fetch complete.")

	// --- Step 2: Monitor Active Positions ---
	cycleLogger.Info().Msg("Step 2: Monitoring active positions...")
	active, err := e.store.GetActivePositions()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to load active positions.")
		return
	}
	remaining := e.monitorPositions(ctx, cycleLogger, active, byAddress)
	cycleLogger.Info().
		Int("active", len(active)).
		Int("remaining", len(remaining)).
		Msg("Step 2: Position monitoring complete.")

	// --- Step 3: Optimize Surviving Positions ---
	cycleLogger.Info().Msg("Step 3: Optimizing surviving positions...")
	e.optimizePositions(ctx, cycleLogger, remaining, byAddress)

	// --- Step 4: Score and Rank Pools ---
	cycleLogger.Info().Msg("Step 4: Scoring and ranking pools...")
	ranked := scoring.RankPools(snapshots, e.params)
	cycleLogger.Info().Int("ranked", len(ranked)).Msg("Step 4: Ranking complete.")

	// --- Step 5: Evaluate New Entries ---
	cycleLogger.Info().Msg("Step 5: Evaluating entry candidates...")
	opened := e.evaluateEntries(ctx, cycleLogger, ranked, remaining, snapshots)
	cycleLogger.Info().Int("opened", opened).Msg("Step 5: Entry evaluation complete.")

	// --- Step 6: Scan for Signals ---
	cycleLogger.Info().Msg("Step 6: Scanning for fee rate signals...")
	for _, alert := range e.scanner.Scan(snapshots) {
		if err := e.notifier.Notify(ctx, "Hot pool: "+alert.Name, alert.Reason); err != nil {
			cycleLogger.Error().Err(err).Str("pool", string(alert.Pool)).Msg("Alert delivery failed")
		}
	}

	cycleLogger.Info().
		Str("cycleDuration", time.Since(cycleStart).String()).
		Msg("--- Cycle Completed ---")
}

// monitorPositions refreshes each active position against its latest
// snapshot, runs the exit evaluation and closes triggered positions in
// urgency order. It returns the positions that survived the cycle.
func (e *Engine) monitorPositions(
	ctx context.Context,
	cycleLogger zerolog.Logger,
	active []types.Position,
	byAddress map[types.PoolAddress]types.PoolSnapshot,
) []types.Position {
	type exitCandidate struct {
		pos     types.Position
		verdict types.RiskVerdict
	}

	var exits []exitCandidate
	var remaining []types.Position

	for _, pos := range active {
		snap, ok := byAddress[pos.Pool]
		if !ok {
			cycleLogger.Warn().
				Str("position", pos.ID).
				Str("pool", string(pos.Pool)).
				Msg("No snapshot for position's pool, holding")
			remaining = append(remaining, pos)
			continue
		}

		e.refreshPosition(&pos, snap)
		if err := e.store.UpdatePosition(pos); err != nil {
			cycleLogger.Error().Err(err).Str("position", pos.ID).Msg("Failed to persist position refresh")
		}

		verdict := e.exitEval.EvaluatePositionExit(pos, snap)
		if verdict.Triggered {
			exits = append(exits, exitCandidate{pos: pos, verdict: verdict})
		} else {
			remaining = append(remaining, pos)
		}
	}

	// Highest urgency closes first.
	sort.SliceStable(exits, func(i, j int) bool {
		return urgencyRank(exits[i].verdict.Urgency) > urgencyRank(exits[j].verdict.Urgency)
	})

	for _, exit := range exits {
		if !e.closePosition(ctx, cycleLogger, exit.pos, exit.verdict) {
			// Close failed, the position stays live for the next cycle.
			remaining = append(remaining, exit.pos)
		}
	}
	return remaining
}

// closePosition executes an exit and records the outcome with the throttle
// and the performance tracker. Returns false when execution failed.
func (e *Engine) closePosition(ctx context.Context, cycleLogger zerolog.Logger, pos types.Position, verdict types.RiskVerdict) bool {
	receipt, err := e.executor.ClosePosition(ctx, pos, verdict.Reason)
	e.throttle.RecordTransaction(err == nil && receipt.Success)
	if err != nil || !receipt.Success {
		cycleLogger.Error().Err(err).Str("position", pos.ID).Msg("Position close failed")
		return false
	}

	pos.Status = types.PositionClosed
	pos.ClosedAt = time.Now()
	pos.GasSpentUSD += receipt.GasUSD
	if err := e.store.UpdatePosition(pos); err != nil {
		cycleLogger.Error().Err(err).Str("position", pos.ID).Msg("Failed to persist position close")
	}

	profit := pos.CurrentValueUSD + pos.FeesEarnedUSD - pos.CapitalUSD
	e.tracker.RecordOutcome(pos.Strategy, float64(pos.EntryScores.Overall), profit > 0)
	if profit < 0 {
		e.throttle.RecordLoss(-profit)
	}
	e.optimizer.Forget(pos.ID)

	cycleLogger.Info().
		Str("position", pos.ID).
		Str("check", verdict.Check).
		Float64("profitUSD", profit).
		Msg("Position closed")

	if err := e.notifier.Notify(ctx, "Position closed: "+pos.PoolName,
		fmt.Sprintf("%s ($%.2f P&L)", verdict.Reason, profit)); err != nil {
		cycleLogger.Error().Err(err).Msg("Close notification delivery failed")
	}
	return true
}

// optimizePositions runs the strategy optimizer and the fee-claim advisory
// over the surviving positions.
func (e *Engine) optimizePositions(
	ctx context.Context,
	cycleLogger zerolog.Logger,
	positions []types.Position,
	byAddress map[types.PoolAddress]types.PoolSnapshot,
) {
	for _, pos := range positions {
		snap, ok := byAddress[pos.Pool]
		if !ok {
			continue
		}
		scores := scoring.CalculateScoreSet(snap, e.params)

		result := e.optimizer.Evaluate(pos, snap, scores)
		if result.ShouldSwitch && result.Suggestion != nil {
			e.switchStrategy(ctx, cycleLogger, pos, snap, *result.Suggestion)
		}

		advice := e.optimizer.EvaluateClaim(pos, snap)
		if advice.ShouldClaim {
			e.claimFees(ctx, cycleLogger, pos, advice)
		}
	}
}

func (e *Engine) switchStrategy(ctx context.Context, cycleLogger zerolog.Logger, pos types.Position, snap types.PoolSnapshot, suggestion types.SwitchSuggestion) {
	sel := e.catalogue.Select(snap, e.baseBinRange)
	receipt, err := e.executor.SwitchStrategy(ctx, pos, sel)
	e.throttle.RecordTransaction(err == nil && receipt.Success)
	if err != nil || !receipt.Success {
		cycleLogger.Error().Err(err).Str("position", pos.ID).Msg("Strategy switch failed")
		return
	}

	pos.PreviousStrategy = pos.Strategy
	pos.Strategy = suggestion.Strategy
	pos.SwitchCount++
	pos.LastSwitchAt = time.Now()
	pos.GasSpentUSD += receipt.GasUSD
	if err := e.store.UpdatePosition(pos); err != nil {
		cycleLogger.Error().Err(err).Str("position", pos.ID).Msg("Failed to persist strategy switch")
	}
	e.optimizer.CommitSwitch(pos.ID)

	cycleLogger.Info().
		Str("position", pos.ID).
		Str("from", pos.PreviousStrategy).
		Str("to", pos.Strategy).
		Msg("Strategy switched")
}

func (e *Engine) claimFees(ctx context.Context, cycleLogger zerolog.Logger, pos types.Position, advice types.ClaimAdvice) {
	receipt, err := e.executor.ClaimFees(ctx, pos)
	e.throttle.RecordTransaction(err == nil && receipt.Success)
	if err != nil || !receipt.Success {
		cycleLogger.Error().Err(err).Str("position", pos.ID).Msg("Fee claim failed")
		return
	}

	pos.LastClaimedAt = time.Now()
	pos.GasSpentUSD += receipt.GasUSD
	if err := e.store.UpdatePosition(pos); err != nil {
		cycleLogger.Error().Err(err).Str("position", pos.ID).Msg("Failed to persist fee claim")
	}

	cycleLogger.Info().
		Str("position", pos.ID).
		Float64("estimatedFeesUSD", advice.EstimatedFeesUSD).
		Msg("Fees claimed")
}

// evaluateEntries walks the top ranked pools and opens positions where the
// strategy catalogue, the portfolio gate and the safety throttle all agree.
// Returns how many positions opened.
func (e *Engine) evaluateEntries(
	ctx context.Context,
	cycleLogger zerolog.Logger,
	ranked []scoring.RankedPool,
	active []types.Position,
	snapshots []types.PoolSnapshot,
) int {
	held := make(map[types.PoolAddress]bool, len(active))
	for _, pos := range active {
		held[pos.Pool] = true
	}

	limit := e.params.EntryCandidateSize
	if limit > len(ranked) {
		limit = len(ranked)
	}

	opened := 0
	for _, candidate := range ranked[:limit] {
		snap := candidate.Snapshot
		if held[snap.Address] || snap.Blacklisted {
			continue
		}

		sel := e.catalogue.Select(snap, e.baseBinRange)
		if sel.Fallback {
			// Nothing matched on its own merits, skip rather than deploy
			// on the neutral default.
			continue
		}

		proposed := math.Min(e.params.MaxPositionUSD, e.params.TotalCapitalUSD)
		entry := e.portfolio.EvaluateEntry(snap, proposed, active, snapshots)
		for _, warning := range entry.Warnings {
			cycleLogger.Warn().Str("pool", string(snap.Address)).Str("warning", warning).Msg("Entry warning")
		}
		if !entry.Allowed {
			continue
		}
		sized := proposed * entry.SizeMultiplier

		if decision := e.throttle.Check(sized); !decision.Allowed {
			cycleLogger.Warn().
				Str("pool", string(snap.Address)).
				Str("reason", decision.Reason).
				Msg("Entry blocked by safety throttle")
			continue
		}

		if pos, ok := e.openPosition(ctx, cycleLogger, snap, sel, candidate.Scores, sized); ok {
			active = append(active, pos)
			held[snap.Address] = true
			opened++
		}
	}
	return opened
}

func (e *Engine) openPosition(
	ctx context.Context,
	cycleLogger zerolog.Logger,
	snap types.PoolSnapshot,
	sel strategy.Selection,
	scores types.ScoreSet,
	capitalUSD float64,
) (types.Position, bool) {
	receipt, err := e.executor.OpenPosition(ctx, OpenRequest{
		Snapshot:   snap,
		Selection:  sel,
		CapitalUSD: capitalUSD,
	})
	e.throttle.RecordTransaction(err == nil && receipt.Success)
	if err != nil || !receipt.Success {
		cycleLogger.Error().Err(err).Str("pool", string(snap.Address)).Msg("Position open failed")
		return types.Position{}, false
	}
	e.throttle.RecordDeployment(capitalUSD)

	authorities := snap.BaseToken.Security.MintAuthority || snap.BaseToken.Security.FreezeAuthority ||
		snap.QuoteToken.Security.MintAuthority || snap.QuoteToken.Security.FreezeAuthority

	pos := types.Position{
		ID:               uuid.New().String(),
		Pool:             snap.Address,
		PoolName:         snap.Name,
		Strategy:         sel.Strategy.Name,
		Status:           types.PositionActive,
		CapitalUSD:       capitalUSD,
		EntryPriceUSD:    snap.PriceUSD,
		EntryTvlUSD:      snap.TvlUSD,
		EntryYieldPct:    snap.YieldRatePct,
		EntryBaseTier:    snap.BaseToken.Security.Tier,
		EntryQuoteTier:   snap.QuoteToken.Security.Tier,
		EntryAuthorities: authorities,
		EntryScores:      scores,
		CurrentValueUSD:  capitalUSD,
		GasSpentUSD:      receipt.GasUSD,
		OpenedAt:         time.Now(),
	}
	if err := e.store.SavePosition(pos); err != nil {
		cycleLogger.Error().Err(err).Str("position", pos.ID).Msg("Failed to persist opened position")
	}

	cycleLogger.Info().
		Str("position", pos.ID).
		Str("pool", snap.Name).
		Str("strategy", pos.Strategy).
		Float64("capitalUSD", capitalUSD).
		Int("binRange", sel.Bin.Range).
		Msg("Position opened")

	if err := e.notifier.Notify(ctx, "Position opened: "+snap.Name,
		fmt.Sprintf("%s with $%.2f (%s)", pos.Strategy, capitalUSD, sel.Reason)); err != nil {
		cycleLogger.Error().Err(err).Msg("Open notification delivery failed")
	}
	return pos, true
}

// refreshPosition re-estimates a position's running value from its entry
// state and the pool's current price. A 50/50 LP position is worth
// capital * sqrt(price ratio) relative to entry, and unclaimed fees accrue
// at the advertised yield since the later of open and last claim. These are
// estimates; a live executor would replace them with chain reads.
func (e *Engine) refreshPosition(pos *types.Position, snap types.PoolSnapshot) {
	if pos.EntryPriceUSD > 0 && snap.PriceUSD > 0 {
		ratio := snap.PriceUSD / pos.EntryPriceUSD
		pos.CurrentValueUSD = pos.CapitalUSD * math.Sqrt(ratio)
	}
	if snap.YieldRatePct > 0 {
		since := pos.OpenedAt
		if !pos.LastClaimedAt.IsZero() {
			since = pos.LastClaimedAt
		}
		accruing := time.Since(since)
		if accruing < 0 {
			accruing = 0
		}
		pos.FeesEarnedUSD = pos.CapitalUSD * (snap.YieldRatePct / 100) * (accruing.Hours() / hoursPerYear)
	}
}

func urgencyRank(u types.Urgency) int {
	switch u {
	case types.UrgencyHigh:
		return 2
	case types.UrgencyMedium:
		return 1
	default:
		return 0
	}
}
