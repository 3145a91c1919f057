/*

This file contains the strategy catalogue: an ordered table of strategy
definitions, each a data record plus three pure functions (eligibility, token
allocation, exit test). Selection is a linear scan over the table, sorted once
by priority at registration time - no runtime polymorphism.

*/

package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meridian-fi/alm/internal/logger"
	"github.com/meridian-fi/alm/internal/types"
)

var catalogueLogger = logger.GetForComponent("strategy_catalogue")

var (
	ErrEmptyCatalogue = errors.New("catalogue must contain at least one strategy")
	ErrDuplicateName  = errors.New("duplicate strategy name")
	ErrInvalidDef     = errors.New("invalid strategy definition")
)

// Definition is one strategy: static classification plus its three
// operations. Definitions are registered once at startup and immutable
// thereafter.
type Definition struct {
	Name      string
	Priority  int // higher is evaluated first
	Timeframe types.Timeframe
	Tightness types.Tightness
	Risk      types.RiskClass

	Eligible   func(types.PoolSnapshot) types.EligibilityResult
	Allocation func(types.PoolSnapshot) types.TokenAllocation // nil means neutral 50/50
	ExitTest   func(types.Position, types.PoolSnapshot) types.RiskVerdict
}

// Selection is the total, deterministic result of selecting a strategy for a
// snapshot: exactly one strategy, its bin parameters for the given baseline
// range, and its token allocation.
type Selection struct {
	Strategy   Definition
	Fallback   bool // true when no predicate matched and the neutral default was used
	Reason     string
	Confidence float64
	Bin        types.BinParameters
	Allocation types.TokenAllocation
}

// Catalogue holds the registered strategies sorted by descending priority.
type Catalogue struct {
	defs  []Definition
	index map[string]int
}

// NewCatalogue validates and registers the given definitions. The slice is
// sorted by descending priority with registration order breaking ties, so a
// pool matching both a conservative and an aggressive strategy resolves to
// the higher-priority one.
func NewCatalogue(defs ...Definition) (*Catalogue, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyCatalogue
	}

	sorted := make([]Definition, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	index := make(map[string]int, len(sorted))
	for i, def := range sorted {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: empty name at position %d", ErrInvalidDef, i)
		}
		if def.Eligible == nil || def.ExitTest == nil {
			return nil, fmt.Errorf("%w: strategy %q must define eligibility and exit tests", ErrInvalidDef, def.Name)
		}
		if _, exists := index[def.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, def.Name)
		}
		index[def.Name] = i
	}

	catalogueLogger.Info().
		Int("strategies", len(sorted)).
		Str("highestPriority", sorted[0].Name).
		Msg("Strategy catalogue registered")

	return &Catalogue{defs: sorted, index: index}, nil
}

// Definitions returns the registered strategies in selection order.
func (c *Catalogue) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Lookup returns the definition registered under name.
func (c *Catalogue) Lookup(name string) (Definition, bool) {
	i, ok := c.index[name]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Select walks the catalogue in descending priority order and returns the
// first strategy whose eligibility predicate matches the snapshot. When no
// predicate matches it falls back to the neutral default, so the function is
// total: it always returns exactly one strategy.
func (c *Catalogue) Select(snap types.PoolSnapshot, baseBinRange int) Selection {
	for _, def := range c.defs {
		result := def.Eligible(snap)
		if !result.Matches {
			continue
		}
		catalogueLogger.Debug().
			Str("pool", string(snap.Address)).
			Str("strategy", def.Name).
			Int("priority", def.Priority).
			Str("reason", result.Reason).
			Msg("Strategy selected")
		return Selection{
			Strategy:   def,
			Reason:     result.Reason,
			Confidence: result.Confidence,
			Bin:        def.BinParameters(baseBinRange),
			Allocation: def.TokenAllocation(snap),
		}
	}

	fallback := neutralDefault()
	catalogueLogger.Debug().
		Str("pool", string(snap.Address)).
		Str("strategy", fallback.Name).
		Msg("No strategy matched, using neutral default")
	return Selection{
		Strategy:   fallback,
		Fallback:   true,
		Reason:     "no strategy matched, neutral default",
		Confidence: 50,
		Bin:        fallback.BinParameters(baseBinRange),
		Allocation: fallback.TokenAllocation(snap),
	}
}

// ExitCheck delegates to the exit test of the strategy managing the position.
// An unknown strategy name degrades to no verdict rather than failing the
// whole evaluation.
func (c *Catalogue) ExitCheck(pos types.Position, snap types.PoolSnapshot) types.RiskVerdict {
	def, ok := c.Lookup(pos.Strategy)
	if !ok {
		catalogueLogger.Warn().
			Str("position", pos.ID).
			Str("strategy", pos.Strategy).
			Msg("Position references unknown strategy, skipping strategy exit test")
		return types.Hold()
	}
	return def.ExitTest(pos, snap)
}

// BinParameters scales a caller-supplied baseline bin range by the
// definition's tightness multiplier. The medium (default) class passes the
// baseline through unchanged.
func (d Definition) BinParameters(baseRange int) types.BinParameters {
	return types.BinParameters{
		Range:     ScaleBinRange(baseRange, d.Tightness),
		Tightness: d.Tightness,
	}
}

// TokenAllocation returns the strategy's capital split for the snapshot,
// defaulting to neutral 50/50 when the strategy expresses no bias.
func (d Definition) TokenAllocation(snap types.PoolSnapshot) types.TokenAllocation {
	if d.Allocation == nil {
		return types.Neutral5050()
	}
	alloc := d.Allocation(snap)
	if alloc.BasePct < 0 || alloc.BasePct > 1 || math.IsNaN(alloc.BasePct) {
		return types.Neutral5050()
	}
	return alloc
}

// ScaleBinRange applies the per-tightness multiplier and floor to a baseline
// bin range: verytight x0.5 floored at 2, tight x0.7 floored at 3, wide x1.5,
// verywide x2.5. Any other class passes the baseline through unchanged.
func ScaleBinRange(baseRange int, tightness types.Tightness) int {
	base := float64(baseRange)
	switch tightness {
	case types.TightnessVeryTight:
		return maxInt(2, int(math.Round(base*0.5)))
	case types.TightnessTight:
		return maxInt(3, int(math.Round(base*0.7)))
	case types.TightnessWide:
		return int(math.Round(base * 1.5))
	case types.TightnessVeryWide:
		return int(math.Round(base * 2.5))
	default:
		return baseRange
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// asOf anchors age computations to the snapshot's fetch time so exit tests
// stay deterministic given their inputs. A zero fetch time falls back to the
// wall clock.
func asOf(snap types.PoolSnapshot) time.Time {
	if snap.FetchedAt.IsZero() {
		return time.Now()
	}
	return snap.FetchedAt
}
