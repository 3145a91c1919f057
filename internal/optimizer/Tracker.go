/*

This file contains the per-strategy performance tracker. It accumulates the
outcome of every closed position so the optimizer can weigh a candidate
strategy's live track record against the one currently deployed. The tracker
is in-memory only; it starts empty each run and earns its samples.

*/

package optimizer

import "sync"

// strategyRecord accumulates outcomes for one strategy.
type strategyRecord struct {
	samples  int
	wins     int
	scoreSum float64
}

// PerformanceTracker records realized outcomes per strategy. Safe for
// concurrent use.
type PerformanceTracker struct {
	mu      sync.Mutex
	records map[string]*strategyRecord
}

func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{records: make(map[string]*strategyRecord)}
}

// RecordOutcome adds one closed position's result: the overall score the
// pool carried at entry and whether the position closed profitably.
func (t *PerformanceTracker) RecordOutcome(strategy string, entryScore float64, win bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[strategy]
	if !ok {
		rec = &strategyRecord{}
		t.records[strategy] = rec
	}
	rec.samples++
	rec.scoreSum += entryScore
	if win {
		rec.wins++
	}
}

// Samples returns how many outcomes have been recorded for a strategy.
func (t *PerformanceTracker) Samples(strategy string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[strategy]; ok {
		return rec.samples
	}
	return 0
}

// WinRate returns the strategy's fraction of profitable closes in [0,1] and
// false when no outcome has been recorded yet.
func (t *PerformanceTracker) WinRate(strategy string) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[strategy]
	if !ok || rec.samples == 0 {
		return 0, false
	}
	return float64(rec.wins) / float64(rec.samples), true
}

// AverageScore returns the mean entry score across the strategy's recorded
// outcomes and false when no outcome has been recorded yet.
func (t *PerformanceTracker) AverageScore(strategy string) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[strategy]
	if !ok || rec.samples == 0 {
		return 0, false
	}
	return rec.scoreSum / float64(rec.samples), true
}
