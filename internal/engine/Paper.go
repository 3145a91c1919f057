/*

This file contains the paper-mode collaborators: a JSON-file snapshot
source, an in-memory position store and an executor/notifier pair that only
log. Paper mode runs the full decision pipeline against recorded market
data without ever moving capital, which is how a new parameter set earns
trust before a live executor is wired in.

*/

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/meridian-fi/alm/internal/logger"
	"github.com/meridian-fi/alm/internal/strategy"
	"github.com/meridian-fi/alm/internal/types"
)

// FileSnapshotSource reads pool snapshots from a JSON file on every fetch,
// so the file can be swapped out under a running paper engine.
type FileSnapshotSource struct {
	path string
}

func NewFileSnapshotSource(path string) *FileSnapshotSource {
	return &FileSnapshotSource{path: path}
}

func (s *FileSnapshotSource) FetchSnapshots(_ context.Context) ([]types.PoolSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file %s: %w", s.path, err)
	}
	var snaps []types.PoolSnapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file %s: %w", s.path, err)
	}
	return snaps, nil
}

// MemoryPositionStore keeps positions in memory for the lifetime of the
// process. Safe for concurrent use.
type MemoryPositionStore struct {
	mu        sync.Mutex
	positions map[string]types.Position
}

func NewMemoryPositionStore() *MemoryPositionStore {
	return &MemoryPositionStore{positions: make(map[string]types.Position)}
}

func (s *MemoryPositionStore) GetActivePositions() ([]types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []types.Position
	for _, pos := range s.positions {
		if pos.Status == types.PositionActive {
			active = append(active, pos)
		}
	}
	// Map iteration order is random; stable output keeps cycles reproducible.
	sort.Slice(active, func(i, j int) bool { return active[i].OpenedAt.Before(active[j].OpenedAt) })
	return active, nil
}

func (s *MemoryPositionStore) SavePosition(pos types.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos.ID == "" {
		return fmt.Errorf("position ID cannot be empty")
	}
	s.positions[pos.ID] = pos
	return nil
}

func (s *MemoryPositionStore) UpdatePosition(pos types.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[pos.ID]; !ok {
		return fmt.Errorf("unknown position %s", pos.ID)
	}
	s.positions[pos.ID] = pos
	return nil
}

// PaperExecutor settles every action instantly and successfully, charging a
// flat simulated gas cost.
type PaperExecutor struct {
	gasUSD float64
	logger zerolog.Logger
}

func NewPaperExecutor(gasUSD float64) *PaperExecutor {
	return &PaperExecutor{
		gasUSD: gasUSD,
		logger: logger.GetForComponent("paper_executor"),
	}
}

func (p *PaperExecutor) OpenPosition(_ context.Context, req OpenRequest) (ExecutionReceipt, error) {
	p.logger.Info().
		Str("pool", req.Snapshot.Name).
		Str("strategy", req.Selection.Strategy.Name).
		Float64("capitalUSD", req.CapitalUSD).
		Msg("PAPER: open position")
	return p.receipt("paper open"), nil
}

func (p *PaperExecutor) ClosePosition(_ context.Context, pos types.Position, reason string) (ExecutionReceipt, error) {
	p.logger.Info().
		Str("position", pos.ID).
		Str("reason", reason).
		Msg("PAPER: close position")
	return p.receipt("paper close"), nil
}

func (p *PaperExecutor) SwitchStrategy(_ context.Context, pos types.Position, sel strategy.Selection) (ExecutionReceipt, error) {
	p.logger.Info().
		Str("position", pos.ID).
		Str("to", sel.Strategy.Name).
		Msg("PAPER: switch strategy")
	return p.receipt("paper switch"), nil
}

func (p *PaperExecutor) ClaimFees(_ context.Context, pos types.Position) (ExecutionReceipt, error) {
	p.logger.Info().
		Str("position", pos.ID).
		Msg("PAPER: claim fees")
	return p.receipt("paper claim"), nil
}

func (p *PaperExecutor) receipt(message string) ExecutionReceipt {
	return ExecutionReceipt{Success: true, GasUSD: p.gasUSD, Message: message}
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: logger.GetForComponent("notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, subject, message string) error {
	n.logger.Info().Str("subject", subject).Str("message", message).Msg("Notification")
	return nil
}
