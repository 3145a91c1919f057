/*

This file contains the collaborator interfaces the decision engine drives.
Market data, position persistence, execution and notification delivery all
live behind these boundaries; the engine itself only decides. Paper-mode
implementations live in Paper.go, live implementations are wired in by the
caller.

*/

package engine

import (
	"context"

	"github.com/meridian-fi/alm/internal/strategy"
	"github.com/meridian-fi/alm/internal/types"
)

// SnapshotSource produces the latest snapshot of every observed pool.
type SnapshotSource interface {
	FetchSnapshots(ctx context.Context) ([]types.PoolSnapshot, error)
}

// PositionStore persists positions across cycles.
type PositionStore interface {
	GetActivePositions() ([]types.Position, error)
	SavePosition(pos types.Position) error
	UpdatePosition(pos types.Position) error
}

// ExecutionReceipt is the outcome of one executed action.
type ExecutionReceipt struct {
	Success     bool
	TxSignature string
	GasUSD      float64
	Message     string
}

// OpenRequest carries everything the executor needs to open a position.
type OpenRequest struct {
	Snapshot   types.PoolSnapshot
	Selection  strategy.Selection
	CapitalUSD float64
}

// Executor performs the actions the engine decides on. All methods block
// until the action settled or failed.
type Executor interface {
	OpenPosition(ctx context.Context, req OpenRequest) (ExecutionReceipt, error)
	ClosePosition(ctx context.Context, pos types.Position, reason string) (ExecutionReceipt, error)
	SwitchStrategy(ctx context.Context, pos types.Position, sel strategy.Selection) (ExecutionReceipt, error)
	ClaimFees(ctx context.Context, pos types.Position) (ExecutionReceipt, error)
}

// Notifier delivers human-facing notifications. Delivery failures are logged
// and never block the cycle.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}
