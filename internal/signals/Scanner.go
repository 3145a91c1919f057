/*

This file contains the fee-rate signal scanner. It watches every observed
pool for an unusually hot 30-minute fee/TVL rate and emits advisory alerts
for pools worth a closer look. Alerts are advisory only: nothing here
deploys capital, and the per-pool cooldown keeps a persistently hot pool
from flooding the output.

*/

package signals

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-fi/alm/internal/logger"
	"github.com/meridian-fi/alm/internal/types"
)

// Alert is one hot-pool notification.
type Alert struct {
	Pool       types.PoolAddress `json:"pool"`
	Name       string            `json:"name"`
	FeeRatePct float64           `json:"fee_rate_pct"` // 30m fees as % of TVL
	TvlUSD     float64           `json:"tvl_usd"`
	Reason     string            `json:"reason"`
	At         time.Time         `json:"at"`
}

// Scanner finds pools whose 30-minute fee rate crossed the alert threshold.
// Safe for concurrent use.
type Scanner struct {
	mu sync.Mutex

	params       types.Parameters
	now          func() time.Time
	logger       zerolog.Logger
	lastNotified map[types.PoolAddress]time.Time
}

func NewScanner(params types.Parameters) *Scanner {
	return newScanner(params, time.Now)
}

func newScanner(params types.Parameters, now func() time.Time) *Scanner {
	return &Scanner{
		params:       params,
		now:          now,
		logger:       logger.GetForComponent("signals"),
		lastNotified: make(map[types.PoolAddress]time.Time),
	}
}

// Scan returns alerts for pools whose 30m fee/TVL rate meets the threshold,
// hottest first, capped at the batch limit. Pools below the TVL floor are
// skipped, and a pool already alerted within the cooldown window is
// suppressed without consuming a batch slot.
func (s *Scanner) Scan(observed []types.PoolSnapshot) []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	candidates := make([]Alert, 0, len(observed))
	for _, snap := range observed {
		rate, ok := feeRatePct(snap)
		if !ok || rate < s.params.FeeRateAlertPct {
			continue
		}
		if snap.TvlUSD < s.params.MinAlertTvlUSD {
			continue
		}
		candidates = append(candidates, Alert{
			Pool:       snap.Address,
			Name:       snap.Name,
			FeeRatePct: rate,
			TvlUSD:     snap.TvlUSD,
			Reason:     fmt.Sprintf("30m fee rate %.2f%% of TVL (threshold %.2f%%)", rate, s.params.FeeRateAlertPct),
			At:         now,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FeeRatePct > candidates[j].FeeRatePct
	})

	alerts := make([]Alert, 0, s.params.MaxAlertBatch)
	for _, alert := range candidates {
		if len(alerts) >= s.params.MaxAlertBatch {
			break
		}
		if last, ok := s.lastNotified[alert.Pool]; ok && now.Sub(last) < s.params.AlertCooldown {
			continue
		}
		s.lastNotified[alert.Pool] = now
		alerts = append(alerts, alert)
	}

	if len(alerts) > 0 {
		s.logger.Info().Int("alerts", len(alerts)).Msg("Fee rate alerts emitted")
	}
	return alerts
}

// feeRatePct is the 30-minute fee take as a percentage of TVL. Returns false
// when TVL is unknown.
func feeRatePct(snap types.PoolSnapshot) (float64, bool) {
	if snap.TvlUSD <= 0 {
		return 0, false
	}
	return snap.Fees30mUSD / snap.TvlUSD * 100, true
}
