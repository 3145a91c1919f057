/*

This file contains the safety throttle: hard capital and loss ceilings, a
transaction rate limit, a consecutive-failure fuse, a manual pause and a kill
switch. The throttle is the last gate before any capital moves; every other
component may approve a deployment and the throttle can still veto it.

Counters reset lazily on first use after a boundary: the daily window rolls
at local midnight, the weekly window at local Monday midnight, the hourly
transaction window on the hour. No background goroutine is involved.

*/

package safety

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/meridian-fi/alm/internal/logger"
	"github.com/meridian-fi/alm/internal/types"
	"github.com/meridian-fi/alm/internal/utils"
)

// Throttle is the stateful deployment gate. One instance guards all capital
// movement; all methods are safe for concurrent use.
type Throttle struct {
	mu sync.Mutex

	params types.Parameters
	now    func() time.Time
	logger zerolog.Logger

	dailyDeployedUSD  sdkmath.LegacyDec
	weeklyDeployedUSD sdkmath.LegacyDec
	dailyLossUSD      sdkmath.LegacyDec
	weeklyLossUSD     sdkmath.LegacyDec
	dayStart          time.Time
	weekStart         time.Time

	hourlyTxCount int
	hourStart     time.Time

	consecutiveFailures int

	paused      bool
	pauseReason string
	killSwitch  bool
}

func NewThrottle(params types.Parameters) *Throttle {
	return newThrottle(params, time.Now)
}

func newThrottle(params types.Parameters, now func() time.Time) *Throttle {
	t := &Throttle{
		params:            params,
		now:               now,
		logger:            logger.GetForComponent("safety"),
		dailyDeployedUSD:  sdkmath.LegacyZeroDec(),
		weeklyDeployedUSD: sdkmath.LegacyZeroDec(),
		dailyLossUSD:      sdkmath.LegacyZeroDec(),
		weeklyLossUSD:     sdkmath.LegacyZeroDec(),
	}
	current := now()
	t.dayStart = startOfDay(current)
	t.weekStart = startOfWeek(current)
	t.hourStart = current.Truncate(time.Hour)
	return t
}

// Check answers whether amountUSD may deploy right now. It never mutates the
// counters; call RecordDeployment after the deployment actually executes.
// Gates are evaluated in order: kill switch, pause, consecutive failures,
// per-position size, daily and weekly capital ceilings, daily and weekly
// loss ceilings, hourly transaction rate.
func (t *Throttle) Check(amountUSD float64) types.SafetyDecision {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollWindows()

	if t.killSwitch {
		return reject("kill switch is armed")
	}
	if t.paused {
		return reject(fmt.Sprintf("throttle paused: %s", t.pauseReason))
	}
	if t.consecutiveFailures >= t.params.MaxConsecutiveFailures {
		return reject(fmt.Sprintf("%d consecutive failures reached the %d limit",
			t.consecutiveFailures, t.params.MaxConsecutiveFailures))
	}
	if amountUSD > t.params.MaxPositionUSD {
		return reject(fmt.Sprintf("position size $%.2f exceeds $%.2f limit",
			amountUSD, t.params.MaxPositionUSD))
	}

	amount := utils.MustFloatToDec(amountUSD)
	if t.dailyDeployedUSD.Add(amount).GT(utils.MustFloatToDec(t.params.DailyCapitalLimitUSD)) {
		return reject(fmt.Sprintf("daily capital limit $%.2f would be exceeded", t.params.DailyCapitalLimitUSD))
	}
	if t.weeklyDeployedUSD.Add(amount).GT(utils.MustFloatToDec(t.params.WeeklyCapitalLimitUSD)) {
		return reject(fmt.Sprintf("weekly capital limit $%.2f would be exceeded", t.params.WeeklyCapitalLimitUSD))
	}
	if t.dailyLossUSD.GTE(utils.MustFloatToDec(t.params.DailyLossLimitUSD)) {
		return reject(fmt.Sprintf("daily loss limit $%.2f reached", t.params.DailyLossLimitUSD))
	}
	if t.weeklyLossUSD.GTE(utils.MustFloatToDec(t.params.WeeklyLossLimitUSD)) {
		return reject(fmt.Sprintf("weekly loss limit $%.2f reached", t.params.WeeklyLossLimitUSD))
	}
	if t.hourlyTxCount >= t.params.MaxTransactionsPerHour {
		return reject(fmt.Sprintf("hourly transaction limit %d reached", t.params.MaxTransactionsPerHour))
	}

	return types.SafetyDecision{Allowed: true}
}

// RecordDeployment adds an executed deployment to the daily and weekly
// capital counters.
func (t *Throttle) RecordDeployment(amountUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollWindows()

	amount := utils.MustFloatToDec(amountUSD)
	t.dailyDeployedUSD = t.dailyDeployedUSD.Add(amount)
	t.weeklyDeployedUSD = t.weeklyDeployedUSD.Add(amount)
}

// RecordLoss adds a realized loss to the daily and weekly loss counters and
// auto-pauses the throttle when either ceiling is reached.
func (t *Throttle) RecordLoss(amountUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollWindows()

	amount := utils.MustFloatToDec(amountUSD)
	t.dailyLossUSD = t.dailyLossUSD.Add(amount)
	t.weeklyLossUSD = t.weeklyLossUSD.Add(amount)

	if t.dailyLossUSD.GTE(utils.MustFloatToDec(t.params.DailyLossLimitUSD)) {
		t.pauseLocked(fmt.Sprintf("daily loss limit $%.2f reached", t.params.DailyLossLimitUSD))
	} else if t.weeklyLossUSD.GTE(utils.MustFloatToDec(t.params.WeeklyLossLimitUSD)) {
		t.pauseLocked(fmt.Sprintf("weekly loss limit $%.2f reached", t.params.WeeklyLossLimitUSD))
	}
}

// RecordTransaction counts an attempted transaction toward the hourly rate
// limit and tracks the consecutive-failure fuse. A success resets the fuse;
// reaching the failure limit auto-pauses the throttle.
func (t *Throttle) RecordTransaction(success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollWindows()

	t.hourlyTxCount++
	if success {
		t.consecutiveFailures = 0
		return
	}
	t.consecutiveFailures++
	if t.consecutiveFailures >= t.params.MaxConsecutiveFailures {
		t.pauseLocked(fmt.Sprintf("%d consecutive transaction failures", t.consecutiveFailures))
	}
}

// Pause blocks deployments until Resume is called. The reason is echoed in
// every subsequent rejection.
func (t *Throttle) Pause(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked(reason)
}

// Resume lifts a pause and resets the consecutive-failure fuse. It does not
// disarm the kill switch.
func (t *Throttle) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = false
	t.pauseReason = ""
	t.consecutiveFailures = 0
	t.logger.Info().Msg("Throttle resumed")
}

// ArmKillSwitch blocks all deployments unconditionally until DisarmKillSwitch.
// It overrides Resume.
func (t *Throttle) ArmKillSwitch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.killSwitch = true
	t.logger.Warn().Msg("Kill switch armed")
}

func (t *Throttle) DisarmKillSwitch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.killSwitch = false
	t.logger.Warn().Msg("Kill switch disarmed")
}

// Paused reports whether the throttle is currently pausing deployments and why.
func (t *Throttle) Paused() (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused, t.pauseReason
}

func (t *Throttle) pauseLocked(reason string) {
	t.paused = true
	t.pauseReason = reason
	t.logger.Warn().Str("reason", reason).Msg("Throttle paused")
}

// rollWindows lazily resets any counter whose window boundary has passed.
// Callers must hold the mutex.
func (t *Throttle) rollWindows() {
	now := t.now()

	if day := startOfDay(now); day.After(t.dayStart) {
		t.dayStart = day
		t.dailyDeployedUSD = sdkmath.LegacyZeroDec()
		t.dailyLossUSD = sdkmath.LegacyZeroDec()
	}
	if week := startOfWeek(now); week.After(t.weekStart) {
		t.weekStart = week
		t.weeklyDeployedUSD = sdkmath.LegacyZeroDec()
		t.weeklyLossUSD = sdkmath.LegacyZeroDec()
	}
	if hour := now.Truncate(time.Hour); hour.After(t.hourStart) {
		t.hourStart = hour
		t.hourlyTxCount = 0
	}
}

func startOfDay(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
}

// startOfWeek returns the most recent Monday midnight, local time.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func reject(reason string) types.SafetyDecision {
	return types.SafetyDecision{Allowed: false, Reason: reason}
}
