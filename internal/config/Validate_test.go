package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-fi/alm/internal/types"
)

func TestValidateParameters_DefaultsAreValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateParameters(DefaultParameters))
}

func TestValidateParameters_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*types.Parameters)
	}{
		{"weights do not sum", func(p *types.Parameters) { p.MarketWeight = 0.5 }},
		{"negative weight", func(p *types.Parameters) { p.RiskWeight = -0.3; p.ProfitabilityWeight = 0.9 }},
		{"NaN weight", func(p *types.Parameters) { p.LiquidityWeight = math.NaN() }},
		{"zero capital", func(p *types.Parameters) { p.TotalCapitalUSD = 0 }},
		{"negative IL ceiling", func(p *types.Parameters) { p.MaxImpermanentLossPct = -5 }},
		{"exposure above one", func(p *types.Parameters) { p.MaxExposureFraction = 1.2 }},
		{"exposure zero", func(p *types.Parameters) { p.MaxExposureFraction = 0 }},
		{"weekly below daily capital", func(p *types.Parameters) { p.WeeklyCapitalLimitUSD = p.DailyCapitalLimitUSD / 2 }},
		{"weekly below daily loss", func(p *types.Parameters) { p.WeeklyLossLimitUSD = p.DailyLossLimitUSD / 2 }},
		{"zero consecutive failures", func(p *types.Parameters) { p.MaxConsecutiveFailures = 0 }},
		{"zero hold time", func(p *types.Parameters) { p.MinHoldTime = 0 }},
		{"negative cooldown", func(p *types.Parameters) { p.SwitchCooldown = -time.Hour }},
		{"zero alert batch", func(p *types.Parameters) { p.MaxAlertBatch = 0 }},
		{"zero candidate size", func(p *types.Parameters) { p.EntryCandidateSize = 0 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := DefaultParameters
			tt.mutate(&p)
			assert.ErrorIs(t, ValidateParameters(p), ErrInvalidParameters)
		})
	}
}
