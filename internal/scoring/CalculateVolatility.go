package scoring

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/meridian-fi/alm/internal/types"
)

// ErrInsufficientData indicates that not enough data points were provided
// to calculate volatility (need at least 2 points for 1 return).
var ErrInsufficientData = errors.New("insufficient data points to calculate volatility")

// HourlyAnnualizationFactor annualizes hourly return volatility.
const HourlyAnnualizationFactor = 8760.0

// CalculateVolatility calculates the annualized historical volatility from a
// series of price data using logarithmic returns. It assumes the price data
// is sorted chronologically and sorts it first if not. The
// annualizationFactor should match the data frequency (8760 for hourly,
// 365 for daily).
func CalculateVolatility(prices []types.PricePoint, annualizationFactor float64) (float64, error) {
	n := len(prices)
	if n < 2 {
		return 0, ErrInsufficientData
	}

	sorted := make([]types.PricePoint, n)
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	logReturns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		current := sorted[i].Price
		previous := sorted[i-1].Price
		// Non-positive prices would break math.Log; skip the pair.
		if previous <= 0 || current <= 0 {
			continue
		}
		logReturns = append(logReturns, math.Log(current/previous))
	}

	if len(logReturns) == 0 {
		return 0, ErrInsufficientData
	}

	stdDev := stat.StdDev(logReturns, nil)
	if math.IsNaN(stdDev) {
		return 0, ErrInsufficientData
	}

	return stdDev * math.Sqrt(annualizationFactor), nil
}

// SnapshotVolatilityPct returns the best available 24h volatility estimate
// for a snapshot in percent: realized volatility from the price history when
// one is attached, otherwise the absolute 24h price change as a proxy.
func SnapshotVolatilityPct(snap types.PoolSnapshot) float64 {
	if len(snap.PriceHistory) >= 2 {
		annualized, err := CalculateVolatility(snap.PriceHistory, HourlyAnnualizationFactor)
		if err == nil {
			// Scale annualized volatility back to a daily figure, in percent.
			return annualized / math.Sqrt(365) * 100
		}
	}
	return math.Abs(snap.PriceChange24hPct)
}
