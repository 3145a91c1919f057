/*
This file contains common utility functions for converting between float64 USD
amounts and SDK decimal values used by the capital accounting paths.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrNotFinite        = errors.New("value is not finite")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrConversionFailed = errors.New("conversion failed")
)

// usdPrecision is the number of decimal places kept for USD accounting.
const usdPrecision = 6

// FloatToDec converts a non-negative float64 USD amount to a LegacyDec.
// String formatting is used to avoid binary floating point artifacts.
func FloatToDec(amount float64) (sdkmath.LegacyDec, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount < 0 {
		return sdkmath.LegacyZeroDec(), ErrAmountNegative
	}
	if amount == 0 {
		return sdkmath.LegacyZeroDec(), nil
	}

	amountStr := fmt.Sprintf("%.*f", usdPrecision, amount)
	dec, err := sdkmath.LegacyNewDecFromStr(amountStr)
	if err != nil {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	return dec, nil
}

// MustFloatToDec converts like FloatToDec but clamps invalid input to zero.
// Used on paths that must not fail on data-quality issues.
func MustFloatToDec(amount float64) sdkmath.LegacyDec {
	dec, err := FloatToDec(amount)
	if err != nil {
		return sdkmath.LegacyZeroDec()
	}
	return dec
}

// MustDecToFloat converts like DecToFloat but clamps invalid input to zero.
func MustDecToFloat(dec sdkmath.LegacyDec) float64 {
	f, err := DecToFloat(dec)
	if err != nil {
		return 0
	}
	return f
}

// DecToFloat converts a LegacyDec back to float64 for reporting.
func DecToFloat(dec sdkmath.LegacyDec) (float64, error) {
	if dec.IsNil() {
		return 0, fmt.Errorf("%w: dec is nil", ErrConversionFailed)
	}
	f, err := dec.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, f)
	}
	return f, nil
}
