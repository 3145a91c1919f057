package utils

import (
	"math"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatToDec(t *testing.T) {
	t.Parallel()

	t.Run("round trips a USD amount", func(t *testing.T) {
		t.Parallel()
		dec, err := FloatToDec(1234.567891)
		require.NoError(t, err)

		back, err := DecToFloat(dec)
		require.NoError(t, err)
		assert.InDelta(t, 1234.567891, back, 1e-6)
	})

	t.Run("zero is exact", func(t *testing.T) {
		t.Parallel()
		dec, err := FloatToDec(0)
		require.NoError(t, err)
		assert.True(t, dec.IsZero())
	})

	t.Run("rejects NaN and infinity", func(t *testing.T) {
		t.Parallel()
		_, err := FloatToDec(math.NaN())
		assert.ErrorIs(t, err, ErrNotFinite)

		_, err = FloatToDec(math.Inf(1))
		assert.ErrorIs(t, err, ErrNotFinite)
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		t.Parallel()
		_, err := FloatToDec(-0.01)
		assert.ErrorIs(t, err, ErrAmountNegative)
	})
}

func TestMustConversionsClampToZero(t *testing.T) {
	t.Parallel()

	assert.True(t, MustFloatToDec(math.NaN()).IsZero())
	assert.True(t, MustFloatToDec(-5).IsZero())
	assert.Zero(t, MustDecToFloat(sdkmath.LegacyDec{}))

	dec := MustFloatToDec(42.5)
	assert.InDelta(t, 42.5, MustDecToFloat(dec), 1e-9)
}

func TestDecToFloatNilDec(t *testing.T) {
	t.Parallel()

	_, err := DecToFloat(sdkmath.LegacyDec{})
	assert.ErrorIs(t, err, ErrConversionFailed)
}
