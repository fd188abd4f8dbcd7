package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafemath_Checked(t *testing.T) {
	_, err := CheckedAddU64(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = CheckedSubU64(1, 2)
	assert.ErrorIs(t, err, ErrUnderflow)

	_, err = CheckedMulU64(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrOverflow)

	v, err := CheckedMulU64(1<<32, 1<<31)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63), v)

	assert.Equal(t, uint64(0), SaturatingSubU64(3, 5))
	assert.Equal(t, uint64(math.MaxUint64), SaturatingAddU64(math.MaxUint64, 5))
}

func TestSafemath_MulDiv(t *testing.T) {
	v, err := MulDivU64(100000, 1, 3, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(33334), v)

	v, err = MulDivU64(100000, 1, 3, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(33333), v)

	// intermediate product exceeds 64 bits but the quotient does not
	v, err = MulDivU64(math.MaxUint64, 255, 255, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)

	_, err = MulDivU64(math.MaxUint64, 255, 1, false)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = MulDivU64(1, 1, 0, false)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestSafemath_MulDivPow10(t *testing.T) {
	// 1.5 units at 6 decimals converted 1:1 into 9 decimals
	v, err := MulDivPow10(1_500_000, 1, 1, 3, 0, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), v)

	// 9 -> 6 decimals truncates, or rounds up
	v, err = MulDivPow10(1_500_000_001, 1, 1, 0, 3, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), v)

	v, err = MulDivPow10(1_500_000_001, 1, 1, 0, 3, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_001), v)

	_, err = MulDivPow10(math.MaxUint64, 1, 1, 20, 0, false)
	assert.ErrorIs(t, err, ErrOverflow)
}
