package safemath

import (
	"errors"
	"math/bits"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrUnderflow      = errors.New("arithmetic underflow")
	ErrDivisionByZero = errors.New("division by zero")
)

func SaturatingSubU64(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func SaturatingAddU64(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return sum
}

func CheckedAddU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

func CheckedSubU64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrUnderflow
	}
	return diff, nil
}

func CheckedMulU64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// MulDivU64 computes a*b/c with a 256-bit intermediate. The quotient is
// rounded towards positive infinity when roundUp is set.
func MulDivU64(a, b, c uint64, roundUp bool) (uint64, error) {
	return MulDivPow10(a, b, c, 0, 0, roundUp)
}

// MulDivPow10 computes (a * b * 10^mulExp) / (c * 10^divExp).
func MulDivPow10(a, b, c uint64, mulExp, divExp uint8, roundUp bool) (uint64, error) {
	if c == 0 {
		return 0, ErrDivisionByZero
	}

	num := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	if mulExp > 0 {
		var overflow bool
		num, overflow = new(uint256.Int).MulOverflow(num, pow10(mulExp))
		if overflow {
			return 0, ErrOverflow
		}
	}

	den := uint256.NewInt(c)
	if divExp > 0 {
		den = new(uint256.Int).Mul(den, pow10(divExp))
	}

	quo, rem := new(uint256.Int), new(uint256.Int)
	quo.DivMod(num, den, rem)
	if roundUp && !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}

	if !quo.IsUint64() {
		return 0, ErrOverflow
	}
	return quo.Uint64(), nil
}

func pow10(exp uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(exp)))
}
