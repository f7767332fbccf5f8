// Package safemath holds checked integer arithmetic and basis-point fee math.
// Nothing here saturates: every overflow, underflow or division by zero is
// reported as domain.ErrMathOverflow.
package safemath

import (
	"math/bits"

	"github.com/x-xyz/cloutledger/domain"
)

// BpsDenominator is 100% expressed in basis points.
const BpsDenominator = 10_000

func Add(a, b domain.Amount) (domain.Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, domain.ErrMathOverflow
	}
	return domain.Amount(sum), nil
}

func Sub(a, b domain.Amount) (domain.Amount, error) {
	diff, borrow := bits.Sub64(uint64(a), uint64(b), 0)
	if borrow != 0 {
		return 0, domain.ErrMathOverflow
	}
	return domain.Amount(diff), nil
}

func Mul(a, b domain.Amount) (domain.Amount, error) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 {
		return 0, domain.ErrMathOverflow
	}
	return domain.Amount(lo), nil
}

func Div(a, b domain.Amount) (domain.Amount, error) {
	if b == 0 {
		return 0, domain.ErrMathOverflow
	}
	return a / b, nil
}

// MulDiv returns floor(a*b/d) with a 128-bit intermediate product.
func MulDiv(a, b, d domain.Amount) (domain.Amount, error) {
	if d == 0 {
		return 0, domain.ErrMathOverflow
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(d) {
		return 0, domain.ErrMathOverflow
	}
	quo, _ := bits.Div64(hi, lo, uint64(d))
	return domain.Amount(quo), nil
}
