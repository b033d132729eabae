package interest

import (
	"fmt"
	"math/big"

	"lendingScope/internal/fixedpoint"
)

// Utilization returns totalBorrowed / totalSupplied at RateScale, clamped to
// [0, 1]. It is zero when nothing is supplied.
func Utilization(totalBorrowed, totalSupplied *big.Int) *big.Int {
	if totalBorrowed == nil || totalBorrowed.Sign() <= 0 {
		return new(big.Int)
	}
	if totalSupplied == nil || totalSupplied.Sign() <= 0 {
		return new(big.Int)
	}
	u := new(big.Int).Mul(totalBorrowed, fixedpoint.RateScale)
	u.Quo(u, totalSupplied)
	if u.Cmp(fixedpoint.RateScale) > 0 {
		u.Set(fixedpoint.RateScale)
	}
	return u
}

// RateCurve evaluates the kinked borrow rate curve and the matching supply
// rate. All inputs and outputs are annual rates at RateScale.
//
// Below the optimal point the borrow rate rises linearly to underSlope;
// above it, overSlope is spread over the remaining utilization range.
func RateCurve(utilization, optimal, underSlope, overSlope *big.Int) (borrowRate, supplyRate *big.Int) {
	u := clampUnit(utilization)
	borrowRate = new(big.Int)

	switch {
	case optimal == nil || optimal.Sign() <= 0:
		// Degenerate curve: everything is above optimal.
		borrowRate.Add(borrowRate, valueOrZero(underSlope))
		borrowRate.Add(borrowRate, new(big.Int).Quo(new(big.Int).Mul(u, valueOrZero(overSlope)), fixedpoint.RateScale))
	case u.Cmp(optimal) < 0 || optimal.Cmp(fixedpoint.RateScale) >= 0:
		borrowRate.Mul(u, valueOrZero(underSlope))
		borrowRate.Quo(borrowRate, optimal)
	default:
		excess := new(big.Int).Sub(u, optimal)
		excess.Mul(excess, valueOrZero(overSlope))
		excess.Quo(excess, new(big.Int).Sub(fixedpoint.RateScale, optimal))
		borrowRate.Add(valueOrZero(underSlope), excess)
	}

	supplyRate = new(big.Int).Mul(borrowRate, u)
	supplyRate.Quo(supplyRate, fixedpoint.RateScale)
	return borrowRate, supplyRate
}

// ValidateCurve checks the parameters a caller must guarantee before using
// RateCurve.
func ValidateCurve(optimal, underSlope, overSlope *big.Int) error {
	if optimal == nil || optimal.Sign() <= 0 || optimal.Cmp(fixedpoint.RateScale) >= 0 {
		return fmt.Errorf("optimal utilization must be strictly between 0 and 1")
	}
	if underSlope == nil || underSlope.Sign() < 0 {
		return fmt.Errorf("under-optimal slope must be non-negative")
	}
	if overSlope == nil || overSlope.Sign() < 0 {
		return fmt.Errorf("over-optimal slope must be non-negative")
	}
	return nil
}

func clampUnit(v *big.Int) *big.Int {
	if v == nil || v.Sign() < 0 {
		return new(big.Int)
	}
	if v.Cmp(fixedpoint.RateScale) > 0 {
		return new(big.Int).Set(fixedpoint.RateScale)
	}
	return new(big.Int).Set(v)
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
