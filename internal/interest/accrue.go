package interest

import (
	"math/big"

	"lendingScope/internal/fixedpoint"
)

// SecondsPerYear is the accrual period annual rates refer to.
const SecondsPerYear = 365 * 24 * 60 * 60

// Accrue projects principal from lastUpdated to now with simple linear
// interest: principal * (1 + annualRate * elapsed / SecondsPerYear).
//
// principal must be the authoritative ledger value as of lastUpdated. Feeding
// a previous Accrue result back in as principal counts interest twice.
func Accrue(principal, annualRate *big.Int, lastUpdated, now uint64) *big.Int {
	if principal == nil {
		return new(big.Int)
	}
	if now <= lastUpdated || annualRate == nil || annualRate.Sign() <= 0 || principal.Sign() == 0 {
		return new(big.Int).Set(principal)
	}
	elapsed := new(big.Int).SetUint64(now - lastUpdated)

	denom := new(big.Int).Mul(fixedpoint.RateScale, big.NewInt(SecondsPerYear))
	numer := new(big.Int).Mul(annualRate, elapsed)
	numer.Add(numer, denom)

	accrued := new(big.Int).Mul(principal, numer)
	return accrued.Quo(accrued, denom)
}
