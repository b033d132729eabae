package fixedpoint

import (
	"errors"
	"math/big"
)

const (
	// PriceDecimals is the precision of oracle prices and of every USD value
	// derived from them.
	PriceDecimals = 8
	// PercentageDecimals is the precision of LTV ratios and health factors.
	PercentageDecimals = 4
	// RateDecimals is the precision of utilization and interest rates.
	RateDecimals = 18
)

var (
	PriceScale      = Pow10(PriceDecimals)
	PercentageScale = Pow10(PercentageDecimals)
	RateScale       = Pow10(RateDecimals)
)

// ErrZeroPrice is returned when a USD value cannot be converted back to
// token units because the price is zero or negative.
var ErrZeroPrice = errors.New("price must be positive")

var pow10Cache [78]*big.Int

func init() {
	ten := big.NewInt(10)
	pow10Cache[0] = big.NewInt(1)
	for i := 1; i < len(pow10Cache); i++ {
		pow10Cache[i] = new(big.Int).Mul(pow10Cache[i-1], ten)
	}
}

// Pow10 returns a fresh 10^decimals.
func Pow10(decimals uint8) *big.Int {
	if int(decimals) < len(pow10Cache) && pow10Cache[decimals] != nil {
		return new(big.Int).Set(pow10Cache[decimals])
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// TokenToUSD converts a token amount to a USD value at PriceDecimals:
// amount * price / 10^decimals, truncated toward zero.
//
// Conversions floor, so TokenToUSD followed by USDToToken may lose up to one
// unit of the smaller denomination.
func TokenToUSD(amount *big.Int, decimals uint8, price *big.Int) *big.Int {
	if amount == nil || price == nil {
		return new(big.Int)
	}
	value := new(big.Int).Mul(amount, price)
	return value.Quo(value, Pow10(decimals))
}

// USDToToken converts a USD value back to token units:
// usd * 10^decimals / price.
func USDToToken(usd *big.Int, decimals uint8, price *big.Int) (*big.Int, error) {
	if price == nil || price.Sign() <= 0 {
		return nil, ErrZeroPrice
	}
	if usd == nil {
		return new(big.Int), nil
	}
	amount := new(big.Int).Mul(usd, Pow10(decimals))
	return amount.Quo(amount, price), nil
}

// ApplyLTV scales a USD value by a ratio in basis points (10000 = 100%).
func ApplyLTV(usd *big.Int, ltvBps uint64) *big.Int {
	if usd == nil {
		return new(big.Int)
	}
	value := new(big.Int).Mul(usd, new(big.Int).SetUint64(ltvBps))
	return value.Quo(value, PercentageScale)
}

// MaxZero returns max(0, v) as a new value.
func MaxZero(v *big.Int) *big.Int {
	if v == nil || v.Sign() < 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// MinInt returns a copy of the smaller of a and b.
func MinInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
