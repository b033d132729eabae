package model

import (
	"encoding/json"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// HealthFactor is total collateral over required collateral, in basis
// points. It is infinite when there is no debt.
type HealthFactor struct {
	Bps      *big.Int
	Infinite bool
}

var healthyBps = big.NewInt(10_000)

// InfiniteHealth is the health factor of a position without debt.
func InfiniteHealth() HealthFactor {
	return HealthFactor{Infinite: true}
}

// Liquidatable reports whether the position is under-collateralized.
func (h HealthFactor) Liquidatable() bool {
	if h.Infinite || h.Bps == nil {
		return false
	}
	return h.Bps.Cmp(healthyBps) < 0
}

// Float64 is for display only.
func (h HealthFactor) Float64() float64 {
	if h.Infinite || h.Bps == nil {
		return math.Inf(1)
	}
	f, _ := new(big.Rat).SetFrac(h.Bps, healthyBps).Float64()
	return f
}

func (h HealthFactor) String() string {
	if h.Infinite || h.Bps == nil {
		return "inf"
	}
	return new(big.Rat).SetFrac(h.Bps, healthyBps).FloatString(4)
}

func (h HealthFactor) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UserPosition aggregates every asset of the active account. Values are USD
// at PriceDecimals.
type UserPosition struct {
	HealthFactor        HealthFactor `json:"health_factor"`
	TotalSuppliedUSD    *big.Int     `json:"total_supplied_usd"`
	TotalBorrowedUSD    *big.Int     `json:"total_borrowed_usd"`
	CollateralNeededUSD *big.Int     `json:"collateral_needed_usd"`
	ExcessCollateralUSD *big.Int     `json:"excess_collateral_usd"`
}

// View is the immutable snapshot shown to consumers. A View is replaced
// wholesale; its values must not be mutated.
type View struct {
	Account    common.Address `json:"account"`
	Assets     []Asset        `json:"assets"`
	Position   UserPosition   `json:"position"`
	ComputedAt uint64         `json:"computed_at"`
}

// Asset looks up an asset by id.
func (v View) Asset(id string) (Asset, bool) {
	for _, asset := range v.Assets {
		if asset.Config.ID == id {
			return asset, true
		}
	}
	return Asset{}, false
}

// EmptyPosition is the position of an account with nothing fetched yet.
func EmptyPosition() UserPosition {
	return UserPosition{
		HealthFactor:        InfiniteHealth(),
		TotalSuppliedUSD:    new(big.Int),
		TotalBorrowedUSD:    new(big.Int),
		CollateralNeededUSD: new(big.Int),
		ExcessCollateralUSD: new(big.Int),
	}
}
