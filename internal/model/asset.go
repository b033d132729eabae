package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CurveParams holds the utilization curve of a market at RateScale.
type CurveParams struct {
	OptimalUtilization *big.Int `json:"optimal_utilization"`
	UnderSlope         *big.Int `json:"under_slope"`
	OverSlope          *big.Int `json:"over_slope"`
}

// AssetConfig is the static description of a listed asset.
type AssetConfig struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Ticker     string         `json:"ticker"`
	Token      common.Address `json:"token"`
	Oracle     common.Address `json:"oracle"`
	Decimals   uint8          `json:"decimals"`
	LTVBps     uint64         `json:"ltv_bps"`
	Borrowable bool           `json:"borrowable"`
	// DepositCap is in token units; zero means uncapped.
	DepositCap *big.Int    `json:"deposit_cap"`
	Curve      CurveParams `json:"curve"`
}

// Accumulator is a ledger-side interest record and the time it was last
// updated (unix seconds).
type Accumulator struct {
	Value       *big.Int `json:"value"`
	LastUpdated uint64   `json:"last_updated"`
}

// RawSnapshot is everything fetched from the ledger and oracle for one asset
// and one account. Amounts are authoritative principals, never accrued.
type RawSnapshot struct {
	AssetID        string      `json:"asset_id"`
	Price          *big.Int    `json:"price"`
	UserSupplied   *big.Int    `json:"user_supplied"`
	UserBorrowed   *big.Int    `json:"user_borrowed"`
	TotalSupplied  *big.Int    `json:"total_supplied"`
	TotalBorrowed  *big.Int    `json:"total_borrowed"`
	Deposit        Accumulator `json:"deposit_accumulator"`
	Borrow         Accumulator `json:"borrow_accumulator"`
	PublicBalance  *big.Int    `json:"public_balance"`
	PrivateBalance *big.Int    `json:"private_balance"`
}

// Asset is the rendered view of one asset: the raw snapshot plus every
// derived value.
type Asset struct {
	Config AssetConfig `json:"config"`
	Raw    RawSnapshot `json:"raw"`

	Utilization *big.Int `json:"utilization"`
	BorrowRate  *big.Int `json:"borrow_rate"`
	SupplyRate  *big.Int `json:"supply_rate"`

	UserSuppliedAccrued  *big.Int `json:"user_supplied_accrued"`
	UserBorrowedAccrued  *big.Int `json:"user_borrowed_accrued"`
	TotalSuppliedAccrued *big.Int `json:"total_supplied_accrued"`
	TotalBorrowedAccrued *big.Int `json:"total_borrowed_accrued"`
	MarketLiquidity      *big.Int `json:"market_liquidity"`

	UserSuppliedUSD *big.Int `json:"user_supplied_usd"`
	UserBorrowedUSD *big.Int `json:"user_borrowed_usd"`

	BorrowableUSD      *big.Int `json:"borrowable_usd"`
	BorrowableAmount   *big.Int `json:"borrowable_amount"`
	WithdrawableAmount *big.Int `json:"withdrawable_amount"`
	// DepositCapacity is nil when the asset has no deposit cap.
	DepositCapacity *big.Int `json:"deposit_capacity,omitempty"`

	// PriceMissing marks an asset whose oracle price was zero; its limits
	// are zero.
	PriceMissing bool `json:"price_missing"`
}
