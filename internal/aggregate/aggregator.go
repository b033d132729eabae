package aggregate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"lendingScope/internal/fixedpoint"
	"lendingScope/internal/interest"
	"lendingScope/internal/model"
)

// minLTVBps is charged against debt on an asset configured with a zero LTV.
const minLTVBps = 1

// Compute renders every configured asset that has a raw snapshot and the
// aggregate position of account at time now (unix seconds).
//
// Compute is pure: it allocates every value it returns and never touches its
// inputs, so it can be re-run from the same raw snapshots at any time.
func Compute(account common.Address, configs []model.AssetConfig, raws map[string]model.RawSnapshot, now uint64) model.View {
	assets := make([]model.Asset, 0, len(configs))
	for _, cfg := range configs {
		raw, ok := raws[cfg.ID]
		if !ok {
			continue
		}
		assets = append(assets, renderAsset(cfg, raw, now))
	}

	position := summarize(assets)
	if unpricedDebt(assets) {
		position.ExcessCollateralUSD = new(big.Int)
	}
	for i := range assets {
		applyLimits(&assets[i], position.ExcessCollateralUSD)
	}

	return model.View{
		Account:    account,
		Assets:     assets,
		Position:   position,
		ComputedAt: now,
	}
}

func renderAsset(cfg model.AssetConfig, raw model.RawSnapshot, now uint64) model.Asset {
	totalSupplied := orZero(raw.TotalSupplied)
	totalBorrowed := orZero(raw.TotalBorrowed)

	utilization := interest.Utilization(totalBorrowed, totalSupplied)
	borrowRate, supplyRate := interest.RateCurve(
		utilization,
		cfg.Curve.OptimalUtilization,
		cfg.Curve.UnderSlope,
		cfg.Curve.OverSlope,
	)

	asset := model.Asset{
		Config:      cfg,
		Raw:         raw,
		Utilization: utilization,
		BorrowRate:  borrowRate,
		SupplyRate:  supplyRate,

		UserSuppliedAccrued:  interest.Accrue(orZero(raw.UserSupplied), supplyRate, raw.Deposit.LastUpdated, now),
		UserBorrowedAccrued:  interest.Accrue(orZero(raw.UserBorrowed), borrowRate, raw.Borrow.LastUpdated, now),
		TotalSuppliedAccrued: interest.Accrue(totalSupplied, supplyRate, raw.Deposit.LastUpdated, now),
		TotalBorrowedAccrued: interest.Accrue(totalBorrowed, borrowRate, raw.Borrow.LastUpdated, now),

		BorrowableUSD:      new(big.Int),
		BorrowableAmount:   new(big.Int),
		WithdrawableAmount: new(big.Int),
	}
	asset.MarketLiquidity = fixedpoint.MaxZero(new(big.Int).Sub(asset.TotalSuppliedAccrued, asset.TotalBorrowedAccrued))

	price := orZero(raw.Price)
	asset.PriceMissing = price.Sign() <= 0
	if asset.PriceMissing {
		asset.UserSuppliedUSD = new(big.Int)
		asset.UserBorrowedUSD = new(big.Int)
	} else {
		asset.UserSuppliedUSD = fixedpoint.TokenToUSD(asset.UserSuppliedAccrued, cfg.Decimals, price)
		asset.UserBorrowedUSD = fixedpoint.TokenToUSD(asset.UserBorrowedAccrued, cfg.Decimals, price)
	}

	if cfg.DepositCap != nil && cfg.DepositCap.Sign() > 0 {
		asset.DepositCapacity = fixedpoint.MaxZero(new(big.Int).Sub(cfg.DepositCap, asset.TotalSuppliedAccrued))
	}

	return asset
}

// summarize sums each asset's own-LTV collateral requirement; it does not
// blend LTVs across the portfolio.
func summarize(assets []model.Asset) model.UserPosition {
	position := model.EmptyPosition()

	for _, asset := range assets {
		position.TotalSuppliedUSD.Add(position.TotalSuppliedUSD, asset.UserSuppliedUSD)
		position.TotalBorrowedUSD.Add(position.TotalBorrowedUSD, asset.UserBorrowedUSD)

		if asset.UserBorrowedAccrued.Sign() <= 0 {
			continue
		}
		ltv := asset.Config.LTVBps
		if ltv < minLTVBps {
			ltv = minLTVBps
		}
		needed := new(big.Int).Mul(asset.UserBorrowedUSD, fixedpoint.PercentageScale)
		needed.Quo(needed, new(big.Int).SetUint64(ltv))
		position.CollateralNeededUSD.Add(position.CollateralNeededUSD, needed)
	}

	if position.CollateralNeededUSD.Sign() > 0 {
		bps := new(big.Int).Mul(position.TotalSuppliedUSD, fixedpoint.PercentageScale)
		bps.Quo(bps, position.CollateralNeededUSD)
		position.HealthFactor = model.HealthFactor{Bps: bps}
	}

	position.ExcessCollateralUSD = fixedpoint.MaxZero(new(big.Int).Sub(position.TotalSuppliedUSD, position.CollateralNeededUSD))
	return position
}

// unpricedDebt reports whether some debt could not be valued. Its collateral
// requirement is unknown, so no other asset may count on excess collateral.
func unpricedDebt(assets []model.Asset) bool {
	for _, asset := range assets {
		if asset.PriceMissing && asset.UserBorrowedAccrued.Sign() > 0 {
			return true
		}
	}
	return false
}

// applyLimits fills the borrow and withdraw limits that depend on the
// portfolio's excess collateral. An asset without a price keeps zero limits.
func applyLimits(asset *model.Asset, excessUSD *big.Int) {
	if asset.PriceMissing {
		return
	}
	price := asset.Raw.Price
	decimals := asset.Config.Decimals

	if asset.Config.Borrowable {
		liquidityUSD := fixedpoint.TokenToUSD(asset.MarketLiquidity, decimals, price)
		asset.BorrowableUSD = fixedpoint.MinInt(liquidityUSD, fixedpoint.ApplyLTV(excessUSD, asset.Config.LTVBps))
		if amount, err := fixedpoint.USDToToken(asset.BorrowableUSD, decimals, price); err == nil {
			asset.BorrowableAmount = fixedpoint.MinInt(amount, asset.MarketLiquidity)
		}
	}

	if asset.UserSuppliedUSD.Cmp(excessUSD) <= 0 {
		asset.WithdrawableAmount = new(big.Int).Set(asset.UserSuppliedAccrued)
		return
	}
	if amount, err := fixedpoint.USDToToken(excessUSD, decimals, price); err == nil {
		asset.WithdrawableAmount = fixedpoint.MinInt(amount, asset.UserSuppliedAccrued)
	}
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
