package aggregate

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"lendingScope/internal/fixedpoint"
	"lendingScope/internal/interest"
	"lendingScope/internal/model"
)

const testNow = 1_700_000_000

var testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")

func testCurve() model.CurveParams {
	return model.CurveParams{
		OptimalUtilization: new(big.Int).Div(new(big.Int).Mul(big.NewInt(8), fixedpoint.RateScale), big.NewInt(10)),
		UnderSlope:         new(big.Int).Div(new(big.Int).Mul(big.NewInt(4), fixedpoint.RateScale), big.NewInt(100)),
		OverSlope:          new(big.Int).Div(new(big.Int).Mul(big.NewInt(75), fixedpoint.RateScale), big.NewInt(100)),
	}
}

func testAsset(id string, ltv uint64, borrowable bool) model.AssetConfig {
	return model.AssetConfig{
		ID:         id,
		Name:       id,
		Ticker:     id,
		Token:      common.BytesToAddress([]byte(id)),
		Oracle:     common.BytesToAddress([]byte("oracle-" + id)),
		Decimals:   6,
		LTVBps:     ltv,
		Borrowable: borrowable,
		Curve:      testCurve(),
	}
}

func units(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), big.NewInt(1_000_000))
}

func rawSnapshot(id string, supplied, borrowed int64, price int64) model.RawSnapshot {
	return model.RawSnapshot{
		AssetID:        id,
		Price:          new(big.Int).Mul(big.NewInt(price), fixedpoint.PriceScale),
		UserSupplied:   units(supplied),
		UserBorrowed:   units(borrowed),
		TotalSupplied:  units(1000),
		TotalBorrowed:  units(50),
		Deposit:        model.Accumulator{Value: fixedpoint.RateScale, LastUpdated: testNow},
		Borrow:         model.Accumulator{Value: fixedpoint.RateScale, LastUpdated: testNow},
		PublicBalance:  units(10),
		PrivateBalance: units(0),
	}
}

func twoAssetView() model.View {
	configs := []model.AssetConfig{testAsset("usdc", 6000, true), testAsset("dai", 6000, true)}
	raws := map[string]model.RawSnapshot{
		"usdc": rawSnapshot("usdc", 100, 0, 1),
		"dai":  rawSnapshot("dai", 0, 50, 1),
	}
	return Compute(testAccount, configs, raws, testNow)
}

func TestHealthFactorTwoAssets(t *testing.T) {
	view := twoAssetView()
	pos := view.Position

	if pos.TotalSuppliedUSD.Cmp(big.NewInt(10_000_000_000)) != 0 {
		t.Fatalf("supplied usd: %s", pos.TotalSuppliedUSD)
	}
	if pos.TotalBorrowedUSD.Cmp(big.NewInt(5_000_000_000)) != 0 {
		t.Fatalf("borrowed usd: %s", pos.TotalBorrowedUSD)
	}
	// $50 / 0.60 = $83.33333333
	if pos.CollateralNeededUSD.Cmp(big.NewInt(8_333_333_333)) != 0 {
		t.Fatalf("collateral needed: %s", pos.CollateralNeededUSD)
	}
	if pos.HealthFactor.Infinite || pos.HealthFactor.Bps.Cmp(big.NewInt(12_000)) != 0 {
		t.Fatalf("health factor: %s", pos.HealthFactor)
	}
	if pos.HealthFactor.Liquidatable() {
		t.Fatalf("position should be healthy")
	}
	if pos.ExcessCollateralUSD.Cmp(big.NewInt(1_666_666_667)) != 0 {
		t.Fatalf("excess collateral: %s", pos.ExcessCollateralUSD)
	}
}

func TestLimits(t *testing.T) {
	view := twoAssetView()

	usdc, ok := view.Asset("usdc")
	if !ok {
		t.Fatalf("usdc missing")
	}
	if usdc.WithdrawableAmount.Cmp(big.NewInt(16_666_666)) != 0 {
		t.Fatalf("withdrawable: %s", usdc.WithdrawableAmount)
	}

	dai, _ := view.Asset("dai")
	if dai.BorrowableUSD.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("borrowable usd: %s", dai.BorrowableUSD)
	}
	if dai.BorrowableAmount.Cmp(units(10)) != 0 {
		t.Fatalf("borrowable amount: %s", dai.BorrowableAmount)
	}
	if dai.MarketLiquidity.Cmp(units(950)) != 0 {
		t.Fatalf("market liquidity: %s", dai.MarketLiquidity)
	}
}

func TestWithdrawingLimitKeepsPositionHealthy(t *testing.T) {
	configs := []model.AssetConfig{testAsset("usdc", 6000, true), testAsset("dai", 6000, true)}
	raws := map[string]model.RawSnapshot{
		"usdc": rawSnapshot("usdc", 100, 0, 1),
		"dai":  rawSnapshot("dai", 0, 50, 1),
	}
	before := Compute(testAccount, configs, raws, testNow)
	usdc, _ := before.Asset("usdc")

	after := raws["usdc"]
	after.UserSupplied = new(big.Int).Sub(after.UserSupplied, usdc.WithdrawableAmount)
	raws["usdc"] = after

	view := Compute(testAccount, configs, raws, testNow)
	hf := view.Position.HealthFactor
	if hf.Infinite || hf.Bps.Cmp(big.NewInt(10_000)) < 0 {
		t.Fatalf("withdrawing the reported limit broke the position: %s", hf)
	}
}

func TestBorrowingLimitKeepsPositionHealthy(t *testing.T) {
	configs := []model.AssetConfig{testAsset("usdc", 6000, true), testAsset("dai", 6000, true)}
	raws := map[string]model.RawSnapshot{
		"usdc": rawSnapshot("usdc", 100, 0, 1),
		"dai":  rawSnapshot("dai", 0, 50, 1),
	}
	before := Compute(testAccount, configs, raws, testNow)
	dai, _ := before.Asset("dai")

	after := raws["dai"]
	after.UserBorrowed = new(big.Int).Add(after.UserBorrowed, dai.BorrowableAmount)
	raws["dai"] = after

	hf := Compute(testAccount, configs, raws, testNow).Position.HealthFactor
	if hf.Bps.Cmp(big.NewInt(10_000)) < 0 {
		t.Fatalf("borrowing the reported limit broke the position: %s", hf)
	}
}

func TestWithdrawableNeverExceedsSupplied(t *testing.T) {
	view := twoAssetView()
	for _, asset := range view.Assets {
		if asset.WithdrawableAmount.Cmp(asset.UserSuppliedAccrued) > 0 {
			t.Fatalf("%s withdrawable %s exceeds supplied %s", asset.Config.ID, asset.WithdrawableAmount, asset.UserSuppliedAccrued)
		}
	}
}

func TestInfiniteHealthWithoutDebt(t *testing.T) {
	configs := []model.AssetConfig{testAsset("usdc", 6000, true)}
	raws := map[string]model.RawSnapshot{"usdc": rawSnapshot("usdc", 500, 0, 1)}

	view := Compute(testAccount, configs, raws, testNow)
	if !view.Position.HealthFactor.Infinite {
		t.Fatalf("expected infinite health factor, got %s", view.Position.HealthFactor)
	}
	usdc, _ := view.Asset("usdc")
	if usdc.WithdrawableAmount.Cmp(units(500)) != 0 {
		t.Fatalf("everything should be withdrawable: %s", usdc.WithdrawableAmount)
	}
}

func TestMissingPriceOnlyAffectsThatAsset(t *testing.T) {
	configs := []model.AssetConfig{testAsset("usdc", 6000, true), testAsset("eth", 7000, true)}
	raws := map[string]model.RawSnapshot{
		"usdc": rawSnapshot("usdc", 100, 0, 1),
		"eth":  rawSnapshot("eth", 3, 0, 0),
	}

	view := Compute(testAccount, configs, raws, testNow)
	if len(view.Assets) != 2 {
		t.Fatalf("both assets should render, got %d", len(view.Assets))
	}
	eth, _ := view.Asset("eth")
	if !eth.PriceMissing {
		t.Fatalf("eth should be flagged")
	}
	if eth.WithdrawableAmount.Sign() != 0 || eth.BorrowableAmount.Sign() != 0 {
		t.Fatalf("eth limits should be zero")
	}
	usdc, _ := view.Asset("usdc")
	if usdc.WithdrawableAmount.Cmp(units(100)) != 0 || usdc.BorrowableAmount.Sign() == 0 {
		t.Fatalf("usdc limits should be unaffected: %+v", usdc)
	}
}

func TestNotBorrowable(t *testing.T) {
	configs := []model.AssetConfig{testAsset("usdc", 6000, false)}
	raws := map[string]model.RawSnapshot{"usdc": rawSnapshot("usdc", 100, 0, 1)}

	usdc, _ := Compute(testAccount, configs, raws, testNow).Asset("usdc")
	if usdc.BorrowableAmount.Sign() != 0 || usdc.BorrowableUSD.Sign() != 0 {
		t.Fatalf("non-borrowable asset reported a borrow limit")
	}
}

func TestAccruedFromAuthoritativePrincipal(t *testing.T) {
	configs := []model.AssetConfig{testAsset("usdc", 6000, true), testAsset("dai", 6000, true)}
	raws := map[string]model.RawSnapshot{
		"usdc": rawSnapshot("usdc", 100, 0, 1),
		"dai":  rawSnapshot("dai", 0, 50, 1),
	}
	later := uint64(testNow + interest.SecondsPerYear)

	first := Compute(testAccount, configs, raws, later)
	second := Compute(testAccount, configs, raws, later)

	dai, _ := first.Asset("dai")
	if dai.UserBorrowedAccrued.Cmp(dai.Raw.UserBorrowed) <= 0 {
		t.Fatalf("debt should accrue over a year")
	}
	again, _ := second.Asset("dai")
	if again.UserBorrowedAccrued.Cmp(dai.UserBorrowedAccrued) != 0 {
		t.Fatalf("recomputing must not compound: %s != %s", again.UserBorrowedAccrued, dai.UserBorrowedAccrued)
	}
	if raws["dai"].UserBorrowed.Cmp(units(50)) != 0 {
		t.Fatalf("inputs were mutated")
	}
}

func TestDepositCapacity(t *testing.T) {
	cfg := testAsset("usdc", 6000, true)
	cfg.DepositCap = units(1200)
	raws := map[string]model.RawSnapshot{"usdc": rawSnapshot("usdc", 100, 0, 1)}

	usdc, _ := Compute(testAccount, []model.AssetConfig{cfg}, raws, testNow).Asset("usdc")
	if usdc.DepositCapacity == nil || usdc.DepositCapacity.Cmp(units(200)) != 0 {
		t.Fatalf("deposit capacity: %v", usdc.DepositCapacity)
	}
}

func TestUnfetchedAssetsOmitted(t *testing.T) {
	configs := []model.AssetConfig{testAsset("usdc", 6000, true), testAsset("dai", 6000, true)}
	raws := map[string]model.RawSnapshot{"usdc": rawSnapshot("usdc", 100, 0, 1)}

	view := Compute(testAccount, configs, raws, testNow)
	if len(view.Assets) != 1 || view.Assets[0].Config.ID != "usdc" {
		t.Fatalf("unexpected assets: %+v", view.Assets)
	}
}

func TestUnpricedDebtFreezesLimits(t *testing.T) {
	configs := []model.AssetConfig{testAsset("usdc", 6000, true), testAsset("eth", 7000, true)}
	raws := map[string]model.RawSnapshot{
		"usdc": rawSnapshot("usdc", 100, 0, 1),
		"eth":  rawSnapshot("eth", 0, 20, 0),
	}

	view := Compute(testAccount, configs, raws, testNow)
	if len(view.Assets) != 2 {
		t.Fatalf("both assets should render, got %d", len(view.Assets))
	}
	if view.Position.ExcessCollateralUSD.Sign() != 0 {
		t.Fatalf("excess should be zero with unpriced debt: %s", view.Position.ExcessCollateralUSD)
	}
	for _, asset := range view.Assets {
		if asset.WithdrawableAmount.Sign() != 0 || asset.BorrowableAmount.Sign() != 0 || asset.BorrowableUSD.Sign() != 0 {
			t.Fatalf("%s limits should be zero: withdraw=%s borrow=%s", asset.Config.ID, asset.WithdrawableAmount, asset.BorrowableAmount)
		}
	}
	usdc, _ := view.Asset("usdc")
	if usdc.UserSuppliedUSD.Cmp(big.NewInt(10_000_000_000)) != 0 {
		t.Fatalf("usdc should still be valued: %s", usdc.UserSuppliedUSD)
	}
}

// Each withdraw limit is computed against the whole excess, so taking every
// limit at once can leave the position under-collateralized. Taking any one
// of them cannot.
func TestWithdrawLimitsArePerAsset(t *testing.T) {
	configs := []model.AssetConfig{
		testAsset("usdc", 6000, true),
		testAsset("dai", 6000, true),
		testAsset("eth", 6000, true),
	}
	raws := map[string]model.RawSnapshot{
		"usdc": rawSnapshot("usdc", 100, 0, 1),
		"dai":  rawSnapshot("dai", 100, 0, 1),
		"eth":  rawSnapshot("eth", 0, 60, 1),
	}
	before := Compute(testAccount, configs, raws, testNow)
	// $60 / 0.60 = $100 needed, $100 excess.
	if before.Position.ExcessCollateralUSD.Cmp(big.NewInt(10_000_000_000)) != 0 {
		t.Fatalf("excess: %s", before.Position.ExcessCollateralUSD)
	}

	withdrawn := func(ids ...string) model.HealthFactor {
		next := make(map[string]model.RawSnapshot, len(raws))
		for id, raw := range raws {
			next[id] = raw
		}
		for _, id := range ids {
			asset, _ := before.Asset(id)
			raw := next[id]
			raw.UserSupplied = new(big.Int).Sub(raw.UserSupplied, asset.WithdrawableAmount)
			next[id] = raw
		}
		return Compute(testAccount, configs, next, testNow).Position.HealthFactor
	}

	for _, id := range []string{"usdc", "dai"} {
		asset, _ := before.Asset(id)
		if asset.WithdrawableAmount.Cmp(units(100)) != 0 {
			t.Fatalf("%s withdrawable: %s", id, asset.WithdrawableAmount)
		}
		if hf := withdrawn(id); hf.Liquidatable() {
			t.Fatalf("withdrawing %s alone broke the position: %s", id, hf)
		}
	}
	if hf := withdrawn("usdc", "dai"); !hf.Liquidatable() {
		t.Fatalf("withdrawing both limits should under-collateralize, got %s", hf)
	}
}
