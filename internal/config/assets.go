package config

import (
	"fmt"
	"math/big"
	"strings"

	"lendingScope/internal/fixedpoint"
	"lendingScope/internal/interest"
	"lendingScope/internal/model"
)

// assetEntry is one row of the assets table. Rates are decimal fractions
// ("0.8" is 80%); the deposit cap is in token units.
type assetEntry struct {
	ID                 string `mapstructure:"id"`
	Name               string `mapstructure:"name"`
	Ticker             string `mapstructure:"ticker"`
	Token              string `mapstructure:"token"`
	Oracle             string `mapstructure:"oracle"`
	Decimals           uint8  `mapstructure:"decimals"`
	LTVBps             uint64 `mapstructure:"ltv-bps"`
	Borrowable         bool   `mapstructure:"borrowable"`
	DepositCap         string `mapstructure:"deposit-cap"`
	OptimalUtilization string `mapstructure:"optimal-utilization"`
	UnderSlope         string `mapstructure:"under-slope"`
	OverSlope          string `mapstructure:"over-slope"`
}

func parseAssets(entries []assetEntry) ([]model.AssetConfig, error) {
	assets := make([]model.AssetConfig, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		asset, err := parseAsset(entry)
		if err != nil {
			return nil, fmt.Errorf("asset %d: %w", i, err)
		}
		if _, dup := seen[asset.ID]; dup {
			return nil, fmt.Errorf("asset %d: duplicate id %q", i, asset.ID)
		}
		seen[asset.ID] = struct{}{}
		assets = append(assets, asset)
	}
	return assets, nil
}

func parseAsset(entry assetEntry) (model.AssetConfig, error) {
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		return model.AssetConfig{}, fmt.Errorf("id is required")
	}
	token, err := parseAddress("token", entry.Token)
	if err != nil {
		return model.AssetConfig{}, err
	}
	oracle, err := parseAddress("oracle", entry.Oracle)
	if err != nil {
		return model.AssetConfig{}, err
	}
	if entry.LTVBps > fixedpoint.PercentageScale.Uint64() {
		return model.AssetConfig{}, fmt.Errorf("ltv-bps %d above 100%%", entry.LTVBps)
	}

	depositCap := new(big.Int)
	if strings.TrimSpace(entry.DepositCap) != "" {
		depositCap, err = fixedpoint.ParseUnits(entry.DepositCap, entry.Decimals)
		if err != nil {
			return model.AssetConfig{}, fmt.Errorf("deposit-cap: %w", err)
		}
	}

	curve, err := parseCurve(entry)
	if err != nil {
		return model.AssetConfig{}, err
	}

	name := entry.Name
	if name == "" {
		name = id
	}
	ticker := entry.Ticker
	if ticker == "" {
		ticker = strings.ToUpper(id)
	}

	return model.AssetConfig{
		ID:         id,
		Name:       name,
		Ticker:     ticker,
		Token:      token,
		Oracle:     oracle,
		Decimals:   entry.Decimals,
		LTVBps:     entry.LTVBps,
		Borrowable: entry.Borrowable,
		DepositCap: depositCap,
		Curve:      curve,
	}, nil
}

func parseCurve(entry assetEntry) (model.CurveParams, error) {
	fields := []struct {
		key   string
		value string
	}{
		{"optimal-utilization", entry.OptimalUtilization},
		{"under-slope", entry.UnderSlope},
		{"over-slope", entry.OverSlope},
	}
	parsed := make([]*big.Int, len(fields))
	for i, field := range fields {
		if strings.TrimSpace(field.value) == "" {
			parsed[i] = new(big.Int)
			continue
		}
		v, err := fixedpoint.ParseUnits(field.value, fixedpoint.RateDecimals)
		if err != nil {
			return model.CurveParams{}, fmt.Errorf("%s: %w", field.key, err)
		}
		parsed[i] = v
	}

	if err := interest.ValidateCurve(parsed[0], parsed[1], parsed[2]); err != nil {
		return model.CurveParams{}, fmt.Errorf("curve: %w", err)
	}
	return model.CurveParams{
		OptimalUtilization: parsed[0],
		UnderSlope:         parsed[1],
		OverSlope:          parsed[2],
	}, nil
}
