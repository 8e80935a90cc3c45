// Package router classifies instruments into asset classes and dispatches
// each to its class-specific consensus pipeline. Every class runs a
// different agent set but the same fusion contract, and all outputs are
// normalized into one result shape so downstream consumers stay
// asset-class-agnostic.
package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quantfuse/quantfuse/internal/market"
)

// occOptionPattern matches OCC-style contract symbols: root, 6-digit
// expiry, call/put flag, 8-digit strike (e.g. AAPL240621C00190000).
var occOptionPattern = regexp.MustCompile(`^[A-Z]{1,6}[0-9]{6}[CP][0-9]{8}$`)

// forexMajors is the fixed set of recognized currency pairs.
var forexMajors = map[string]struct{}{
	"EURUSD": {}, "GBPUSD": {}, "USDJPY": {}, "USDCHF": {}, "AUDUSD": {},
	"USDCAD": {}, "NZDUSD": {}, "EURGBP": {}, "EURJPY": {}, "GBPJPY": {},
}

// cryptoQuoteSuffixes are stablecoin/crypto quote legs that mark a crypto
// pair regardless of the base.
var cryptoQuoteSuffixes = []string{"USDT", "USDC", "BUSD"}

// cryptoBases is the curated ticker allow-list for USD-quoted and bare
// crypto symbols.
var cryptoBases = map[string]struct{}{
	"BTC": {}, "ETH": {}, "SOL": {}, "XRP": {}, "ADA": {},
	"DOGE": {}, "DOT": {}, "AVAX": {}, "LINK": {}, "MATIC": {},
}

// commodityRoots are recognized futures roots (gold, silver, crude, gas,
// grains, copper, platinum).
var commodityRoots = map[string]struct{}{
	"GC": {}, "SI": {}, "CL": {}, "NG": {}, "ZC": {}, "ZW": {}, "HG": {}, "PL": {},
}

// Classify determines an instrument's asset class from its symbol, or
// from the explicit override when one is supplied. An unknown override is
// a configuration error; a symbol that matches no rule is a stock.
func Classify(symbol string, override market.AssetClass) (market.AssetClass, error) {
	if override != "" {
		if !override.Valid() {
			return "", fmt.Errorf("unknown asset class override %q", override)
		}
		return override, nil
	}
	if symbol == "" {
		return "", fmt.Errorf("empty symbol")
	}

	raw := strings.ToUpper(strings.TrimSpace(symbol))

	// Futures-style suffix wins before separators are stripped.
	if strings.HasSuffix(raw, "=F") {
		return market.AssetCommodity, nil
	}

	normalized := strings.NewReplacer("/", "", "-", "", "_", "").Replace(raw)

	if occOptionPattern.MatchString(normalized) {
		return market.AssetOptions, nil
	}
	if _, ok := forexMajors[normalized]; ok {
		return market.AssetForex, nil
	}
	for _, suffix := range cryptoQuoteSuffixes {
		if strings.HasSuffix(normalized, suffix) && len(normalized) > len(suffix) {
			return market.AssetCrypto, nil
		}
	}
	if base, found := strings.CutSuffix(normalized, "USD"); found {
		if _, ok := cryptoBases[base]; ok {
			return market.AssetCrypto, nil
		}
	}
	if _, ok := cryptoBases[normalized]; ok {
		return market.AssetCrypto, nil
	}
	if _, ok := commodityRoots[normalized]; ok {
		return market.AssetCommodity, nil
	}

	return market.AssetStock, nil
}
