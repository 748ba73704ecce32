// Package amounts provides shared token amount parsing and formatting.
//
// Token amounts are stored as big.Int in the token's smallest unit and
// converted for display using the token's decimal count (18 for ETH,
// provider-reported for ERC-20 balances).
package amounts

import (
	"math/big"
	"strings"
)

// ETHDecimals is the decimal precision of ETH (wei per ETH).
const ETHDecimals = 18

// Parse converts a decimal string (e.g. "1.5") to its smallest-unit
// big.Int representation for a token with the given decimals.
// Returns (nil, false) on invalid input.
//
// Rules:
//   - Empty string returns (0, true)
//   - Negative amounts are rejected
//   - Multiple decimal points are rejected
//   - Fractional parts are padded/truncated to the token's decimals
func Parse(s string, decimals int) (*big.Int, bool) {
	if decimals < 0 {
		return nil, false
	}
	if s == "" {
		return big.NewInt(0), true
	}

	if strings.HasPrefix(s, "-") {
		return nil, false
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, false
	}
	whole := parts[0]
	frac := ""
	if len(parts) > 1 {
		frac = parts[1]
	}

	for len(frac) < decimals {
		frac += "0"
	}
	frac = frac[:decimals]

	combined := whole + frac
	result, ok := new(big.Int).SetString(combined, 10)
	return result, ok
}

// Format converts a smallest-unit big.Int to a human-readable decimal
// string, trimming trailing fractional zeros (e.g. "1.5", "1000", "0").
func Format(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	neg := amount.Sign() < 0
	s := new(big.Int).Abs(amount).String()
	for len(s) < decimals+1 {
		s = "0" + s
	}
	point := len(s) - decimals
	whole, frac := s[:point], s[point:]
	frac = strings.TrimRight(frac, "0")

	result := whole
	if frac != "" {
		result += "." + frac
	}
	if neg {
		result = "-" + result
	}
	return result
}

// Float converts a smallest-unit big.Int to a float64 display amount.
// Precision loss is acceptable here: the result is only used for
// threshold comparisons, never for accounting.
func Float(amount *big.Int, decimals int) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(f, divisor).Float64()
	return out
}
