package types

import "math/big"

// maxPriceSentinel bounds every price handled by the marketplace. Prices at
// or above the sentinel are rejected so that callers cannot reserve the
// maximum representable value for internal use.
var maxPriceSentinel = new(big.Int).Lsh(big.NewInt(1), 64)

// MaxPriceSentinel returns a copy of the exclusive upper price bound.
func MaxPriceSentinel() *big.Int {
	return new(big.Int).Set(maxPriceSentinel)
}

// ValidPrice reports whether p lies in the open interval (0, sentinel).
func ValidPrice(p *big.Int) bool {
	if p == nil {
		return false
	}
	return p.Sign() > 0 && p.Cmp(maxPriceSentinel) < 0
}
