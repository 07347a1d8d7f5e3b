package deal

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DiscountPercent computes the floored percentage saved off the
// original price. A zero original yields 0 rather than dividing.
func DiscountPercent(sale, original decimal.Decimal) int {
	if original.IsZero() {
		return 0
	}
	return int(original.Sub(sale).Div(original).Mul(hundred).Floor().IntPart())
}

// MeetsThreshold reports the discount and whether it clears min.
// Discounts outside 0..100 never qualify; they come from listings with
// broken price data and are dropped regardless of min.
func MeetsThreshold(sale, original decimal.Decimal, min int) (int, bool) {
	pct := DiscountPercent(sale, original)
	if pct < 0 || pct > 100 {
		return pct, false
	}
	return pct, pct >= min
}
