package fixedpoint

import (
	"math"

	"github.com/shopspring/decimal"
)

func sqrtDecimal(d decimal.Decimal) decimal.Decimal {
	f, _ := d.Float64()
	return decimal.NewFromFloat(math.Sqrt(f))
}

func clampDecimal(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// ImpermanentLossConcentrated returns the signed percentage difference
// between holding a concentrated-liquidity position opened at entryPrice
// over [lower, upper] versus simply holding the entry-time token amounts,
// evaluated at currentPrice (spec.md §4.1). When either price sits outside
// the range the comparison is pinned to the boundary price the position
// has saturated against, matching the way AmountsForLiquidity degenerates
// to a single-asset position outside its range.
func ImpermanentLossConcentrated(entryPrice, currentPrice, lower, upper decimal.Decimal) decimal.Decimal {
	if entryPrice.Equal(currentPrice) {
		return decimal.Zero
	}

	p0 := clampDecimal(entryPrice, lower, upper)
	pc := clampDecimal(currentPrice, lower, upper)

	sqrtPa := sqrtDecimal(lower)
	sqrtPb := sqrtDecimal(upper)
	sqrtP0 := sqrtDecimal(p0)
	sqrtPc := sqrtDecimal(pc)

	one := decimal.NewFromInt(1)
	amountA0 := one.Div(sqrtP0).Sub(one.Div(sqrtPb))
	amountB0 := sqrtP0.Sub(sqrtPa)

	amountAc := one.Div(sqrtPc).Sub(one.Div(sqrtPb))
	amountBc := sqrtPc.Sub(sqrtPa)

	vHold := amountA0.Mul(pc).Add(amountB0)
	vLp := amountAc.Mul(pc).Add(amountBc)

	if vHold.IsZero() {
		return decimal.Zero
	}
	return vLp.Sub(vHold).Div(vHold)
}
