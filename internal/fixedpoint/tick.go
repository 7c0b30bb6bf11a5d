// Package fixedpoint implements the tick/price/liquidity arithmetic shared
// by every other component (C1 in the design). All monetary and price
// quantities leave this package as decimal.Decimal — never a bare float64 —
// per the numeric contract in spec.md §3: floating point is used only
// inside pure math (sqrt, log, pow) and is re-quantized into the decimal
// domain before returning.
package fixedpoint

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// TickBase is the per-tick price ratio fixed by the protocol: price = TickBase^tick.
const TickBase = 1.0001

// MinTick and MaxTick bound the representable tick range (matches the
// ±443636 range used throughout Concentrated-liquidity AMMs and exercised
// by the property tests in spec.md §8).
const (
	MinTick int32 = -443636
	MaxTick int32 = 443636
)

func init() {
	decimal.DivisionPrecision = 34
}

// TickToPrice returns 1.0001^tick as a decimal, rounded to even and
// re-materialized in the decimal domain immediately after the float64
// exponentiation (spec.md §9).
func TickToPrice(tick int32) decimal.Decimal {
	p := math.Pow(TickBase, float64(tick))
	return decimal.NewFromFloat(p)
}

// PriceToTick inverts TickToPrice. It approximates via natural log, then
// corrects by walking to the unique tick t with TickToPrice(t) <= price <
// TickToPrice(t+1), which guarantees PriceToTick(TickToPrice(t)) == t for
// every t in [MinTick, MaxTick] (spec.md §8 invariant 1).
func PriceToTick(price decimal.Decimal) int32 {
	pf, _ := price.Float64()
	if pf <= 0 {
		return MinTick
	}
	approx := math.Floor(math.Log(pf) / math.Log(TickBase))
	tick := clampTick(int64(approx))

	for tick > MinTick && TickToPrice(tick).GreaterThan(price) {
		tick--
	}
	for tick < MaxTick && TickToPrice(tick+1).LessThanOrEqual(price) {
		tick++
	}
	return tick
}

func clampTick(t int64) int32 {
	if t < int64(MinTick) {
		return MinTick
	}
	if t > int64(MaxTick) {
		return MaxTick
	}
	return int32(t)
}

// maxUint128 is the saturation ceiling for Q64.64 sqrt-price values.
var maxUint128 = func() *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), 128)
	return v.Sub(v, big.NewInt(1))
}()

// q64Shift is 2^64, the scale of the Q64.64 fixed-point representation.
var q64Shift = new(big.Float).SetMantExp(big.NewFloat(1), 64)

// TickToSqrtPriceX64 returns sqrt(1.0001^tick) * 2^64 as an unsigned Q64.64
// fixed-point value. Values that would overflow a uint128 saturate rather
// than wrap (spec.md §4.1).
func TickToSqrtPriceX64(tick int32) *big.Int {
	price := math.Pow(TickBase, float64(tick))
	sqrtPrice := math.Sqrt(price)

	bf := new(big.Float).SetPrec(200).SetFloat64(sqrtPrice)
	bf.Mul(bf, q64Shift)

	i, _ := bf.Int(nil)
	return saturateUint128(i)
}

// SqrtPriceX64ToPrice converts a Q64.64 sqrt-price back into a decimal price.
func SqrtPriceX64ToPrice(sqrtPriceX64 *big.Int) decimal.Decimal {
	bf := new(big.Float).SetPrec(200).SetInt(sqrtPriceX64)
	bf.Quo(bf, q64Shift)
	sqrtF, _ := bf.Float64()
	return decimal.NewFromFloat(sqrtF * sqrtF)
}

func saturateUint128(v *big.Int) *big.Int {
	if v.Sign() < 0 {
		return big.NewInt(0)
	}
	if v.Cmp(maxUint128) > 0 {
		return new(big.Int).Set(maxUint128)
	}
	return v
}

// floorToMultiple rounds x down (toward -inf) to the nearest multiple of
// spacing. spacing must be strictly positive.
func floorToMultiple(x, spacing int32) int32 {
	if x%spacing == 0 {
		return x
	}
	if x < 0 {
		return x - (spacing + x%spacing)
	}
	return x - x%spacing
}

// ceilToMultiple rounds x up (toward +inf) to the nearest multiple of
// spacing. spacing must be strictly positive.
func ceilToMultiple(x, spacing int32) int32 {
	if x%spacing == 0 {
		return x
	}
	return floorToMultiple(x, spacing) + spacing
}

// CalculateTickRange centers a position of the given percentage width
// (e.g. 0.10 = ±10% of the current price) on currentTick, aligned outward
// to tickSpacing so the center tick is always contained (spec.md §4.1,
// tested by S2 and property 2 in §8).
func CalculateTickRange(currentTick int32, widthPct decimal.Decimal, tickSpacing int32) (lower, upper int32, err error) {
	if tickSpacing <= 0 {
		return 0, 0, errTickSpacing
	}
	if widthPct.LessThanOrEqual(decimal.Zero) {
		return 0, 0, errWidthPct
	}

	currentPrice := TickToPrice(currentTick)
	one := decimal.NewFromInt(1)
	lowerPriceTarget := currentPrice.Mul(one.Sub(widthPct))
	upperPriceTarget := currentPrice.Mul(one.Add(widthPct))

	var lowerTick int32
	if lowerPriceTarget.LessThanOrEqual(decimal.Zero) {
		lowerTick = MinTick
	} else {
		lowerTick = PriceToTick(lowerPriceTarget)
	}
	upperTick := PriceToTick(upperPriceTarget)

	lower = floorToMultiple(lowerTick, tickSpacing)
	if lower >= currentTick {
		lower -= tickSpacing
	}
	upper = ceilToMultiple(upperTick, tickSpacing)
	if upper < currentTick {
		upper += tickSpacing
	}
	if upper-lower < tickSpacing {
		upper = lower + tickSpacing
	}
	return lower, upper, nil
}
