package rebalance

import (
	"math/big"

	"github.com/shopspring/decimal"

	"clmmctl/internal/clmmerr"
	"clmmctl/internal/fixedpoint"
)

// referenceBudget is the notional per-side budget used to compare candidate
// widths' capital efficiency; only the ratio between candidates matters, so
// its absolute scale is arbitrary.
var referenceBudget = big.NewInt(1_000_000_000)

var candidateWidths = []float64{0.01, 0.02, 0.03, 0.05, 0.08, 0.12, 0.2, 0.3, 0.5, 0.75, 1.0}

// SuggestRangeForTargetUtilization picks the tick range, among a scan of
// candidate widths, whose capital efficiency best matches targetUtilization
// (0, 1]: 1.0 favors the narrowest scanned width (maximal liquidity per unit
// of deposited capital, least time in range), values near 0 favor the
// widest. Efficiency is measured the same way C1 sizes any rebalance: by
// running the three-case liquidity formula over a fixed notional budget and
// comparing the resulting liquidity across candidates, the Go counterpart of
// original_source/crates/optimization/src/range_optimizer.rs's
// width-vs-utilization search.
func SuggestRangeForTargetUtilization(currentTick, tickSpacing int32, targetUtilization decimal.Decimal) (lower, upper int32, err error) {
	if tickSpacing <= 0 {
		return 0, 0, clmmerr.New(clmmerr.KindValidation, "tick_spacing must be positive", nil)
	}
	if targetUtilization.LessThanOrEqual(decimal.Zero) || targetUtilization.GreaterThan(decimal.NewFromInt(1)) {
		return 0, 0, clmmerr.New(clmmerr.KindValidation, "target_utilization must be in (0, 1]", nil)
	}

	sqrtPriceX64 := fixedpoint.TickToSqrtPriceX64(currentTick)

	type candidate struct {
		lower, upper int32
		liquidity    *big.Int
	}
	candidates := make([]candidate, 0, len(candidateWidths))
	for _, w := range candidateWidths {
		l, u, cErr := fixedpoint.CalculateTickRange(currentTick, decimal.NewFromFloat(w), tickSpacing)
		if cErr != nil {
			continue
		}
		_, _, liq, lErr := fixedpoint.LiquidityAndAmountsForBudget(l, u, currentTick, sqrtPriceX64, referenceBudget, referenceBudget)
		if lErr != nil {
			continue
		}
		candidates = append(candidates, candidate{lower: l, upper: u, liquidity: liq})
	}
	if len(candidates) == 0 {
		return 0, 0, clmmerr.New(clmmerr.KindInternal, "no viable candidate width for this tick/spacing", nil)
	}

	minLiq, maxLiq := candidates[0].liquidity, candidates[0].liquidity
	for _, c := range candidates {
		if c.liquidity.Cmp(minLiq) < 0 {
			minLiq = c.liquidity
		}
		if c.liquidity.Cmp(maxLiq) > 0 {
			maxLiq = c.liquidity
		}
	}

	spread := new(big.Int).Sub(maxLiq, minLiq)
	if spread.Sign() == 0 {
		best := candidates[0]
		return best.lower, best.upper, nil
	}
	spreadDec := decimal.NewFromBigInt(spread, 0)

	var best candidate
	bestDelta := decimal.NewFromInt(2) // any real delta is in [0, 1]
	for _, c := range candidates {
		normalized := decimal.NewFromBigInt(new(big.Int).Sub(c.liquidity, minLiq), 0).Div(spreadDec)
		delta := normalized.Sub(targetUtilization).Abs()
		if delta.LessThan(bestDelta) {
			bestDelta = delta
			best = c
		}
	}
	return best.lower, best.upper, nil
}
