// Package rebalance turns a Rebalance decision into a concrete,
// validated plan: tick alignment, chain-allowed bounds, and a slippage
// check against the swap a ratio change would require (spec.md §4.8).
package rebalance

import (
	"math/big"

	"github.com/shopspring/decimal"

	"clmmctl/internal/clmmerr"
	"clmmctl/internal/fixedpoint"
	"clmmctl/internal/types"
)

// Config carries the executor's slippage tolerance.
type Config struct {
	MaxSlippagePct decimal.Decimal
}

// Plan is the validated, concrete rebalance ready for C9 to build a
// transaction from.
type Plan struct {
	TickLower, TickUpper int32
	SwapAmountAToSell    decimal.Decimal // positive means sell A for B to reach the target ratio
	SwapAmountBToSell    decimal.Decimal
	EstimatedSlippagePct decimal.Decimal
}

// Plan validates and sizes a rebalance to [newTickLower, newTickUpper),
// rejecting invalid ranges with Validation and an over-tolerance swap with
// SlippageExceeded.
func Plan(pool types.PoolState, newTickLower, newTickUpper int32, currentAmountA, currentAmountB decimal.Decimal, cfg Config) (*Plan, error) {
	if newTickLower >= newTickUpper {
		return nil, clmmerr.New(clmmerr.KindValidation, "new_tick_lower must be less than new_tick_upper", nil)
	}
	if newTickLower < fixedpoint.MinTick || newTickUpper > fixedpoint.MaxTick {
		return nil, clmmerr.New(clmmerr.KindValidation, "new tick range exceeds the chain-allowed bounds", nil)
	}
	if pool.TickSpacing <= 0 {
		return nil, clmmerr.New(clmmerr.KindValidation, "pool tick_spacing must be positive", nil)
	}
	if newTickLower%pool.TickSpacing != 0 || newTickUpper%pool.TickSpacing != 0 {
		return nil, clmmerr.New(clmmerr.KindValidation, "new tick range must be aligned to tick_spacing", nil)
	}

	sqrtPriceX64 := fixedpoint.TickToSqrtPriceX64(pool.TickCurrent)
	currentPrice := fixedpoint.SqrtPriceX64ToPrice(sqrtPriceX64)

	budgetA := decimalToBigInt(currentAmountA)
	budgetB := decimalToBigInt(currentAmountB)

	consumedA, consumedB, _, err := fixedpoint.LiquidityAndAmountsForBudget(newTickLower, newTickUpper, pool.TickCurrent, sqrtPriceX64, budgetA, budgetB)
	if err != nil {
		return nil, clmmerr.Wrap(clmmerr.KindValidation, err, "size rebalance for %d-%d", newTickLower, newTickUpper)
	}

	leftoverA := currentAmountA.Sub(decimal.NewFromBigInt(consumedA, 0))
	leftoverB := currentAmountB.Sub(decimal.NewFromBigInt(consumedB, 0))

	totalValueB := currentAmountA.Mul(currentPrice).Add(currentAmountB)

	var swapA, swapB, slippagePct decimal.Decimal
	if leftoverA.IsPositive() {
		swapA = leftoverA
		if !totalValueB.IsZero() {
			slippagePct = swapA.Mul(currentPrice).Div(totalValueB)
		}
	} else if leftoverB.IsPositive() {
		swapB = leftoverB
		if !totalValueB.IsZero() {
			slippagePct = swapB.Div(totalValueB)
		}
	}

	if slippagePct.GreaterThan(cfg.MaxSlippagePct) {
		return nil, clmmerr.New(clmmerr.KindSlippageExceeded, "planned rebalance swap exceeds max_slippage_pct", nil)
	}

	return &Plan{
		TickLower:            newTickLower,
		TickUpper:            newTickUpper,
		SwapAmountAToSell:    swapA,
		SwapAmountBToSell:    swapB,
		EstimatedSlippagePct: slippagePct,
	}, nil
}

func decimalToBigInt(d decimal.Decimal) *big.Int {
	if d.IsNegative() {
		return big.NewInt(0)
	}
	return d.BigInt()
}
