package fixedpoint

import "math/big"

// invQ64 returns the Q64.64 reciprocal of a, computed as 2^128 / a.
func invQ64(a *big.Int) *big.Int {
	if a.Sign() == 0 {
		return new(big.Int).Set(maxUint128)
	}
	num := new(big.Int).Lsh(big.NewInt(1), 128)
	return num.Div(num, a)
}

// mulShiftRight64 multiplies two Q64.64 (or plain/Q64.64 mixed) values and
// rescales down by 2^64, the standard Q64.64 multiply.
func mulShiftRight64(a, b *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Rsh(p, 64)
}

// divShiftLeft64 inverts mulShiftRight64: given amount = L * diffQ64 >> 64,
// recovers L from amount and diffQ64.
func divShiftLeft64(amount, diffQ64 *big.Int) *big.Int {
	if diffQ64.Sign() <= 0 {
		return new(big.Int)
	}
	num := new(big.Int).Lsh(amount, 64)
	return num.Div(num, diffQ64)
}

// AmountsForLiquidity returns the token A / token B amounts held by a
// position of the given liquidity over [tickLower, tickUpper), evaluated at
// currentTick/sqrtPriceX64 (spec.md §4.1's "liquidity-to-amounts" math). The
// three cases mirror a standard concentrated-liquidity position: entirely
// token A below the range, entirely token B at or above it, split within.
func AmountsForLiquidity(liquidity *big.Int, tickLower, tickUpper, currentTick int32, sqrtPriceX64 *big.Int) (amountA, amountB *big.Int, err error) {
	if tickLower >= tickUpper {
		return nil, nil, errTickOrder
	}

	sqrtPa := TickToSqrtPriceX64(tickLower)
	sqrtPb := TickToSqrtPriceX64(tickUpper)

	switch {
	case currentTick < tickLower:
		diff := new(big.Int).Sub(invQ64(sqrtPa), invQ64(sqrtPb))
		return mulShiftRight64(liquidity, diff), big.NewInt(0), nil
	case currentTick >= tickUpper:
		diff := new(big.Int).Sub(sqrtPb, sqrtPa)
		return big.NewInt(0), mulShiftRight64(liquidity, diff), nil
	default:
		diffA := new(big.Int).Sub(invQ64(sqrtPriceX64), invQ64(sqrtPb))
		diffB := new(big.Int).Sub(sqrtPriceX64, sqrtPa)
		return mulShiftRight64(liquidity, diffA), mulShiftRight64(liquidity, diffB), nil
	}
}

// LiquidityAndAmountsForBudget picks the largest liquidity that can be
// minted from [tickLower, tickUpper) without exceeding either token budget,
// then returns the amounts it actually consumes. This is the inverse of
// AmountsForLiquidity and backs C8's rebalance planning (what size position
// can this wallet afford), the counterpart of the teacher's
// ComputeAmounts/mint-sizing flow in blackhole.go's Mint.
func LiquidityAndAmountsForBudget(tickLower, tickUpper, currentTick int32, sqrtPriceX64, budgetA, budgetB *big.Int) (amountA, amountB, liquidity *big.Int, err error) {
	if tickLower >= tickUpper {
		return nil, nil, nil, errTickOrder
	}

	sqrtPa := TickToSqrtPriceX64(tickLower)
	sqrtPb := TickToSqrtPriceX64(tickUpper)

	var candidate *big.Int
	switch {
	case currentTick < tickLower:
		diff := new(big.Int).Sub(invQ64(sqrtPa), invQ64(sqrtPb))
		candidate = divShiftLeft64(budgetA, diff)
	case currentTick >= tickUpper:
		diff := new(big.Int).Sub(sqrtPb, sqrtPa)
		candidate = divShiftLeft64(budgetB, diff)
	default:
		diffA := new(big.Int).Sub(invQ64(sqrtPriceX64), invQ64(sqrtPb))
		diffB := new(big.Int).Sub(sqrtPriceX64, sqrtPa)
		la := divShiftLeft64(budgetA, diffA)
		lb := divShiftLeft64(budgetB, diffB)
		if la.Cmp(lb) <= 0 {
			candidate = la
		} else {
			candidate = lb
		}
	}

	amountA, amountB, err = AmountsForLiquidity(candidate, tickLower, tickUpper, currentTick, sqrtPriceX64)
	if err != nil {
		return nil, nil, nil, err
	}
	return amountA, amountB, candidate, nil
}
