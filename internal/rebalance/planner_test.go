package rebalance

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clmmctl/internal/clmmerr"
	"clmmctl/internal/fixedpoint"
	"clmmctl/internal/types"
)

func testPool() types.PoolState {
	return types.PoolState{TickCurrent: 0, TickSpacing: 64}
}

func TestPlanRejectsMisorderedTicks(t *testing.T) {
	_, err := Plan(testPool(), 64, -64, decimal.Zero, decimal.Zero, Config{MaxSlippagePct: decimal.NewFromFloat(0.5)})
	require.Error(t, err)
	assert.Equal(t, clmmerr.KindValidation, clmmerr.KindOf(err))
}

func TestPlanRejectsUnalignedTicks(t *testing.T) {
	_, err := Plan(testPool(), -100, 128, decimal.Zero, decimal.Zero, Config{MaxSlippagePct: decimal.NewFromFloat(0.5)})
	require.Error(t, err)
	assert.Equal(t, clmmerr.KindValidation, clmmerr.KindOf(err))
}

func TestPlanRejectsOutOfBounds(t *testing.T) {
	pool := testPool()
	tooLow := fixedpoint.MinTick - 64
	_, err := Plan(pool, tooLow, tooLow+64, decimal.Zero, decimal.Zero, Config{MaxSlippagePct: decimal.NewFromFloat(0.5)})
	require.Error(t, err)
	assert.Equal(t, clmmerr.KindValidation, clmmerr.KindOf(err))
}

func TestPlanBalancedDepositHasNoSlippage(t *testing.T) {
	pool := testPool()
	lower, upper, err := fixedpoint.CalculateTickRange(pool.TickCurrent, decimal.NewFromFloat(0.1), pool.TickSpacing)
	require.NoError(t, err)

	sqrtPriceX64 := fixedpoint.TickToSqrtPriceX64(pool.TickCurrent)
	budget := big.NewInt(1_000_000_000)
	_, _, liquidity, err := fixedpoint.LiquidityAndAmountsForBudget(lower, upper, pool.TickCurrent, sqrtPriceX64,
		budget, budget)
	require.NoError(t, err)
	amountA, amountB, err := fixedpoint.AmountsForLiquidity(liquidity, lower, upper, pool.TickCurrent, sqrtPriceX64)
	require.NoError(t, err)

	plan, err := Plan(pool, lower, upper,
		decimal.NewFromBigInt(amountA, 0), decimal.NewFromBigInt(amountB, 0),
		Config{MaxSlippagePct: decimal.NewFromFloat(0.01)})
	require.NoError(t, err)
	assert.True(t, plan.EstimatedSlippagePct.LessThanOrEqual(decimal.NewFromFloat(0.001)))
}

func TestPlanRejectsWhenSlippageExceedsTolerance(t *testing.T) {
	pool := testPool()
	lower, upper, err := fixedpoint.CalculateTickRange(pool.TickCurrent, decimal.NewFromFloat(0.1), pool.TickSpacing)
	require.NoError(t, err)

	// All value sitting in token A only; the new range needs both sides, so
	// everything must route through a swap.
	_, err = Plan(pool, lower, upper, decimal.NewFromInt(1_000_000), decimal.Zero,
		Config{MaxSlippagePct: decimal.NewFromFloat(0.0001)})
	require.Error(t, err)
	assert.Equal(t, clmmerr.KindSlippageExceeded, clmmerr.KindOf(err))
}

func TestPlanAllowsSlippageWithinTolerance(t *testing.T) {
	pool := testPool()
	lower, upper, err := fixedpoint.CalculateTickRange(pool.TickCurrent, decimal.NewFromFloat(0.1), pool.TickSpacing)
	require.NoError(t, err)

	plan, err := Plan(pool, lower, upper, decimal.NewFromInt(1_000_000), decimal.Zero,
		Config{MaxSlippagePct: decimal.NewFromFloat(1.0)})
	require.NoError(t, err)
	assert.True(t, plan.SwapAmountAToSell.IsPositive())
}
