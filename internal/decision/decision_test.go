package decision

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"clmmctl/internal/types"
)

func baseConfig() Config {
	return Config{
		ILRebalanceThreshold:      decimal.NewFromFloat(0.10),
		ILCloseThreshold:          decimal.NewFromFloat(0.15),
		MinRebalanceIntervalHours: 4,
		RangeWidthPct:             decimal.NewFromFloat(0.10),
		AutoCollectFees:           true,
		MinFeesToCollect:          decimal.NewFromInt(50),
	}
}

// S3 — Decision priority: Close beats CollectFees.
func TestDecisionPriorityScenarioS3(t *testing.T) {
	ctx := Context{
		Position: types.PositionState{TickLower: -100, TickUpper: 100},
		Pool:     types.PoolState{TickCurrent: 0, TickSpacing: 64},
		PnL:      &types.PnLResult{ILPct: decimal.NewFromFloat(-0.18), FeesUSD: decimal.NewFromInt(100)},
	}
	d := Decide(ctx, baseConfig())
	assert.Equal(t, types.DecisionClose, d.Kind)
}

func TestDecisionClosesIrrespectiveOfRebalanceInterval(t *testing.T) {
	cfg := baseConfig()
	ctx := Context{
		Position:            types.PositionState{TickLower: -100, TickUpper: 100},
		Pool:                types.PoolState{TickCurrent: 0, TickSpacing: 64},
		PnL:                 &types.PnLResult{ILPct: decimal.NewFromFloat(0.20)},
		HoursSinceRebalance: 0,
	}
	d := Decide(ctx, cfg)
	assert.Equal(t, types.DecisionClose, d.Kind)
}

func TestDecisionCollectsFeesWhenBelowCloseThreshold(t *testing.T) {
	cfg := baseConfig()
	ctx := Context{
		Position: types.PositionState{TickLower: -100, TickUpper: 100},
		Pool:     types.PoolState{TickCurrent: 0, TickSpacing: 64},
		PnL:      &types.PnLResult{ILPct: decimal.NewFromFloat(0.02), FeesUSD: decimal.NewFromInt(100)},
	}
	d := Decide(ctx, cfg)
	assert.Equal(t, types.DecisionCollectFees, d.Kind)
}

func TestDecisionRebalancesOutOfRangeAfterInterval(t *testing.T) {
	cfg := baseConfig()
	cfg.AutoCollectFees = false
	ctx := Context{
		Position:            types.PositionState{TickLower: -100, TickUpper: 100},
		Pool:                types.PoolState{TickCurrent: 200, TickSpacing: 64},
		PnL:                 &types.PnLResult{ILPct: decimal.NewFromFloat(0.01)},
		HoursSinceRebalance: 10,
	}
	d := Decide(ctx, cfg)
	assert.Equal(t, types.DecisionRebalance, d.Kind)
	assert.Less(t, d.NewTickLower, int32(200))
	assert.GreaterOrEqual(t, d.NewTickUpper, int32(200))
}

func TestDecisionHoldsWhenOutOfRangeButCooldownNotElapsed(t *testing.T) {
	cfg := baseConfig()
	cfg.AutoCollectFees = false
	ctx := Context{
		Position:            types.PositionState{TickLower: -100, TickUpper: 100},
		Pool:                types.PoolState{TickCurrent: 200, TickSpacing: 64},
		PnL:                 &types.PnLResult{ILPct: decimal.NewFromFloat(0.01)},
		HoursSinceRebalance: 1,
	}
	d := Decide(ctx, cfg)
	assert.Equal(t, types.DecisionHold, d.Kind)
}

func TestDecisionRebalancesOnILWhenInRange(t *testing.T) {
	cfg := baseConfig()
	cfg.AutoCollectFees = false
	ctx := Context{
		Position:            types.PositionState{TickLower: -100, TickUpper: 100},
		Pool:                types.PoolState{TickCurrent: 0, TickSpacing: 64},
		PnL:                 &types.PnLResult{ILPct: decimal.NewFromFloat(-0.12)},
		HoursSinceRebalance: 10,
	}
	d := Decide(ctx, cfg)
	assert.Equal(t, types.DecisionRebalance, d.Kind)
}

func TestDecisionHoldsWhenNothingTriggers(t *testing.T) {
	cfg := baseConfig()
	cfg.AutoCollectFees = false
	ctx := Context{
		Position:            types.PositionState{TickLower: -100, TickUpper: 100},
		Pool:                types.PoolState{TickCurrent: 0, TickSpacing: 64},
		PnL:                 &types.PnLResult{ILPct: decimal.NewFromFloat(0.01)},
		HoursSinceRebalance: 10,
	}
	d := Decide(ctx, cfg)
	assert.Equal(t, types.DecisionHold, d.Kind)
}
