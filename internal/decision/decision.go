// Package decision implements the per-position policy that turns current
// state into a Decision: Close, CollectFees, Rebalance, or Hold, in the
// fixed priority order spec.md §4.7 defines.
package decision

import (
	"github.com/shopspring/decimal"

	"clmmctl/internal/fixedpoint"
	"clmmctl/internal/types"
)

// Context is the DecisionContext spec.md §4.7 evaluates against.
type Context struct {
	Position            types.PositionState
	Pool                types.PoolState
	PnL                 *types.PnLResult
	HoursSinceRebalance float64
}

// Config is the DecisionConfig spec.md §4.7 parameterises the policy with.
type Config struct {
	ILRebalanceThreshold      decimal.Decimal
	ILCloseThreshold          decimal.Decimal
	MinRebalanceIntervalHours float64
	RangeWidthPct             decimal.Decimal
	AutoCollectFees           bool
	MinFeesToCollect          decimal.Decimal
}

// Decide never fails: every input maps to exactly one Decision, following
// the ordered policy (first match wins). The IL sign never affects which
// branch fires — only its magnitude does; the signed value is carried into
// Decision.ILPctAtDecide for observability, per spec.md §4.7's tie-break note.
func Decide(ctx Context, cfg Config) types.Decision {
	ilPct := decimal.Zero
	feesUSD := decimal.Zero
	if ctx.PnL != nil {
		ilPct = ctx.PnL.ILPct
		feesUSD = ctx.PnL.FeesUSD
	}
	absIL := ilPct.Abs()
	inRange := ctx.Position.InRange(ctx.Pool.TickCurrent)

	if absIL.GreaterThan(cfg.ILCloseThreshold) {
		return types.Decision{Kind: types.DecisionClose, Reason: "il exceeds close threshold", ILPctAtDecide: ilPct}
	}

	if cfg.AutoCollectFees && feesUSD.GreaterThan(cfg.MinFeesToCollect) {
		return types.Decision{Kind: types.DecisionCollectFees, Reason: "accrued fees exceed collection threshold", ILPctAtDecide: ilPct}
	}

	if !inRange && ctx.HoursSinceRebalance >= cfg.MinRebalanceIntervalHours {
		lower, upper, err := fixedpoint.CalculateTickRange(ctx.Pool.TickCurrent, cfg.RangeWidthPct, ctx.Pool.TickSpacing)
		if err == nil {
			return types.Decision{Kind: types.DecisionRebalance, NewTickLower: lower, NewTickUpper: upper, Reason: "position out of range", ILPctAtDecide: ilPct}
		}
	}

	if absIL.GreaterThan(cfg.ILRebalanceThreshold) && ctx.HoursSinceRebalance >= cfg.MinRebalanceIntervalHours {
		lower, upper, err := fixedpoint.CalculateTickRange(ctx.Pool.TickCurrent, cfg.RangeWidthPct, ctx.Pool.TickSpacing)
		if err == nil {
			return types.Decision{Kind: types.DecisionRebalance, NewTickLower: lower, NewTickUpper: upper, Reason: "il exceeds rebalance threshold", ILPctAtDecide: ilPct}
		}
	}

	return types.Decision{Kind: types.DecisionHold, Reason: "no condition met", ILPctAtDecide: ilPct}
}
