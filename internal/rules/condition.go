// Package rules evaluates configured alert rules against a position's
// current state, applying per-rule cooldowns so repeated concurrent
// evaluations never produce duplicate alerts within the cooldown window
// (spec.md §4.6).
package rules

import (
	"github.com/shopspring/decimal"

	"clmmctl/internal/types"
)

// Context is the RuleContext spec.md §4.6 evaluates conditions against.
// PnL is nil when the position has no recorded entry baseline yet; any
// condition that needs it evaluates to false in that case.
type Context struct {
	InRange             bool
	WasInRange          bool
	PnL                 *types.PnLResult
	HoursSinceRebalance float64
}

// Condition is the predicate half of a Rule. Implementations must be pure
// and side-effect free so And/Or can short-circuit safely.
type Condition interface {
	Evaluate(ctx Context) bool
}

type rangeExit struct{}

func RangeExit() Condition { return rangeExit{} }
func (rangeExit) Evaluate(ctx Context) bool { return ctx.WasInRange && !ctx.InRange }

type rangeEntry struct{}

func RangeEntry() Condition { return rangeEntry{} }
func (rangeEntry) Evaluate(ctx Context) bool { return !ctx.WasInRange && ctx.InRange }

type ilExceeds struct{ threshold decimal.Decimal }

func ILExceeds(threshold decimal.Decimal) Condition { return ilExceeds{threshold} }
func (c ilExceeds) Evaluate(ctx Context) bool {
	if ctx.PnL == nil {
		return false
	}
	return ctx.PnL.ILPct.Abs().GreaterThan(c.threshold)
}

type pnlExceeds struct{ threshold decimal.Decimal }

func PnLExceeds(threshold decimal.Decimal) Condition { return pnlExceeds{threshold} }
func (c pnlExceeds) Evaluate(ctx Context) bool {
	if ctx.PnL == nil {
		return false
	}
	return ctx.PnL.NetPnLPct.GreaterThan(c.threshold)
}

type pnlBelow struct{ threshold decimal.Decimal }

func PnLBelow(threshold decimal.Decimal) Condition { return pnlBelow{threshold} }
func (c pnlBelow) Evaluate(ctx Context) bool {
	if ctx.PnL == nil {
		return false
	}
	return ctx.PnL.NetPnLPct.LessThan(c.threshold)
}

type feesExceed struct{ threshold decimal.Decimal }

func FeesExceed(threshold decimal.Decimal) Condition { return feesExceed{threshold} }
func (c feesExceed) Evaluate(ctx Context) bool {
	if ctx.PnL == nil {
		return false
	}
	return ctx.PnL.FeesUSD.GreaterThan(c.threshold)
}

type timeSinceRebalance struct{ hours float64 }

func TimeSinceRebalance(hours float64) Condition { return timeSinceRebalance{hours} }
func (c timeSinceRebalance) Evaluate(ctx Context) bool {
	return ctx.HoursSinceRebalance >= c.hours
}

type and struct{ a, b Condition }

// And short-circuits: b is never evaluated once a is false.
func And(a, b Condition) Condition { return and{a, b} }
func (c and) Evaluate(ctx Context) bool {
	return c.a.Evaluate(ctx) && c.b.Evaluate(ctx)
}

type or struct{ a, b Condition }

// Or short-circuits: b is never evaluated once a is true.
func Or(a, b Condition) Condition { return or{a, b} }
func (c or) Evaluate(ctx Context) bool {
	return c.a.Evaluate(ctx) || c.b.Evaluate(ctx)
}
