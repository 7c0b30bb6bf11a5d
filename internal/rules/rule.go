package rules

import (
	"strings"
	"sync/atomic"

	"clmmctl/internal/types"
)

// Rule pairs a Condition with alert metadata and a cooldown. lastTriggerUnix
// is updated with a compare-and-swap so concurrent evaluations of the same
// rule never both fire within the cooldown window; it is nil until the rule
// first fires, so a trigger at Unix time 0 still starts a cooldown.
type Rule struct {
	Name            string
	Condition       Condition
	CooldownSecs    int64
	Level           types.AlertLevel
	Type            string
	MessageTemplate string

	lastTriggerUnix atomic.Pointer[int64]
}

// tryTrigger atomically claims the right to fire at nowUnix, returning
// false if the rule is still within its cooldown from a previous trigger.
func (r *Rule) tryTrigger(nowUnix int64) bool {
	for {
		last := r.lastTriggerUnix.Load()
		if last != nil && nowUnix-*last < r.CooldownSecs {
			return false
		}
		if r.lastTriggerUnix.CompareAndSwap(last, &nowUnix) {
			return true
		}
	}
}

func (r *Rule) render(ctx Context) string {
	replacements := map[string]string{
		"{in_range}": boolString(ctx.InRange),
	}
	if ctx.PnL != nil {
		replacements["{il_pct}"] = ctx.PnL.ILPct.String()
		replacements["{pnl_pct}"] = ctx.PnL.NetPnLPct.String()
		replacements["{pnl_usd}"] = ctx.PnL.NetPnLUSD.String()
		replacements["{fees_usd}"] = ctx.PnL.FeesUSD.String()
	}

	pairs := make([]string, 0, len(replacements)*2)
	for k, v := range replacements {
		pairs = append(pairs, k, v)
	}
	return strings.NewReplacer(pairs...).Replace(r.MessageTemplate)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
