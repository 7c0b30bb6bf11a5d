package rules

import (
	"time"

	"github.com/google/uuid"

	"clmmctl/internal/types"
)

// Engine holds the configured rule set and evaluates it against a position
// context on every call (spec.md §4.6).
type Engine struct {
	rules   []*Rule
	nowFunc func() time.Time
}

func NewEngine(rules ...*Rule) *Engine {
	return &Engine{rules: rules, nowFunc: time.Now}
}

// Evaluate returns the alerts for every rule whose condition fired and
// whose cooldown has elapsed, for the given position/pool. Position and
// pool are carried onto the Alert for routing, not used in evaluation.
func (e *Engine) Evaluate(position, pool string, ctx Context) []types.Alert {
	now := e.nowFunc()
	nowUnix := now.Unix()

	var alerts []types.Alert
	for _, rule := range e.rules {
		if !rule.Condition.Evaluate(ctx) {
			continue
		}
		if !rule.tryTrigger(nowUnix) {
			continue
		}
		alerts = append(alerts, types.Alert{
			ID:        uuid.NewString(),
			Level:     rule.Level,
			Type:      rule.Type,
			Position:  position,
			Pool:      pool,
			Message:   rule.render(ctx),
			Timestamp: now,
		})
	}
	return alerts
}
