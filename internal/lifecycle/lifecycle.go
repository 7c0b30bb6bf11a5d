// Package lifecycle is the append-only per-position event log (C11,
// spec.md §4.11): record_open/record_rebalance/record_fees_collected/
// record_close, with events_for and aggregate_stats reads.
package lifecycle

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"clmmctl/internal/types"
)

type positionLog struct {
	mu     sync.Mutex
	events []types.LifecycleEvent
	open   bool
	netPnLPct decimal.Decimal
	netPnLUSD decimal.Decimal
	hasPnL bool
}

// Tracker owns one append-only log per position. Writes within a position
// are serialised by that position's own mutex, so any reader sees a total
// order for that position (spec.md §4.11); across positions no ordering is
// implied, matching §5.
type Tracker struct {
	mu   sync.RWMutex
	logs map[string]*positionLog
}

func New() *Tracker {
	return &Tracker{logs: make(map[string]*positionLog)}
}

func (t *Tracker) logFor(position string) *positionLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.logs[position]
	if !ok {
		l = &positionLog{}
		t.logs[position] = l
	}
	return l
}

// RecordOpen appends an EventOpened entry, marking the position open for
// aggregate_stats' open/closed split.
func (t *Tracker) RecordOpen(position string, at time.Time) {
	l := t.logFor(position)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, types.LifecycleEvent{Position: position, Kind: types.EventOpened, Timestamp: at})
	l.open = true
}

// RecordRebalance appends an EventRebalanced entry carrying the detail C8/C9
// produced for this action.
func (t *Tracker) RecordRebalance(position string, at time.Time, data types.RebalanceData) {
	l := t.logFor(position)
	l.mu.Lock()
	defer l.mu.Unlock()
	d := data
	l.events = append(l.events, types.LifecycleEvent{Position: position, Kind: types.EventRebalanced, Timestamp: at, Rebalance: &d})
}

// RecordFeesCollected appends an EventFeesCollected entry.
func (t *Tracker) RecordFeesCollected(position string, at time.Time, feesA, feesB decimal.Decimal) {
	l := t.logFor(position)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, types.LifecycleEvent{Position: position, Kind: types.EventFeesCollected, Timestamp: at, FeesA: feesA, FeesB: feesB})
}

// RecordClose appends an EventClosed entry and records the position's
// realised net PnL for aggregate_stats' total_pnl_usd/avg_pnl_pct.
func (t *Tracker) RecordClose(position string, at time.Time, netPnLUSD, netPnLPct decimal.Decimal) {
	l := t.logFor(position)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, types.LifecycleEvent{Position: position, Kind: types.EventClosed, Timestamp: at})
	l.open = false
	l.netPnLUSD = netPnLUSD
	l.netPnLPct = netPnLPct
	l.hasPnL = true
}

// EventsFor returns the full, time-ordered event log for one position.
func (t *Tracker) EventsFor(position string) []types.LifecycleEvent {
	t.mu.RLock()
	l, ok := t.logs[position]
	t.mu.RUnlock()
	if !ok {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.LifecycleEvent, len(l.events))
	copy(out, l.events)
	return out
}

// HoursSinceLastAction returns the elapsed hours since the most recent
// EventRebalanced for this position, falling back to its EventOpened if it
// has never been rebalanced. It returns 0 and false if the position has no
// recorded events yet, leaving the caller to decide a default.
func (t *Tracker) HoursSinceLastAction(position string, now time.Time) (float64, bool) {
	events := t.EventsFor(position)
	var last time.Time
	for _, ev := range events {
		if ev.Kind != types.EventRebalanced && ev.Kind != types.EventOpened {
			continue
		}
		if ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
	}
	if last.IsZero() {
		return 0, false
	}
	return now.Sub(last).Hours(), true
}

// Stats is the aggregate_stats() view spec.md §4.11 names.
type Stats struct {
	TotalPositions      int
	OpenPositions       int
	ClosedPositions     int
	TotalRebalances     int
	TotalFeesUSD        decimal.Decimal
	TotalPnLUSD         decimal.Decimal
	AvgPnLPct           decimal.Decimal
	TotalTxCostsLamports uint64
}

// AggregateStats scans every tracked position's log and folds it into one
// portfolio-wide summary.
func (t *Tracker) AggregateStats(valueUSDPerFeeToken func(position string, feesA, feesB decimal.Decimal) decimal.Decimal) Stats {
	t.mu.RLock()
	positions := make([]*positionLog, 0, len(t.logs))
	names := make([]string, 0, len(t.logs))
	for name, l := range t.logs {
		positions = append(positions, l)
		names = append(names, name)
	}
	t.mu.RUnlock()

	var stats Stats
	var pnlSum decimal.Decimal
	var pnlCount int
	for i, l := range positions {
		l.mu.Lock()
		stats.TotalPositions++
		if l.open {
			stats.OpenPositions++
		} else if len(l.events) > 0 {
			stats.ClosedPositions++
		}
		for _, ev := range l.events {
			switch ev.Kind {
			case types.EventRebalanced:
				stats.TotalRebalances++
				if ev.Rebalance != nil {
					stats.TotalTxCostsLamports += ev.Rebalance.TxCostLamports
				}
			case types.EventFeesCollected:
				if valueUSDPerFeeToken != nil {
					stats.TotalFeesUSD = stats.TotalFeesUSD.Add(valueUSDPerFeeToken(names[i], ev.FeesA, ev.FeesB))
				}
			}
		}
		if l.hasPnL {
			pnlSum = pnlSum.Add(l.netPnLPct)
			pnlCount++
			stats.TotalPnLUSD = stats.TotalPnLUSD.Add(l.netPnLUSD)
		}
		l.mu.Unlock()
	}
	if pnlCount > 0 {
		stats.AvgPnLPct = pnlSum.Div(decimal.NewFromInt(int64(pnlCount)))
	}
	return stats
}
