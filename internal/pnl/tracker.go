// Package pnl computes per-position profit-and-loss: entry baseline,
// current valuation, impermanent loss, fee accrual, and APY (spec.md
// §4.5). It is a pure function of its inputs plus the entry baseline it
// records — no external reads happen inside this package.
package pnl

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"clmmctl/internal/clmmerr"
	"clmmctl/internal/fixedpoint"
	"clmmctl/internal/types"
)

// entry extends types.PositionEntry with the token decimals needed to
// scale raw on-chain amounts into human units, fixed at entry time since
// a mint's decimals never change.
type entry struct {
	types.PositionEntry
	DecimalsA int32
	DecimalsB int32
}

// Tracker records one PositionEntry baseline per position and derives
// PnLResult from it on every CalculatePnL call. Many goroutines may record
// and calculate concurrently; a single RWMutex guards the baseline map
// since baselines are written once and read often.
type Tracker struct {
	mu       sync.RWMutex
	entries  map[string]entry
	nowFn    func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]entry), nowFn: time.Now}
}

// RecordEntry stores the immutable PnL baseline for a position, taken at
// open.
func (t *Tracker) RecordEntry(address string, entryPrice, entryValueUSD, initialAmountA, initialAmountB decimal.Decimal, tickLower, tickUpper, decimalsA, decimalsB int32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[address] = entry{
		PositionEntry: types.PositionEntry{
			Address:        address,
			EntryPrice:     entryPrice,
			EntryValueUSD:  entryValueUSD,
			EntryTimestamp: t.nowFn(),
			InitialAmountA: initialAmountA,
			InitialAmountB: initialAmountB,
			TickLower:      tickLower,
			TickUpper:      tickUpper,
		},
		DecimalsA: decimalsA,
		DecimalsB: decimalsB,
	}
}

func scaledValue(amount, priceUSD decimal.Decimal, decimals int32) decimal.Decimal {
	scale := decimal.NewFromInt(10).Pow(decimal.NewFromInt32(decimals))
	return amount.Mul(priceUSD).Div(scale)
}

// CalculatePnL derives the full PnLResult for a tracked position. Returns
// clmmerr.KindNotFound ("NotTracked") if no entry was ever recorded.
func (t *Tracker) CalculatePnL(address string, currentPrice, currentAmountA, currentAmountB, feesA, feesB, priceAUSD, priceBUSD decimal.Decimal) (*types.PnLResult, error) {
	t.mu.RLock()
	e, ok := t.entries[address]
	t.mu.RUnlock()
	if !ok {
		return nil, clmmerr.New(clmmerr.KindNotFound, "no entry recorded for position "+address, nil)
	}

	currentValueUSD := scaledValue(currentAmountA, priceAUSD, e.DecimalsA).Add(scaledValue(currentAmountB, priceBUSD, e.DecimalsB))
	hodlValueUSD := scaledValue(e.InitialAmountA, priceAUSD, e.DecimalsA).Add(scaledValue(e.InitialAmountB, priceBUSD, e.DecimalsB))
	feesUSD := scaledValue(feesA, priceAUSD, e.DecimalsA).Add(scaledValue(feesB, priceBUSD, e.DecimalsB))

	priceLower := fixedpoint.TickToPrice(e.TickLower)
	priceUpper := fixedpoint.TickToPrice(e.TickUpper)
	ilPct := fixedpoint.ImpermanentLossConcentrated(e.EntryPrice, currentPrice, priceLower, priceUpper)
	ilUSD := e.EntryValueUSD.Mul(ilPct.Abs())

	netPnLUSD := currentValueUSD.Sub(e.EntryValueUSD).Add(feesUSD)
	var netPnLPct decimal.Decimal
	if !e.EntryValueUSD.IsZero() {
		netPnLPct = netPnLUSD.Div(e.EntryValueUSD)
	}
	vsHodlUSD := currentValueUSD.Sub(hodlValueUSD)

	daysSinceEntry := t.nowFn().Sub(e.EntryTimestamp).Hours() / 24
	divisor := decimal.NewFromFloat(daysSinceEntry)
	if divisor.LessThan(decimal.NewFromInt(1)) {
		divisor = decimal.NewFromInt(1)
	}
	apy := netPnLPct.Mul(decimal.NewFromInt(365)).Div(divisor)

	var feeAPR decimal.Decimal
	if !currentValueUSD.IsZero() {
		feeAPR = feesUSD.Div(currentValueUSD).Mul(decimal.NewFromInt(365)).Div(divisor)
	}

	return &types.PnLResult{
		CurrentValueUSD: currentValueUSD,
		HodlValueUSD:    hodlValueUSD,
		ILUSD:           ilUSD,
		ILPct:           ilPct,
		FeesUSD:         feesUSD,
		NetPnLUSD:       netPnLUSD,
		NetPnLPct:       netPnLPct,
		VsHodlUSD:       vsHodlUSD,
		APY:             apy,
		FeeAPR:          feeAPR,
	}, nil
}

// Entry returns the recorded baseline for a position, if any.
func (t *Tracker) Entry(address string) (types.PositionEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[address]
	return e.PositionEntry, ok
}
