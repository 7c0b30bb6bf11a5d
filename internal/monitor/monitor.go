package monitor

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"clmmctl/internal/bus"
	"clmmctl/internal/clmmerr"
	"clmmctl/internal/fixedpoint"
	"clmmctl/internal/metrics"
	"clmmctl/internal/types"
)

// RangeTransition is published whenever a position's in_range flag flips.
type RangeTransition struct {
	Position   string
	WasInRange bool
	InRange    bool
	Timestamp  time.Time
}

// Config configures the monitor's poll cadence and staleness contract.
type Config struct {
	PollInterval time.Duration
	StaleAfter   time.Duration
}

func DefaultConfig() Config {
	return Config{PollInterval: 30 * time.Second, StaleAfter: 2 * time.Minute}
}

// Monitor owns the monitored-position map exclusively; its update task is
// the map's only writer (spec.md §3 ownership rule).
type Monitor struct {
	cfg    Config
	reader PositionReader
	pnl    PnLCalculator
	prices PriceOracle
	logger *log.Logger

	mu        sync.RWMutex
	positions map[string]*types.MonitoredPosition

	updates     *bus.Bus[types.MonitoredPosition]
	transitions *bus.Bus[RangeTransition]
}

func New(cfg Config, reader PositionReader, calc PnLCalculator, prices PriceOracle) *Monitor {
	return &Monitor{
		cfg:         cfg,
		reader:      reader,
		pnl:         calc,
		prices:      prices,
		logger:      log.New(os.Stdout, "[monitor] ", log.LstdFlags),
		positions:   make(map[string]*types.MonitoredPosition),
		updates:     bus.New[types.MonitoredPosition](64),
		transitions: bus.New[RangeTransition](64),
	}
}

// AddPosition begins tracking a position address; its first snapshot is
// populated on the next poll tick.
func (m *Monitor) AddPosition(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[address]; !ok {
		m.positions[address] = &types.MonitoredPosition{}
	}
}

// RemovePosition stops tracking a position.
func (m *Monitor) RemovePosition(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, address)
}

// GetPosition returns an immutable snapshot of one tracked position. Stale
// is recomputed against the current clock, not stored, so it always
// reflects "how old is this as of right now" (the freshness contract from
// original_source/crates/execution/src/monitor/state_sync.rs).
func (m *Monitor) GetPosition(address string) (types.MonitoredPosition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[address]
	if !ok {
		return types.MonitoredPosition{}, false
	}
	return m.withStaleness(*p), true
}

// GetPositions returns an immutable snapshot of every tracked position.
func (m *Monitor) GetPositions() []types.MonitoredPosition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.MonitoredPosition, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, m.withStaleness(*p))
	}
	return out
}

func (m *Monitor) withStaleness(p types.MonitoredPosition) types.MonitoredPosition {
	if m.cfg.StaleAfter > 0 && !p.LastUpdated.IsZero() {
		p.Stale = time.Since(p.LastUpdated) > m.cfg.StaleAfter
	}
	return p
}

// SubscribeUpdates returns a channel of every refreshed snapshot.
func (m *Monitor) SubscribeUpdates() (int, <-chan types.MonitoredPosition) {
	return m.updates.Subscribe()
}

// SubscribeTransitions returns a channel of in_range flips.
func (m *Monitor) SubscribeTransitions() (int, <-chan RangeTransition) {
	return m.transitions.Subscribe()
}

// UnsubscribeUpdates removes a listener previously registered with
// SubscribeUpdates.
func (m *Monitor) UnsubscribeUpdates(id int) {
	m.updates.Unsubscribe(id)
}

// UnsubscribeTransitions removes a listener previously registered with
// SubscribeTransitions.
func (m *Monitor) UnsubscribeTransitions(id int) {
	m.transitions.Unsubscribe(id)
}

// Start runs the poll loop until ctx is cancelled. Per-position read
// failures are logged and isolated; they never remove a position from
// tracking or abort the tick for other positions (spec.md §4.4).
func (m *Monitor) Start(ctx context.Context) error {
	if m.cfg.PollInterval <= 0 {
		return clmmerr.New(clmmerr.KindBadRequest, "poll interval must be positive", nil)
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	m.mu.RLock()
	addrs := make([]string, 0, len(m.positions))
	for addr := range m.positions {
		addrs = append(addrs, addr)
	}
	m.mu.RUnlock()

	for _, addr := range addrs {
		if ctx.Err() != nil {
			return
		}
		m.refreshOne(ctx, addr)
	}

	m.reportPortfolioMetrics()
}

func (m *Monitor) reportPortfolioMetrics() {
	fresh, stale := 0, 0
	totalUSD := decimal.Zero
	for _, p := range m.GetPositions() {
		if p.Stale {
			stale++
		} else {
			fresh++
		}
		if p.PnL != nil {
			totalUSD = totalUSD.Add(p.PnL.CurrentValueUSD)
		}
	}
	metrics.MonitoredPositions.WithLabelValues("true").Set(float64(stale))
	metrics.MonitoredPositions.WithLabelValues("false").Set(float64(fresh))
	value, _ := totalUSD.Float64()
	metrics.PortfolioValueUSD.Set(value)
}

func (m *Monitor) refreshOne(ctx context.Context, address string) {
	m.mu.RLock()
	prev := m.positions[address]
	m.mu.RUnlock()
	if prev == nil {
		return
	}
	wasInRange := prev.InRange
	// A placeholder from AddPosition has never been read; its first snapshot
	// is a baseline, not a range transition.
	baseline := prev.LastUpdated.IsZero()

	position, err := m.reader.GetPosition(ctx, address, 0)
	if err != nil {
		m.logger.Printf("read position %s: %v", address, err)
		return
	}
	pool, err := m.reader.GetPool(ctx, position.PoolAddress)
	if err != nil {
		m.logger.Printf("read pool %s for position %s: %v", position.PoolAddress, address, err)
		return
	}

	inRange := position.InRange(pool.TickCurrent)

	sqrtPriceX64 := fixedpoint.TickToSqrtPriceX64(pool.TickCurrent)
	liquidity := position.Liquidity.BigInt()
	amountA, amountB, err := fixedpoint.AmountsForLiquidity(liquidity, position.TickLower, position.TickUpper, pool.TickCurrent, sqrtPriceX64)
	if err != nil {
		m.logger.Printf("compute amounts for %s: %v", address, err)
		return
	}

	updated := &types.MonitoredPosition{
		Position:    *position,
		Pool:        *pool,
		InRange:     inRange,
		AmountA:     decimalFromBigInt(amountA),
		AmountB:     decimalFromBigInt(amountB),
		LastUpdated: time.Now(),
	}

	if m.prices != nil && m.pnl != nil {
		updated.PnL = m.tryCalculatePnL(ctx, address, pool, updated.AmountA, updated.AmountB, position)
	}

	m.mu.Lock()
	m.positions[address] = updated
	m.mu.Unlock()

	m.updates.Publish(*updated)
	if !baseline && inRange != wasInRange {
		m.transitions.Publish(RangeTransition{Position: address, WasInRange: wasInRange, InRange: inRange, Timestamp: updated.LastUpdated})
	}
}

func (m *Monitor) tryCalculatePnL(ctx context.Context, address string, pool *types.PoolState, amountA, amountB decimal.Decimal, position *types.PositionState) *types.PnLResult {
	priceAUSD, errA := m.prices.PriceUSD(ctx, pool.TokenMintA)
	priceBUSD, errB := m.prices.PriceUSD(ctx, pool.TokenMintB)
	if errA != nil || errB != nil {
		m.logger.Printf("price lookup for %s failed: a=%v b=%v", address, errA, errB)
		return nil
	}

	currentPrice := fixedpoint.SqrtPriceX64ToPrice(fixedpoint.TickToSqrtPriceX64(pool.TickCurrent))
	result, err := m.pnl.CalculatePnL(address, currentPrice, amountA, amountB, position.FeesOwedA, position.FeesOwedB, priceAUSD, priceBUSD)
	if err != nil {
		if clmmerr.KindOf(err) != clmmerr.KindNotFound {
			m.logger.Printf("calculate pnl for %s: %v", address, err)
		}
		return nil
	}
	return result
}
