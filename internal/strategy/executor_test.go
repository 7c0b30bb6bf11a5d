package strategy

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clmmctl/internal/decision"
	"clmmctl/internal/lifecycle"
	"clmmctl/internal/rebalance"
	"clmmctl/internal/types"
)

type fakePositionSource struct {
	positions []types.MonitoredPosition
}

func (f *fakePositionSource) GetPositions() []types.MonitoredPosition { return f.positions }

type alwaysAllowBreaker struct{ denyAll bool }

func (b *alwaysAllowBreaker) IsAllowed() bool { return !b.denyAll }

type fakeSubmitter struct {
	calls int32
	state types.TxState
}

func (f *fakeSubmitter) Submit(ctx context.Context, requestID string, builder TxBuilder) types.PendingTransaction {
	atomic.AddInt32(&f.calls, 1)
	return types.PendingTransaction{RequestID: requestID, State: f.state}
}

type fakeBuilder struct{}

func (fakeBuilder) Build(ctx context.Context, blockhash string) ([]byte, error) { return nil, nil }

type collectingAlerts struct {
	mu     sync.Mutex
	alerts []types.Alert
}

func (c *collectingAlerts) Publish(alert types.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
}

func (c *collectingAlerts) snapshot() []types.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

func outOfRangePosition(addr string) types.MonitoredPosition {
	return types.MonitoredPosition{
		Position: types.PositionState{Address: addr, TickLower: -100, TickUpper: 100},
		Pool:     types.PoolState{TickCurrent: 500, TickSpacing: 64},
		AmountA:  decimal.NewFromInt(1000),
		AmountB:  decimal.NewFromInt(1000),
		PnL:      &types.PnLResult{ILPct: decimal.Zero},
	}
}

func baseCfg() Config {
	return Config{
		EvalInterval:   time.Hour,
		MaxConcurrency: 4,
		Decision: decision.Config{
			ILRebalanceThreshold:      decimal.NewFromFloat(0.1),
			ILCloseThreshold:          decimal.NewFromFloat(0.5),
			MinRebalanceIntervalHours: 0,
			RangeWidthPct:             decimal.NewFromFloat(0.1),
		},
		Rebalance: rebalance.Config{MaxSlippagePct: decimal.NewFromInt(1)},
	}
}

func TestEvaluateOnceSubmitsRebalanceAndRecordsLifecycle(t *testing.T) {
	positions := &fakePositionSource{positions: []types.MonitoredPosition{outOfRangePosition("pos1")}}
	submitter := &fakeSubmitter{state: types.TxConfirmed}
	events := lifecycle.New()
	alertSink := &collectingAlerts{}

	exec := New(positions, &alwaysAllowBreaker{}, submitter, func(types.MonitoredPosition, types.Decision, *rebalance.Plan) TxBuilder {
		return fakeBuilder{}
	}, events, alertSink, nil, baseCfg(), nil)

	exec.evaluateOnce(context.Background())

	assert.Equal(t, int32(1), submitter.calls)
	evts := events.EventsFor("pos1")
	require.Len(t, evts, 1)
	assert.Equal(t, types.EventRebalanced, evts[0].Kind)
	assert.NotEmpty(t, alertSink.snapshot())
}

func TestEvaluateOnceSkipsSubmissionInDryRun(t *testing.T) {
	positions := &fakePositionSource{positions: []types.MonitoredPosition{outOfRangePosition("pos1")}}
	submitter := &fakeSubmitter{state: types.TxConfirmed}
	events := lifecycle.New()
	alertSink := &collectingAlerts{}

	cfg := baseCfg()
	cfg.DryRun = true
	exec := New(positions, &alwaysAllowBreaker{}, submitter, func(types.MonitoredPosition, types.Decision, *rebalance.Plan) TxBuilder {
		return fakeBuilder{}
	}, events, alertSink, nil, cfg, nil)

	exec.evaluateOnce(context.Background())

	assert.Equal(t, int32(0), submitter.calls)
	alerts := alertSink.snapshot()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Type, "_simulated")
}

func TestEvaluateOnceRecordsSystemErrorWhenCircuitOpen(t *testing.T) {
	positions := &fakePositionSource{positions: []types.MonitoredPosition{outOfRangePosition("pos1")}}
	submitter := &fakeSubmitter{state: types.TxConfirmed}
	events := lifecycle.New()
	alertSink := &collectingAlerts{}

	exec := New(positions, &alwaysAllowBreaker{denyAll: true}, submitter, func(types.MonitoredPosition, types.Decision, *rebalance.Plan) TxBuilder {
		return fakeBuilder{}
	}, events, alertSink, nil, baseCfg(), nil)

	exec.evaluateOnce(context.Background())

	assert.Equal(t, int32(0), submitter.calls)
	alerts := alertSink.snapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, "SystemError", alerts[0].Type)
}

func TestEvaluateOnceRequiresApprovalBeforeSubmitting(t *testing.T) {
	positions := &fakePositionSource{positions: []types.MonitoredPosition{outOfRangePosition("pos1")}}
	submitter := &fakeSubmitter{state: types.TxConfirmed}
	events := lifecycle.New()

	cfg := baseCfg()
	cfg.RequireConfirmation = true
	denying := denyingApprovalQueue{}
	exec := New(positions, &alwaysAllowBreaker{}, submitter, func(types.MonitoredPosition, types.Decision, *rebalance.Plan) TxBuilder {
		return fakeBuilder{}
	}, events, nil, denying, cfg, nil)

	exec.evaluateOnce(context.Background())
	assert.Equal(t, int32(0), submitter.calls)
}

type denyingApprovalQueue struct{}

func (denyingApprovalQueue) AwaitApproval(ctx context.Context, position string, d types.Decision) bool {
	return false
}

func TestEvaluateOnceSubmitsCollectFeesAndRecordsLifecycleOnlyOnConfirm(t *testing.T) {
	inRangeWithFees := types.MonitoredPosition{
		Position: types.PositionState{Address: "pos1", TickLower: -100, TickUpper: 100, FeesOwedA: decimal.NewFromInt(5), FeesOwedB: decimal.NewFromInt(5)},
		Pool:     types.PoolState{TickCurrent: 0, TickSpacing: 64},
		PnL:      &types.PnLResult{ILPct: decimal.Zero, FeesUSD: decimal.NewFromInt(100)},
	}
	positions := &fakePositionSource{positions: []types.MonitoredPosition{inRangeWithFees}}
	submitter := &fakeSubmitter{state: types.TxConfirmed}
	events := lifecycle.New()
	alertSink := &collectingAlerts{}

	cfg := baseCfg()
	cfg.Decision.AutoCollectFees = true
	cfg.Decision.MinFeesToCollect = decimal.NewFromInt(10)
	exec := New(positions, &alwaysAllowBreaker{}, submitter, func(types.MonitoredPosition, types.Decision, *rebalance.Plan) TxBuilder {
		return fakeBuilder{}
	}, events, alertSink, nil, cfg, nil)

	exec.evaluateOnce(context.Background())

	assert.Equal(t, int32(1), submitter.calls, "collect_fees must go through the same breaker/submit path as rebalance/close")
	evts := events.EventsFor("pos1")
	require.Len(t, evts, 1)
	assert.Equal(t, types.EventFeesCollected, evts[0].Kind)
}

func TestEvaluateOnceCollectFeesNotRecordedWhenSubmissionFails(t *testing.T) {
	inRangeWithFees := types.MonitoredPosition{
		Position: types.PositionState{Address: "pos1", TickLower: -100, TickUpper: 100, FeesOwedA: decimal.NewFromInt(5), FeesOwedB: decimal.NewFromInt(5)},
		Pool:     types.PoolState{TickCurrent: 0, TickSpacing: 64},
		PnL:      &types.PnLResult{ILPct: decimal.Zero, FeesUSD: decimal.NewFromInt(100)},
	}
	positions := &fakePositionSource{positions: []types.MonitoredPosition{inRangeWithFees}}
	submitter := &fakeSubmitter{state: types.TxFailed}
	events := lifecycle.New()

	cfg := baseCfg()
	cfg.Decision.AutoCollectFees = true
	cfg.Decision.MinFeesToCollect = decimal.NewFromInt(10)
	exec := New(positions, &alwaysAllowBreaker{}, submitter, func(types.MonitoredPosition, types.Decision, *rebalance.Plan) TxBuilder {
		return fakeBuilder{}
	}, events, nil, nil, cfg, nil)

	exec.evaluateOnce(context.Background())

	assert.Equal(t, int32(1), submitter.calls)
	assert.Empty(t, events.EventsFor("pos1"), "a failed submission must never falsify the lifecycle log")
}

func TestEvaluatePositionUsesLifecycleHistoryForRebalanceGate(t *testing.T) {
	pos := outOfRangePosition("pos1")
	submitter := &fakeSubmitter{state: types.TxConfirmed}
	events := lifecycle.New()
	events.RecordRebalance("pos1", time.Now().Add(-1*time.Hour), types.RebalanceData{})

	cfg := baseCfg()
	cfg.Decision.MinRebalanceIntervalHours = 4

	exec := New(&fakePositionSource{positions: []types.MonitoredPosition{pos}}, &alwaysAllowBreaker{}, submitter, func(types.MonitoredPosition, types.Decision, *rebalance.Plan) TxBuilder {
		return fakeBuilder{}
	}, events, nil, nil, cfg, nil)

	exec.evaluateOnce(context.Background())
	assert.Equal(t, int32(0), submitter.calls, "rebalanced 1h ago, interval of 4h not yet elapsed")

	events2 := lifecycle.New()
	events2.RecordRebalance("pos1", time.Now().Add(-5*time.Hour), types.RebalanceData{})
	exec2 := New(&fakePositionSource{positions: []types.MonitoredPosition{pos}}, &alwaysAllowBreaker{}, submitter, func(types.MonitoredPosition, types.Decision, *rebalance.Plan) TxBuilder {
		return fakeBuilder{}
	}, events2, nil, nil, cfg, nil)

	exec2.evaluateOnce(context.Background())
	assert.Equal(t, int32(1), submitter.calls, "rebalanced 5h ago, interval of 4h elapsed")
}

func TestEvaluateOnceHoldsWithoutSideEffects(t *testing.T) {
	inRange := types.MonitoredPosition{
		Position: types.PositionState{Address: "pos1", TickLower: -100, TickUpper: 100},
		Pool:     types.PoolState{TickCurrent: 0, TickSpacing: 64},
		PnL:      &types.PnLResult{ILPct: decimal.Zero},
	}
	positions := &fakePositionSource{positions: []types.MonitoredPosition{inRange}}
	submitter := &fakeSubmitter{state: types.TxConfirmed}
	events := lifecycle.New()

	exec := New(positions, &alwaysAllowBreaker{}, submitter, func(types.MonitoredPosition, types.Decision, *rebalance.Plan) TxBuilder {
		return fakeBuilder{}
	}, events, nil, nil, baseCfg(), nil)

	exec.evaluateOnce(context.Background())
	assert.Equal(t, int32(0), submitter.calls)
	assert.Empty(t, events.EventsFor("pos1"))
}
