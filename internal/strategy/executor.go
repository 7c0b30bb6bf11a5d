// Package strategy implements the evaluation loop (C12, spec.md §4.12):
// snapshot monitored positions, decide, plan, execute, and record —
// fanned out over a bounded cooperative worker pool rather than one
// goroutine per position.
package strategy

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"clmmctl/internal/clmmerr"
	"clmmctl/internal/decision"
	"clmmctl/internal/lifecycle"
	"clmmctl/internal/metrics"
	"clmmctl/internal/rebalance"
	"clmmctl/internal/types"
)

var errCircuitOpen = clmmerr.New(clmmerr.KindCircuitOpen, "circuit breaker is open", nil)

func decZero() decimal.Decimal { return decimal.Zero }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// PositionSource narrows the monitor to the one read C12 needs.
type PositionSource interface {
	GetPositions() []types.MonitoredPosition
}

// Breaker narrows the circuit breaker to what the executor needs before a
// transaction attempt; outcomes reach the breaker through C9.
type Breaker interface {
	IsAllowed() bool
}

// TxSubmitter narrows C9 to the one call the executor makes per rebalance.
type TxSubmitter interface {
	Submit(ctx context.Context, requestID string, builder TxBuilder) types.PendingTransaction
}

// TxBuilder is re-exported so callers wiring the executor don't need to
// import txlifecycle just for this one interface.
type TxBuilder interface {
	Build(ctx context.Context, blockhash string) ([]byte, error)
}

// ApprovalQueue is where require_confirmation decisions wait for an
// external ack before C9 is invoked.
type ApprovalQueue interface {
	AwaitApproval(ctx context.Context, position string, d types.Decision) bool
}

// BuilderFactory constructs the instruction builder for a given decision;
// left as a collaborator because instruction encoding is chain-specific.
type BuilderFactory func(position types.MonitoredPosition, d types.Decision, plan *rebalance.Plan) TxBuilder

// Config parameterises the evaluation loop and per-position behaviour.
type Config struct {
	EvalInterval       time.Duration
	MaxConcurrency     int
	DryRun             bool
	RequireConfirmation bool
	Decision           decision.Config
	Rebalance          rebalance.Config
}

// DefaultConfig mirrors spec.md §9's defaults.
func DefaultConfig() Config {
	return Config{
		EvalInterval:   30 * time.Second,
		MaxConcurrency: 8,
		Decision: decision.Config{
			ILRebalanceThreshold:      decZero(),
			ILCloseThreshold:          decZero(),
			MinRebalanceIntervalHours: 4,
		},
	}
}

// Executor owns the evaluation loop; it never owns position or
// transaction state directly, only orchestrates C4/C7/C8/C9/C10/C11.
type Executor struct {
	positions PositionSource
	breaker   Breaker
	sender    TxSubmitter
	builders  BuilderFactory
	events    *lifecycle.Tracker
	alerts    AlertPublisher
	approvals ApprovalQueue
	cfg       Config
	logger    *log.Logger
	nowFn     func() time.Time
}

// AlertPublisher narrows the alert bus to the one publish C12 needs for
// SystemError alerts.
type AlertPublisher interface {
	Publish(alert types.Alert)
}

func New(positions PositionSource, breaker Breaker, sender TxSubmitter, builders BuilderFactory, events *lifecycle.Tracker, alerts AlertPublisher, approvals ApprovalQueue, cfg Config, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{
		positions: positions,
		breaker:   breaker,
		sender:    sender,
		builders:  builders,
		events:    events,
		alerts:    alerts,
		approvals: approvals,
		cfg:       cfg,
		logger:    logger,
		nowFn:     time.Now,
	}
}

// Run ticks every EvalInterval until ctx is cancelled. New work stops
// immediately on cancellation; in-flight C9 submissions are allowed to
// reach their terminal state (spec.md §5).
func (e *Executor) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.EvalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.evaluateOnce(ctx)
		}
	}
}

func (e *Executor) evaluateOnce(ctx context.Context) {
	snapshot := e.positions.GetPositions()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrency)

	for _, mp := range snapshot {
		mp := mp
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			e.evaluatePosition(gctx, mp)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Executor) evaluatePosition(ctx context.Context, mp types.MonitoredPosition) {
	hoursSinceRebalance := e.cfg.Decision.MinRebalanceIntervalHours
	if e.events != nil {
		if hours, ok := e.events.HoursSinceLastAction(mp.Position.Address, e.nowFn()); ok {
			hoursSinceRebalance = hours
		}
	}

	d := decision.Decide(decision.Context{
		Position:            mp.Position,
		Pool:                mp.Pool,
		PnL:                 mp.PnL,
		HoursSinceRebalance: hoursSinceRebalance,
	}, e.cfg.Decision)

	if d.Kind == types.DecisionHold {
		return
	}

	var plan *rebalance.Plan
	if d.Kind == types.DecisionRebalance {
		planned, err := rebalance.Plan(mp.Pool, d.NewTickLower, d.NewTickUpper, mp.AmountA, mp.AmountB, e.cfg.Rebalance)
		if err != nil {
			e.systemError(mp.Position.Address, err)
			return
		}
		plan = planned
	}

	if e.cfg.DryRun {
		e.logger.Printf("dry_run: position=%s decision=%s simulated", mp.Position.Address, d.Kind)
		if e.alerts != nil {
			e.alerts.Publish(types.Alert{Level: types.AlertInfo, Type: d.Kind.String() + "_simulated", Position: mp.Position.Address, Message: d.Reason, Timestamp: e.nowFn()})
		}
		return
	}

	if e.cfg.RequireConfirmation && e.approvals != nil {
		if !e.approvals.AwaitApproval(ctx, mp.Position.Address, d) {
			return
		}
	}

	if !e.breaker.IsAllowed() {
		e.systemError(mp.Position.Address, errCircuitOpen)
		return
	}

	builder := e.builders(mp, d, plan)
	// Detached from cancellation so an in-flight submission runs to its
	// terminal state; C9's confirmation timeout still bounds it.
	tx := e.sender.Submit(context.WithoutCancel(ctx), mp.Position.Address, builder)
	if tx.State != types.TxConfirmed {
		metrics.RecordRebalanceOutcome("failed")
		e.systemError(mp.Position.Address, tx.Err)
		return
	}
	metrics.RecordRebalanceOutcome("confirmed")

	switch d.Kind {
	case types.DecisionRebalance:
		e.events.RecordRebalance(mp.Position.Address, e.nowFn(), types.RebalanceData{
			OldTickLower: mp.Position.TickLower, OldTickUpper: mp.Position.TickUpper,
			NewTickLower: d.NewTickLower, NewTickUpper: d.NewTickUpper,
			Reason: d.Reason,
		})
	case types.DecisionCollectFees:
		e.events.RecordFeesCollected(mp.Position.Address, e.nowFn(), mp.Position.FeesOwedA, mp.Position.FeesOwedB)
	case types.DecisionClose:
		netPnLUSD, netPnLPct := decZero(), decZero()
		if mp.PnL != nil {
			netPnLUSD, netPnLPct = mp.PnL.NetPnLUSD, mp.PnL.NetPnLPct
		}
		e.events.RecordClose(mp.Position.Address, e.nowFn(), netPnLUSD, netPnLPct)
	}

	if e.alerts != nil {
		e.alerts.Publish(types.Alert{Level: types.AlertInfo, Type: d.Kind.String(), Position: mp.Position.Address, Message: d.Reason, Timestamp: e.nowFn()})
	}
}

func (e *Executor) systemError(position string, err error) {
	e.logger.Printf("system error for position %s: %v", position, err)
	if e.alerts != nil {
		e.alerts.Publish(types.Alert{Level: types.AlertCritical, Type: "SystemError", Position: position, Message: errString(err), Timestamp: e.nowFn()})
	}
}
