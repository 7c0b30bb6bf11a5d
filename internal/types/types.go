// Package types holds the shared data-model entities that flow between
// components: pool/position snapshots, PnL results, decisions, pending
// transactions, alerts, lifecycle events, and the health/circuit records
// owned by the chain facade and circuit breaker. Keeping these in one leaf
// package lets every component import the types without import cycles,
// mirroring how blackholedex.go keeps its AMMState/StakingResult/TransactionRecord
// value types alongside (not inside) the components that produce them.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolState is a read-only snapshot produced by C3, never mutated once
// created; a fresher read simply supersedes it.
type PoolState struct {
	Address         string
	TokenMintA      string
	TokenMintB      string
	TickCurrent     int32
	TickSpacing     int32
	SqrtPriceX64    decimal.Decimal // stored as a decimal for convenience; Q64.64 math happens in fixedpoint
	Liquidity       decimal.Decimal
	FeeRateBps      int32
	FeeGrowthGlobalA decimal.Decimal
	FeeGrowthGlobalB decimal.Decimal
}

// PositionState is mutated by liquidity add/remove/collect and terminal on
// close; the invariant TickLower%TickSpacing==0 && TickUpper%TickSpacing==0
// && TickLower<TickUpper is enforced by the readers in internal/onchain.
type PositionState struct {
	Address           string
	PoolAddress       string
	Owner             string
	TickLower         int32
	TickUpper         int32
	Liquidity         decimal.Decimal
	FeeGrowthCheckA   decimal.Decimal
	FeeGrowthCheckB   decimal.Decimal
	FeesOwedA         decimal.Decimal
	FeesOwedB         decimal.Decimal
}

// InRange reports tick_lower <= tickCurrent < tick_upper (half-open upper
// bound, spec.md S1).
func (p PositionState) InRange(tickCurrent int32) bool {
	return p.TickLower <= tickCurrent && tickCurrent < p.TickUpper
}

// MonitoredPosition is the record C4 owns exclusively; many readers take
// immutable snapshots of it but only the monitor's update task replaces it.
type MonitoredPosition struct {
	Position    PositionState
	Pool        PoolState
	InRange     bool
	AmountA     decimal.Decimal
	AmountB     decimal.Decimal
	PnL         *PnLResult
	LastUpdated time.Time
	Stale       bool
}

// PositionEntry is the immutable PnL baseline recorded at open.
type PositionEntry struct {
	Address        string
	EntryPrice     decimal.Decimal
	EntryValueUSD  decimal.Decimal
	EntryTimestamp time.Time
	InitialAmountA decimal.Decimal
	InitialAmountB decimal.Decimal
	TickLower      int32
	TickUpper      int32
}

// PnLResult is purely derived — no component owns it, every field is
// recomputed from the entry baseline and the current state.
type PnLResult struct {
	CurrentValueUSD decimal.Decimal
	HodlValueUSD    decimal.Decimal
	ILUSD           decimal.Decimal
	ILPct           decimal.Decimal
	FeesUSD         decimal.Decimal
	NetPnLUSD       decimal.Decimal
	NetPnLPct       decimal.Decimal
	VsHodlUSD       decimal.Decimal
	APY             decimal.Decimal
	FeeAPR          decimal.Decimal
}

// DecisionKind tags the variant carried by Decision.
type DecisionKind int

const (
	DecisionHold DecisionKind = iota
	DecisionRebalance
	DecisionClose
	DecisionCollectFees
	DecisionIncreaseLiquidity
	DecisionDecreaseLiquidity
)

func (d DecisionKind) String() string {
	switch d {
	case DecisionHold:
		return "Hold"
	case DecisionRebalance:
		return "Rebalance"
	case DecisionClose:
		return "Close"
	case DecisionCollectFees:
		return "CollectFees"
	case DecisionIncreaseLiquidity:
		return "IncreaseLiquidity"
	case DecisionDecreaseLiquidity:
		return "DecreaseLiquidity"
	default:
		return "Unknown"
	}
}

// Decision is immutable once produced by C7.
type Decision struct {
	Kind          DecisionKind
	NewTickLower  int32
	NewTickUpper  int32
	Amount        decimal.Decimal
	Reason        string
	ILPctAtDecide decimal.Decimal
}

// TxState tags PendingTransaction's state machine (C9, spec.md §4.9).
type TxState int

const (
	TxBuilt TxState = iota
	TxSimulated
	TxSent
	TxConfirmed
	TxFailed
)

func (s TxState) String() string {
	switch s {
	case TxBuilt:
		return "Built"
	case TxSimulated:
		return "Simulated"
	case TxSent:
		return "Sent"
	case TxConfirmed:
		return "Confirmed"
	case TxFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// PendingTransaction is owned by C9 for its lifetime; C9's Tracker keeps
// the latest snapshot of every submission and never evicts entries.
type PendingTransaction struct {
	RequestID   string
	State       TxState
	Signature   string
	Slot        uint64
	SubmittedAt time.Time
	ConfirmedAt time.Time
	Err         error
}

// AlertLevel tags an Alert's severity.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertCritical
)

func (l AlertLevel) String() string {
	switch l {
	case AlertInfo:
		return "Info"
	case AlertWarning:
		return "Warning"
	case AlertCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Alert is an append-only stream element emitted by C6 (and, for
// SystemError alerts, C12).
type Alert struct {
	ID           string
	Level        AlertLevel
	Type         string
	Position     string
	Pool         string
	Message      string
	Timestamp    time.Time
	Acknowledged bool
}

// LifecycleEventKind tags the append-only per-position log entries in C11.
type LifecycleEventKind int

const (
	EventOpened LifecycleEventKind = iota
	EventRebalanced
	EventFeesCollected
	EventClosed
)

// RebalanceData carries the detail for an EventRebalanced entry.
type RebalanceData struct {
	OldTickLower, OldTickUpper int32
	NewTickLower, NewTickUpper int32
	OldLiquidity, NewLiquidity decimal.Decimal
	TxCostLamports             uint64
	ILAtRebalance              decimal.Decimal
	Reason                     string
}

// LifecycleEvent is one entry in C11's append-only per-position log.
type LifecycleEvent struct {
	Position  string
	Kind      LifecycleEventKind
	Timestamp time.Time
	Rebalance *RebalanceData
	FeesA     decimal.Decimal
	FeesB     decimal.Decimal
}

// EndpointHealth is owned by C2; health bookkeeping updates it through a
// per-endpoint lock to avoid becoming a contention point across endpoints.
type EndpointHealth struct {
	URL                 string
	LastSuccess         time.Time
	LastFailure         time.Time
	ConsecutiveFailures int
	AvgResponseTimeMs   float64
	TotalRequests       uint64
	SuccessfulRequests  uint64
}

// SuccessRate returns successful/total, 0 when no requests have been made
// (spec.md §8 invariant 9).
func (h EndpointHealth) SuccessRate() decimal.Decimal {
	if h.TotalRequests == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(h.SuccessfulRequests)).Div(decimal.NewFromInt(int64(h.TotalRequests)))
}

// CircuitStateKind tags C10's state machine.
type CircuitStateKind int

const (
	CircuitClosed CircuitStateKind = iota
	CircuitOpen
	CircuitHalfOpen
)

func (c CircuitStateKind) String() string {
	switch c {
	case CircuitClosed:
		return "Closed"
	case CircuitOpen:
		return "Open"
	case CircuitHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}
