// Package breaker implements the failure-rate circuit breaker (C10) that
// gates C9: Closed/Open/HalfOpen, transitioned under a single mutex so
// concurrent outcome reports never race past each other into an
// inconsistent state (spec.md §4.10).
package breaker

import (
	"sync"
	"time"

	"clmmctl/internal/metrics"
	"clmmctl/internal/types"
)

// Config carries the breaker's thresholds.
type Config struct {
	FailureThreshold        int
	SuccessThresholdForClose int
	OpenCooldown            time.Duration
}

// DefaultConfig mirrors the defaults called out in spec.md §9.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:         5,
		SuccessThresholdForClose: 2,
		OpenCooldown:             30 * time.Second,
	}
}

// Stats is a point-in-time snapshot for observability and tests.
type Stats struct {
	State            types.CircuitStateKind
	ConsecutiveFailures int
	HalfOpenSuccesses int
	OpenedAt         time.Time
	ManuallyTripped  bool
}

// Breaker owns its state behind a single mutex: spec.md §4.10 calls for a
// "small atomic record" guarded by compare-and-set, which in Go idiom is a
// tiny critical section rather than a lock-free CAS loop over several
// fields that must move together.
type Breaker struct {
	mu sync.Mutex

	cfg   Config
	nowFn func() time.Time

	state               types.CircuitStateKind
	consecutiveFailures int
	halfOpenSuccesses   int
	openedAt            time.Time
	manuallyTripped     bool
	halfOpenTrialInFlight bool
}

func New(cfg Config) *Breaker {
	metrics.SetBreakerState("closed")
	return &Breaker{cfg: cfg, nowFn: time.Now, state: types.CircuitClosed}
}

// IsAllowed reports whether C9 may attempt an action right now. In Closed
// it always admits. In Open it refuses until OpenCooldown has elapsed, at
// which point this call itself moves the breaker to HalfOpen. In HalfOpen
// it admits one trial and refuses further calls until RecordOutcome
// reports that trial's result.
func (b *Breaker) IsAllowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case types.CircuitClosed:
		return true
	case types.CircuitOpen:
		if b.nowFn().Sub(b.openedAt) >= b.cfg.OpenCooldown {
			b.state = types.CircuitHalfOpen
			b.halfOpenSuccesses = 0
			b.halfOpenTrialInFlight = false
			metrics.SetBreakerState("half_open")
		}
		if b.state == types.CircuitHalfOpen {
			if b.halfOpenTrialInFlight {
				return false
			}
			b.halfOpenTrialInFlight = true
			return true
		}
		return false
	case types.CircuitHalfOpen:
		if b.halfOpenTrialInFlight {
			return false
		}
		b.halfOpenTrialInFlight = true
		return true
	default:
		return false
	}
}

// RecordOutcome reports the result of an attempt IsAllowed just admitted.
func (b *Breaker) RecordOutcome(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case types.CircuitClosed:
		if success {
			b.consecutiveFailures = 0
			return
		}
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.trip()
		}
	case types.CircuitHalfOpen:
		b.halfOpenTrialInFlight = false
		if success {
			b.halfOpenSuccesses++
			if b.halfOpenSuccesses >= b.cfg.SuccessThresholdForClose {
				b.state = types.CircuitClosed
				b.consecutiveFailures = 0
				b.halfOpenSuccesses = 0
				b.manuallyTripped = false
				metrics.SetBreakerState("closed")
			}
			return
		}
		b.trip()
	case types.CircuitOpen:
		// Outcome reported against a stale allowance from before the last
		// trip; ignored.
	}
}

// Trip forces the breaker to Open regardless of current state (the manual
// operator trip spec.md §4.10 calls out).
func (b *Breaker) Trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trip()
	b.manuallyTripped = true
}

func (b *Breaker) trip() {
	b.state = types.CircuitOpen
	b.openedAt = b.nowFn()
	b.consecutiveFailures = 0
	b.halfOpenSuccesses = 0
	b.halfOpenTrialInFlight = false
	metrics.SetBreakerState("open")
}

// Snapshot returns a point-in-time view for observability and tests.
func (b *Breaker) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		HalfOpenSuccesses:   b.halfOpenSuccesses,
		OpenedAt:            b.openedAt,
		ManuallyTripped:     b.manuallyTripped,
	}
}
