package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clmmctl/internal/types"
)

func newTestBreaker(cfg Config) (*Breaker, *time.Time) {
	now := time.Unix(0, 0)
	b := New(cfg)
	b.nowFn = func() time.Time { return now }
	return b, &now
}

// S5 — 3 failures trips Open, cooldown moves to HalfOpen, one success closes.
func TestBreakerScenarioS5(t *testing.T) {
	b, now := newTestBreaker(Config{FailureThreshold: 3, SuccessThresholdForClose: 1, OpenCooldown: 10 * time.Second})

	for i := 0; i < 3; i++ {
		require.True(t, b.IsAllowed())
		b.RecordOutcome(false)
	}
	assert.Equal(t, types.CircuitOpen, b.Snapshot().State)
	assert.False(t, b.IsAllowed(), "open breaker denies attempts before cooldown")

	*now = now.Add(10 * time.Second)
	assert.True(t, b.IsAllowed(), "cooldown elapsed, half-open trial admitted")
	assert.Equal(t, types.CircuitHalfOpen, b.Snapshot().State)

	b.RecordOutcome(true)
	assert.Equal(t, types.CircuitClosed, b.Snapshot().State)
}

// TestBreakerDefaultConfigRequiresTwoHalfOpenSuccesses exercises the
// DefaultConfig()'s SuccessThresholdForClose of 2 directly: one success in
// HalfOpen is not enough to close under the shipped default, a second is.
func TestBreakerDefaultConfigRequiresTwoHalfOpenSuccesses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailureThreshold = 1
	cfg.OpenCooldown = 10 * time.Second
	b, now := newTestBreaker(cfg)

	require.True(t, b.IsAllowed())
	b.RecordOutcome(false)
	require.Equal(t, types.CircuitOpen, b.Snapshot().State)

	*now = now.Add(cfg.OpenCooldown)
	require.True(t, b.IsAllowed())
	b.RecordOutcome(true)
	assert.Equal(t, types.CircuitHalfOpen, b.Snapshot().State, "one success is not enough under the default threshold of 2")
	assert.Equal(t, 1, b.Snapshot().HalfOpenSuccesses)

	require.True(t, b.IsAllowed())
	b.RecordOutcome(true)
	assert.Equal(t, types.CircuitClosed, b.Snapshot().State, "a second success closes the breaker")
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(Config{FailureThreshold: 2, SuccessThresholdForClose: 2, OpenCooldown: 5 * time.Second})

	b.IsAllowed()
	b.RecordOutcome(false)
	b.IsAllowed()
	b.RecordOutcome(false)
	require.Equal(t, types.CircuitOpen, b.Snapshot().State)

	*now = now.Add(5 * time.Second)
	require.True(t, b.IsAllowed())
	b.RecordOutcome(false)
	assert.Equal(t, types.CircuitOpen, b.Snapshot().State)
}

func TestBreakerHalfOpenAllowsOnlyOneTrialAtATime(t *testing.T) {
	b, now := newTestBreaker(Config{FailureThreshold: 1, SuccessThresholdForClose: 1, OpenCooldown: time.Second})
	b.IsAllowed()
	b.RecordOutcome(false)
	*now = now.Add(time.Second)

	assert.True(t, b.IsAllowed())
	assert.False(t, b.IsAllowed(), "a second concurrent trial must be refused")
}

func TestBreakerClosedResetsFailureStreakOnSuccess(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, SuccessThresholdForClose: 1, OpenCooldown: time.Second})
	b.IsAllowed()
	b.RecordOutcome(false)
	b.IsAllowed()
	b.RecordOutcome(true)
	b.IsAllowed()
	b.RecordOutcome(false)
	b.IsAllowed()
	b.RecordOutcome(false)
	assert.Equal(t, types.CircuitClosed, b.Snapshot().State, "the reset streak should not have reached threshold yet")
}

func TestBreakerManualTripForcesOpenFromAnyState(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 10, SuccessThresholdForClose: 1, OpenCooldown: time.Second})
	b.Trip()
	assert.Equal(t, types.CircuitOpen, b.Snapshot().State)
	assert.True(t, b.Snapshot().ManuallyTripped)
}

func TestBreakerIsAllowedMonotonicWithinAState(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, SuccessThresholdForClose: 1, OpenCooldown: time.Minute})
	first := b.IsAllowed()
	second := b.IsAllowed()
	assert.Equal(t, first, second, "no RecordOutcome occurred between reads, state must not have flipped")
}
