package chainfacade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEndpointHealthyUntilThreshold(t *testing.T) {
	ep := newEndpointState("http://a")
	assert.True(t, ep.isHealthy(3, time.Minute))

	ep.recordFailure()
	ep.recordFailure()
	assert.True(t, ep.isHealthy(3, time.Minute))

	ep.recordFailure()
	assert.False(t, ep.isHealthy(3, time.Minute))
}

func TestEndpointReadmittedAfterRecovery(t *testing.T) {
	ep := newEndpointState("http://a")
	ep.recordFailure()
	ep.recordFailure()
	ep.recordFailure()
	require := assert.New(t)
	require.False(ep.isHealthy(3, 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)
	require.True(ep.isHealthy(3, 10*time.Millisecond))
}

func TestEndpointSuccessResetsFailureStreak(t *testing.T) {
	ep := newEndpointState("http://a")
	ep.recordFailure()
	ep.recordFailure()
	ep.recordSuccess(5 * time.Millisecond)

	snap := ep.Snapshot()
	assert.Equal(t, 0, snap.ConsecutiveFailures)
	assert.Equal(t, uint64(3), snap.TotalRequests)
	assert.Equal(t, uint64(1), snap.SuccessfulRequests)
}

func TestEndpointWelfordMeanResponseTime(t *testing.T) {
	ep := newEndpointState("http://a")
	ep.recordSuccess(10 * time.Millisecond)
	ep.recordSuccess(20 * time.Millisecond)
	ep.recordSuccess(30 * time.Millisecond)

	snap := ep.Snapshot()
	assert.InDelta(t, 20.0, snap.AvgResponseTimeMs, 0.5)
}

func TestEndpointSuccessRate(t *testing.T) {
	ep := newEndpointState("http://a")
	for i := 0; i < 7; i++ {
		ep.recordSuccess(time.Millisecond)
	}
	for i := 0; i < 3; i++ {
		ep.recordFailure()
	}
	snap := ep.Snapshot()
	rate := snap.SuccessRate()
	f, _ := rate.Float64()
	assert.InDelta(t, 0.7, f, 0.0001)
}
