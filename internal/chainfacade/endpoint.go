package chainfacade

import (
	"sync"
	"time"

	"clmmctl/internal/types"
)

// endpointState pairs a URL with its own health record and lock, so
// updating one endpoint's health never contends with another's (spec.md
// §4.2's "sharded locking to avoid becoming the bottleneck").
type endpointState struct {
	url string

	mu     sync.Mutex
	health types.EndpointHealth
}

func newEndpointState(url string) *endpointState {
	return &endpointState{url: url, health: types.EndpointHealth{URL: url}}
}

// recordSuccess updates total/successful counters and the running mean
// response time using Welford's online-mean update, never a naive
// cumulative-sum-then-divide (spec.md §4.2).
func (e *endpointState) recordSuccess(elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.health.TotalRequests++
	e.health.SuccessfulRequests++
	e.health.ConsecutiveFailures = 0
	e.health.LastSuccess = time.Now()

	ms := float64(elapsed.Microseconds()) / 1000.0
	n := float64(e.health.SuccessfulRequests)
	delta := ms - e.health.AvgResponseTimeMs
	e.health.AvgResponseTimeMs += delta / n
}

func (e *endpointState) recordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.health.TotalRequests++
	e.health.ConsecutiveFailures++
	e.health.LastFailure = time.Now()
}

// isHealthy reports whether the endpoint should be preferred: either it
// hasn't crossed the consecutive-failure threshold, or enough time has
// passed since its last failure to re-admit it as a candidate.
func (e *endpointState) isHealthy(threshold int, recoveryTimeout time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.health.ConsecutiveFailures < threshold {
		return true
	}
	return !e.health.LastFailure.IsZero() && time.Since(e.health.LastFailure) >= recoveryTimeout
}

func (e *endpointState) avgResponseTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.health.AvgResponseTimeMs
}

// Snapshot returns a copy of the endpoint's health record.
func (e *endpointState) Snapshot() types.EndpointHealth {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.health
}
