package chainfacade

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"clmmctl/internal/clmmerr"
	"clmmctl/internal/types"
)

// Facade is the multi-endpoint JSON-RPC client. No lock is held across a
// request: each call independently selects an endpoint from the current
// health records, so concurrent callers never queue behind one another.
// Callers that see the same health records select the same endpoint.
type Facade struct {
	cfg       Config
	endpoints []*endpointState
	client    *retryablehttp.Client
	requestID uint64
}

// New builds a Facade over cfg's primary/fallback URLs. The underlying
// HTTP transport is a retryablehttp.Client with its own retry loop
// disabled (RetryMax: 0): per-request transport retries would fight with
// this facade's own endpoint-rotation backoff, so retryablehttp is used
// here purely for its connection-reuse/timeout-safe HTTP client, and the
// facade owns the retry/backoff policy from spec.md §4.2.
func New(cfg Config) *Facade {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil

	urls := cfg.urls()
	endpoints := make([]*endpointState, 0, len(urls))
	for _, u := range urls {
		endpoints = append(endpoints, newEndpointState(u))
	}

	return &Facade{cfg: cfg, endpoints: endpoints, client: client}
}

func (f *Facade) nextRequestID() uint64 {
	return atomic.AddUint64(&f.requestID, 1)
}

// selectEndpoint prefers healthy endpoints with the lowest mean response
// time; if none are healthy, every endpoint becomes a candidate again
// (spec.md §4.2).
func (f *Facade) selectEndpoint() *endpointState {
	var best *endpointState
	var bestHealthy *endpointState

	for _, ep := range f.endpoints {
		if best == nil || ep.avgResponseTime() < best.avgResponseTime() {
			best = ep
		}
		if ep.isHealthy(f.cfg.UnhealthyThreshold, f.cfg.RecoveryTimeout) {
			if bestHealthy == nil || ep.avgResponseTime() < bestHealthy.avgResponseTime() {
				bestHealthy = ep
			}
		}
	}

	if bestHealthy != nil {
		return bestHealthy
	}
	return best
}

// Health returns a snapshot of every endpoint's health record.
func (f *Facade) Health() []types.EndpointHealth {
	out := make([]types.EndpointHealth, 0, len(f.endpoints))
	for _, ep := range f.endpoints {
		out = append(out, ep.Snapshot())
	}
	return out
}

// execute runs fn against a selected endpoint, failing over and backing
// off per spec.md §4.2 until it succeeds or MaxRetries is exhausted.
func (f *Facade) execute(ctx context.Context, fn func(ctx context.Context, ep *endpointState) error) error {
	var lastErr error

	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		ep := f.selectEndpoint()
		if ep == nil {
			return clmmerr.New(clmmerr.KindTransient, "no endpoints configured", nil)
		}

		reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
		start := time.Now()
		err := fn(reqCtx, ep)
		elapsed := time.Since(start)
		cancel()

		if err == nil {
			ep.recordSuccess(elapsed)
			return nil
		}
		ep.recordFailure()
		lastErr = err

		if attempt == f.cfg.MaxRetries {
			break
		}
		delay := backoffDelay(attempt, f.cfg.RetryBaseDelayMs, f.cfg.RetryMaxDelayMs)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return clmmerr.Wrap(clmmerr.KindTransient, ctx.Err(), "context cancelled during retry backoff")
		}
	}

	return clmmerr.Wrap(clmmerr.KindTransient, lastErr, "exhausted %d retries across %d endpoints", f.cfg.MaxRetries, len(f.endpoints))
}
