// Package txlifecycle drives a single transaction through
// Built -> Simulated -> Sent -> Confirmed/Failed (C9, spec.md §4.9). It owns
// the pending-transaction map exclusively: the only writer is the
// submission goroutine that built the entry, readers take snapshots.
package txlifecycle

import (
	"context"
	"sync"
	"time"

	"clmmctl/internal/chainfacade"
	"clmmctl/internal/clmmerr"
	"clmmctl/internal/types"
)

// Sender narrows chainfacade.Facade to the primitives C9 needs.
type Sender interface {
	GetLatestBlockhash(ctx context.Context) (string, error)
	SimulateTransaction(ctx context.Context, raw []byte) (int64, error)
	SendTransaction(ctx context.Context, raw []byte) (string, error)
	GetSignatureStatus(ctx context.Context, signature string) (*chainfacade.SignatureStatus, error)
}

// BreakerNotifier narrows the circuit breaker to the one call C9 makes per
// submission, with its terminal outcome (Confirmed or Failed); intermediate
// state transitions are not reported to the breaker.
type BreakerNotifier interface {
	RecordOutcome(success bool)
}

// Builder assembles the raw, signed transaction bytes for a fresh
// blockhash. It is domain-specific instruction encoding, left as a
// collaborator interface so this package never needs to know the chain
// program's instruction layout.
type Builder interface {
	Build(ctx context.Context, blockhash string) ([]byte, error)
}

// Config parameterises retry/backoff and confirmation polling.
type Config struct {
	MaxRetries              int
	RetryBaseDelayMs        int
	RetryMaxDelayMs         int
	ConfirmationTimeout     time.Duration
	ConfirmationPollInterval time.Duration
}

// DefaultConfig mirrors the defaults called out in spec.md §9.
func DefaultConfig() Config {
	return Config{
		MaxRetries:               3,
		RetryBaseDelayMs:         250,
		RetryMaxDelayMs:          4000,
		ConfirmationTimeout:      30 * time.Second,
		ConfirmationPollInterval: time.Second,
	}
}

// Tracker owns the pending-transaction map for its lifetime.
type Tracker struct {
	mu      sync.RWMutex
	pending map[string]*types.PendingTransaction

	sender  Sender
	breaker BreakerNotifier
	cfg     Config
	nowFn   func() time.Time
	sleepFn func(ctx context.Context, d time.Duration)
}

func New(sender Sender, breaker BreakerNotifier, cfg Config) *Tracker {
	return &Tracker{
		pending: make(map[string]*types.PendingTransaction),
		sender:  sender,
		breaker: breaker,
		cfg:     cfg,
		nowFn:   time.Now,
		sleepFn: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Get returns a snapshot of a tracked transaction.
func (t *Tracker) Get(requestID string) (types.PendingTransaction, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tx, ok := t.pending[requestID]
	if !ok {
		return types.PendingTransaction{}, false
	}
	return *tx, true
}

func (t *Tracker) set(tx *types.PendingTransaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := *tx
	t.pending[tx.RequestID] = &cp
}

// Submit drives requestID through the full state machine and returns its
// terminal PendingTransaction. It never returns a transport error directly:
// Failed transactions carry their cause in PendingTransaction.Err.
func (t *Tracker) Submit(ctx context.Context, requestID string, builder Builder) types.PendingTransaction {
	tx := &types.PendingTransaction{RequestID: requestID, State: types.TxBuilt, SubmittedAt: t.nowFn()}
	t.set(tx)

	blockhash, err := t.sender.GetLatestBlockhash(ctx)
	if err != nil {
		return t.fail(tx, err)
	}

	raw, err := builder.Build(ctx, blockhash)
	if err != nil {
		return t.fail(tx, err)
	}

	if _, err := t.sender.SimulateTransaction(ctx, raw); err != nil {
		return t.fail(tx, err)
	}
	tx.State = types.TxSimulated
	t.set(tx)

	signature, err := t.sendWithRetry(ctx, builder, raw)
	if err != nil {
		return t.fail(tx, err)
	}
	tx.State = types.TxSent
	tx.Signature = signature
	t.set(tx)

	return t.awaitConfirmation(ctx, tx)
}

// sendWithRetry retries transient send failures with exponential backoff,
// refreshing the blockhash (and rebuilding) between attempts.
func (t *Tracker) sendWithRetry(ctx context.Context, builder Builder, raw []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= t.cfg.MaxRetries; attempt++ {
		signature, err := t.sender.SendTransaction(ctx, raw)
		if err == nil {
			return signature, nil
		}
		lastErr = err
		if clmmerr.KindOf(err) != clmmerr.KindTransient {
			return "", err
		}
		if attempt == t.cfg.MaxRetries {
			break
		}
		t.sleepFn(ctx, backoffDelay(attempt, t.cfg.RetryBaseDelayMs, t.cfg.RetryMaxDelayMs))
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		blockhash, bhErr := t.sender.GetLatestBlockhash(ctx)
		if bhErr != nil {
			lastErr = bhErr
			continue
		}
		refreshed, buildErr := builder.Build(ctx, blockhash)
		if buildErr != nil {
			lastErr = buildErr
			continue
		}
		raw = refreshed
	}
	return "", lastErr
}

// awaitConfirmation polls signature status until it's not-null and
// not-erroring, or until ConfirmationTimeout elapses.
func (t *Tracker) awaitConfirmation(ctx context.Context, tx *types.PendingTransaction) types.PendingTransaction {
	deadline := t.nowFn().Add(t.cfg.ConfirmationTimeout)
	for {
		status, err := t.sender.GetSignatureStatus(ctx, tx.Signature)
		if err != nil && clmmerr.KindOf(err) != clmmerr.KindTransient {
			return t.fail(tx, err)
		}
		if status != nil {
			if status.Err != "" {
				return t.fail(tx, clmmerr.New(clmmerr.KindInternal, "transaction failed on-chain: "+status.Err, nil))
			}
			tx.State = types.TxConfirmed
			tx.Slot = status.Slot
			tx.ConfirmedAt = t.nowFn()
			t.set(tx)
			t.breaker.RecordOutcome(true)
			return *tx
		}

		if t.nowFn().After(deadline) || ctx.Err() != nil {
			return t.fail(tx, clmmerr.New(clmmerr.KindConfirmationTimeout, "signature not confirmed within window", nil))
		}
		t.sleepFn(ctx, t.cfg.ConfirmationPollInterval)
	}
}

func (t *Tracker) fail(tx *types.PendingTransaction, err error) types.PendingTransaction {
	tx.State = types.TxFailed
	tx.Err = err
	t.set(tx)
	t.breaker.RecordOutcome(false)
	return *tx
}

func backoffDelay(attempt, baseMs, maxMs int) time.Duration {
	if baseMs <= 0 {
		baseMs = 1
	}
	delay := baseMs << uint(attempt)
	if maxMs > 0 && delay > maxMs {
		delay = maxMs
	}
	return time.Duration(delay) * time.Millisecond
}
