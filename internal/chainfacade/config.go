// Package chainfacade provides a multi-endpoint JSON-RPC facade over a
// pluggable chain: read primitives (get_account, get_multiple_accounts,
// get_slot, get_latest_blockhash, get_balance, get_signature_status) and
// write primitives (send_transaction, get_signature_statuses), with
// per-endpoint health tracking, failover, and retry with backoff
// (spec.md §4.2). It plays the role blackhole.go's ethclient.Client /
// pkg/txlistener play in the teacher, generalized to a pool of endpoints
// instead of a single dial target.
package chainfacade

import "time"

// Commitment mirrors the chain's read-consistency levels.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Config enumerates the endpoint pool and retry/health parameters
// recognised by spec.md §4.2.
type Config struct {
	PrimaryURL              string        `yaml:"primary_url"`
	FallbackURLs            []string      `yaml:"fallback_urls"`
	Timeout                 time.Duration `yaml:"timeout"`
	MaxRetries              int           `yaml:"max_retries"`
	RetryBaseDelayMs        int           `yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs         int           `yaml:"retry_max_delay_ms"`
	HealthCheckIntervalSecs int           `yaml:"health_check_interval_secs"`
	Commitment              Commitment    `yaml:"commitment"`

	// UnhealthyThreshold is the consecutive-failure count past which an
	// endpoint is marked unhealthy (default 3).
	UnhealthyThreshold int `yaml:"unhealthy_threshold"`
	// RecoveryTimeout is how long an unhealthy endpoint is excluded from
	// selection before being re-admitted as a candidate.
	RecoveryTimeout time.Duration `yaml:"recovery_timeout"`
}

// DefaultConfig mirrors the defaults spec.md §4.2/§9 call out explicitly.
func DefaultConfig(primaryURL string) Config {
	return Config{
		PrimaryURL:              primaryURL,
		Timeout:                 10 * time.Second,
		MaxRetries:              5,
		RetryBaseDelayMs:        200,
		RetryMaxDelayMs:         5000,
		HealthCheckIntervalSecs: 30,
		Commitment:              CommitmentConfirmed,
		UnhealthyThreshold:      3,
		RecoveryTimeout:         60 * time.Second,
	}
}

func (c Config) urls() []string {
	urls := make([]string, 0, 1+len(c.FallbackURLs))
	urls = append(urls, c.PrimaryURL)
	urls = append(urls, c.FallbackURLs...)
	return urls
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
