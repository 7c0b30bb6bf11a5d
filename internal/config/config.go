// Package config loads the YAML-based process configuration and converts
// it into the per-component config structs each collaborator expects,
// mirroring the teacher's configs.Config / ToXConfig() pattern.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"clmmctl/internal/breaker"
	"clmmctl/internal/chainfacade"
	"clmmctl/internal/decision"
	"clmmctl/internal/monitor"
	"clmmctl/internal/rebalance"
	"clmmctl/internal/strategy"
	"clmmctl/internal/txlifecycle"
)

// Config is the root of config.yml.
type Config struct {
	RPC        RPCYAMLData        `yaml:"rpc"`
	Monitor    MonitorYAMLData    `yaml:"monitor"`
	Decision   DecisionYAMLData   `yaml:"decision"`
	Rebalance  RebalanceYAMLData  `yaml:"rebalance"`
	Breaker    BreakerYAMLData    `yaml:"circuit_breaker"`
	Tx         TxYAMLData         `yaml:"transaction"`
	Strategy   StrategyYAMLData   `yaml:"strategy"`
	Repository RepositoryYAMLData `yaml:"repository"`
	Alerts     AlertsYAMLData     `yaml:"alerts"`
}

// RPCYAMLData configures the multi-endpoint JSON-RPC facade (C2/C3).
type RPCYAMLData struct {
	PrimaryURL              string   `yaml:"primary_url"`
	FallbackURLs            []string `yaml:"fallback_urls"`
	TimeoutSecs             int      `yaml:"timeout_secs"`
	MaxRetries              int      `yaml:"max_retries"`
	RetryBaseDelayMs        int      `yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs         int      `yaml:"retry_max_delay_ms"`
	HealthCheckIntervalSecs int      `yaml:"health_check_interval_secs"`
	UnhealthyThreshold      int      `yaml:"unhealthy_threshold"`
	RecoveryTimeoutSecs     int      `yaml:"recovery_timeout_secs"`
}

// MonitorYAMLData configures C4's polling loop.
type MonitorYAMLData struct {
	PollIntervalSecs int `yaml:"poll_interval_secs"`
	StaleAfterSecs   int `yaml:"stale_after_secs"`
}

// DecisionYAMLData configures C7's thresholds.
type DecisionYAMLData struct {
	ILRebalanceThreshold      float64 `yaml:"il_rebalance_threshold"`
	ILCloseThreshold          float64 `yaml:"il_close_threshold"`
	MinRebalanceIntervalHours float64 `yaml:"min_rebalance_interval_hours"`
	RangeWidthPct             float64 `yaml:"range_width_pct"`
	AutoCollectFees           bool    `yaml:"auto_collect_fees"`
	MinFeesToCollect          float64 `yaml:"min_fees_to_collect"`
}

// RebalanceYAMLData configures C8's slippage tolerance.
type RebalanceYAMLData struct {
	MaxSlippagePct float64 `yaml:"max_slippage_pct"`
}

// BreakerYAMLData configures C10.
type BreakerYAMLData struct {
	FailureThreshold         int `yaml:"failure_threshold"`
	SuccessThresholdForClose int `yaml:"success_threshold_for_close"`
	OpenCooldownSecs         int `yaml:"open_cooldown_secs"`
}

// TxYAMLData configures C9's retry/confirmation behaviour.
type TxYAMLData struct {
	MaxRetries                  int `yaml:"max_retries"`
	RetryBaseDelayMs            int `yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs             int `yaml:"retry_max_delay_ms"`
	ConfirmationTimeoutSecs     int `yaml:"confirmation_timeout_secs"`
	ConfirmationPollIntervalMs  int `yaml:"confirmation_poll_interval_ms"`
}

// StrategyYAMLData configures C12's evaluation loop.
type StrategyYAMLData struct {
	EvalIntervalSecs    int  `yaml:"eval_interval_secs"`
	MaxConcurrency      int  `yaml:"max_concurrency"`
	DryRun              bool `yaml:"dry_run"`
	RequireConfirmation bool `yaml:"require_confirmation"`
}

// RepositoryYAMLData configures the persisted-state connection.
type RepositoryYAMLData struct {
	DSN string `yaml:"dsn"`
}

// AlertsYAMLData configures which notifiers the MultiNotifier fans out to.
type AlertsYAMLData struct {
	Console    bool   `yaml:"console"`
	FilePath   string `yaml:"file_path"`
	WebhookURL string `yaml:"webhook_url"`
}

// LoadConfig reads and parses config.yml into a Config struct.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &cfg, nil
}

// ToChainFacadeConfig builds C2's config from the loaded YAML.
func (c *Config) ToChainFacadeConfig() chainfacade.Config {
	cfg := chainfacade.DefaultConfig(c.RPC.PrimaryURL)
	cfg.FallbackURLs = c.RPC.FallbackURLs
	if c.RPC.TimeoutSecs > 0 {
		cfg.Timeout = time.Duration(c.RPC.TimeoutSecs) * time.Second
	}
	if c.RPC.MaxRetries > 0 {
		cfg.MaxRetries = c.RPC.MaxRetries
	}
	if c.RPC.RetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = c.RPC.RetryBaseDelayMs
	}
	if c.RPC.RetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = c.RPC.RetryMaxDelayMs
	}
	if c.RPC.HealthCheckIntervalSecs > 0 {
		cfg.HealthCheckIntervalSecs = c.RPC.HealthCheckIntervalSecs
	}
	if c.RPC.UnhealthyThreshold > 0 {
		cfg.UnhealthyThreshold = c.RPC.UnhealthyThreshold
	}
	if c.RPC.RecoveryTimeoutSecs > 0 {
		cfg.RecoveryTimeout = time.Duration(c.RPC.RecoveryTimeoutSecs) * time.Second
	}
	return cfg
}

// ToMonitorConfig builds C4's config.
func (c *Config) ToMonitorConfig() monitor.Config {
	cfg := monitor.DefaultConfig()
	if c.Monitor.PollIntervalSecs > 0 {
		cfg.PollInterval = time.Duration(c.Monitor.PollIntervalSecs) * time.Second
	}
	if c.Monitor.StaleAfterSecs > 0 {
		cfg.StaleAfter = time.Duration(c.Monitor.StaleAfterSecs) * time.Second
	}
	return cfg
}

// ToDecisionConfig builds C7's thresholds.
func (c *Config) ToDecisionConfig() decision.Config {
	return decision.Config{
		ILRebalanceThreshold:      decimal.NewFromFloat(c.Decision.ILRebalanceThreshold),
		ILCloseThreshold:          decimal.NewFromFloat(c.Decision.ILCloseThreshold),
		MinRebalanceIntervalHours: c.Decision.MinRebalanceIntervalHours,
		RangeWidthPct:             decimal.NewFromFloat(c.Decision.RangeWidthPct),
		AutoCollectFees:           c.Decision.AutoCollectFees,
		MinFeesToCollect:          decimal.NewFromFloat(c.Decision.MinFeesToCollect),
	}
}

// ToRebalanceConfig builds C8's slippage tolerance.
func (c *Config) ToRebalanceConfig() rebalance.Config {
	return rebalance.Config{MaxSlippagePct: decimal.NewFromFloat(c.Rebalance.MaxSlippagePct)}
}

// ToBreakerConfig builds C10's config.
func (c *Config) ToBreakerConfig() breaker.Config {
	cfg := breaker.DefaultConfig()
	if c.Breaker.FailureThreshold > 0 {
		cfg.FailureThreshold = c.Breaker.FailureThreshold
	}
	if c.Breaker.SuccessThresholdForClose > 0 {
		cfg.SuccessThresholdForClose = c.Breaker.SuccessThresholdForClose
	}
	if c.Breaker.OpenCooldownSecs > 0 {
		cfg.OpenCooldown = time.Duration(c.Breaker.OpenCooldownSecs) * time.Second
	}
	return cfg
}

// ToTxLifecycleConfig builds C9's retry/confirmation config.
func (c *Config) ToTxLifecycleConfig() txlifecycle.Config {
	cfg := txlifecycle.DefaultConfig()
	if c.Tx.MaxRetries > 0 {
		cfg.MaxRetries = c.Tx.MaxRetries
	}
	if c.Tx.RetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = c.Tx.RetryBaseDelayMs
	}
	if c.Tx.RetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = c.Tx.RetryMaxDelayMs
	}
	if c.Tx.ConfirmationTimeoutSecs > 0 {
		cfg.ConfirmationTimeout = time.Duration(c.Tx.ConfirmationTimeoutSecs) * time.Second
	}
	if c.Tx.ConfirmationPollIntervalMs > 0 {
		cfg.ConfirmationPollInterval = time.Duration(c.Tx.ConfirmationPollIntervalMs) * time.Millisecond
	}
	return cfg
}

// ToStrategyConfig builds C12's top-level config, nesting the decision and
// rebalance configs the way strategy.Config itself requires.
func (c *Config) ToStrategyConfig() strategy.Config {
	cfg := strategy.DefaultConfig()
	if c.Strategy.EvalIntervalSecs > 0 {
		cfg.EvalInterval = time.Duration(c.Strategy.EvalIntervalSecs) * time.Second
	}
	if c.Strategy.MaxConcurrency > 0 {
		cfg.MaxConcurrency = c.Strategy.MaxConcurrency
	}
	cfg.DryRun = c.Strategy.DryRun
	cfg.RequireConfirmation = c.Strategy.RequireConfirmation
	cfg.Decision = c.ToDecisionConfig()
	cfg.Rebalance = c.ToRebalanceConfig()
	return cfg
}
