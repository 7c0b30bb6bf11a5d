package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"clmmctl/internal/alerts"
	"clmmctl/internal/breaker"
	"clmmctl/internal/chainfacade"
	"clmmctl/internal/clmmerr"
	"clmmctl/internal/config"
	"clmmctl/internal/lifecycle"
	"clmmctl/internal/monitor"
	"clmmctl/internal/onchain"
	"clmmctl/internal/pnl"
	"clmmctl/internal/rebalance"
	"clmmctl/internal/repository"
	"clmmctl/internal/rules"
	"clmmctl/internal/strategy"
	"clmmctl/internal/txlifecycle"
	"clmmctl/internal/types"
)

// unimplementedBuilder is the instruction-encoding collaborator spec.md §7
// leaves pluggable: wire-encoding a particular on-chain program's
// instructions is explicitly out of scope for the control plane itself.
type unimplementedBuilder struct {
	position string
	decision types.Decision
}

func (b unimplementedBuilder) Build(ctx context.Context, blockhash string) ([]byte, error) {
	return nil, clmmerr.New(clmmerr.KindInternal, fmt.Sprintf("no instruction encoder configured for position %s", b.position), nil)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	configPath := os.Getenv("CLMMCTL_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	facade := chainfacade.New(cfg.ToChainFacadeConfig())
	reader := onchain.NewReader(facade)
	pnlTracker := pnl.NewTracker()

	repo, err := repository.Open(cfg.Repository.DSN)
	if err != nil {
		log.Fatalf("open repository: %v", err)
	}
	priceOracle := repository.NewPriceOracle(repo, nil)

	mon := monitor.New(cfg.ToMonitorConfig(), reader, pnlTracker, priceOracle)

	ruleEngine := rules.NewEngine(
		&rules.Rule{Name: "range_exit", Condition: rules.RangeExit(), CooldownSecs: 300, Level: types.AlertWarning, Type: "RangeExit", MessageTemplate: "position left its range"},
		&rules.Rule{Name: "range_entry", Condition: rules.RangeEntry(), CooldownSecs: 300, Level: types.AlertInfo, Type: "RangeEntry", MessageTemplate: "position re-entered its range"},
		&rules.Rule{Name: "il_exceeds", Condition: rules.ILExceeds(cfg.ToDecisionConfig().ILRebalanceThreshold), CooldownSecs: 900, Level: types.AlertWarning, Type: "ILExceedsThreshold", MessageTemplate: "impermanent loss {il_pct} exceeds threshold"},
	)

	notifiers := []alerts.Notifier{}
	if cfg.Alerts.Console {
		notifiers = append(notifiers, alerts.ConsoleNotifier{})
	}
	if cfg.Alerts.FilePath != "" {
		notifiers = append(notifiers, alerts.NewFileNotifier(cfg.Alerts.FilePath))
	}
	if cfg.Alerts.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(cfg.Alerts.WebhookURL))
	}
	multiNotifier := alerts.NewMultiNotifier(log.Default(), notifiers...)
	alertBus := newAlertPublisher(multiNotifier)

	circuitBreaker := breaker.New(cfg.ToBreakerConfig())
	txTracker := txlifecycle.New(facade, circuitBreaker, cfg.ToTxLifecycleConfig())
	events := lifecycle.New()

	builderFactory := func(position types.MonitoredPosition, d types.Decision, plan *rebalance.Plan) strategy.TxBuilder {
		return unimplementedBuilder{position: position.Position.Address, decision: d}
	}

	executor := strategy.New(mon, circuitBreaker, txSubmitterAdapter{txTracker}, builderFactory, events, alertBus, nil, cfg.ToStrategyConfig(), log.Default())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := mon.Start(ctx); err != nil {
			log.Printf("monitor stopped: %v", err)
		}
	}()

	go watchRuleEngine(ctx, mon, ruleEngine, alertBus, events)

	if err := executor.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("strategy executor stopped unexpectedly: %v", err)
	}

	log.Println("shutdown complete")
}

// txSubmitterAdapter narrows *txlifecycle.Tracker to strategy.TxSubmitter,
// converting strategy.TxBuilder to txlifecycle.Builder (identical method
// sets, distinct named interfaces so neither package imports the other's
// concrete type).
type txSubmitterAdapter struct {
	tracker *txlifecycle.Tracker
}

func (a txSubmitterAdapter) Submit(ctx context.Context, requestID string, builder strategy.TxBuilder) types.PendingTransaction {
	return a.tracker.Submit(ctx, requestID, builder)
}

// alertPublisher adapts alerts.MultiNotifier (which expects a built Alert)
// into the strategy.AlertPublisher / rules consumer shape used here.
type alertPublisher struct {
	notifier *alerts.MultiNotifier
}

func newAlertPublisher(n *alerts.MultiNotifier) *alertPublisher {
	return &alertPublisher{notifier: n}
}

func (p *alertPublisher) Publish(alert types.Alert) {
	p.notifier.NotifyAll(alert)
}

// watchRuleEngine subscribes to every monitored-position update and fires
// the configured alert rules against each refreshed snapshot, publishing
// anything that fires to the same notifier fan-out the strategy loop uses.
func watchRuleEngine(ctx context.Context, mon *monitor.Monitor, engine *rules.Engine, publisher *alertPublisher, events *lifecycle.Tracker) {
	id, updates := mon.SubscribeUpdates()
	defer mon.UnsubscribeUpdates(id)

	lastInRange := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-updates:
			if !ok {
				return
			}
			wasInRange, known := lastInRange[p.Position.Address]
			if !known {
				wasInRange = p.InRange
			}
			lastInRange[p.Position.Address] = p.InRange

			hoursSinceRebalance, _ := events.HoursSinceLastAction(p.Position.Address, time.Now())

			fired := engine.Evaluate(p.Position.Address, p.Position.PoolAddress, rules.Context{
				InRange:             p.InRange,
				WasInRange:          wasInRange,
				PnL:                 p.PnL,
				HoursSinceRebalance: hoursSinceRebalance,
			})
			for _, alert := range fired {
				publisher.Publish(alert)
			}
		}
	}
}
