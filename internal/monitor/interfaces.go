// Package monitor maintains the fleet of tracked positions, reconciling
// each against on-chain state on a fixed interval and deriving PnL for
// every position with a recorded entry baseline (spec.md §4.4). C4 is the
// single writer of the monitored-position map; everyone else reads
// immutable snapshots.
package monitor

import (
	"context"

	"github.com/shopspring/decimal"

	"clmmctl/internal/types"
)

// PositionReader is the subset of internal/onchain.Reader the monitor
// depends on.
type PositionReader interface {
	GetPool(ctx context.Context, address string) (*types.PoolState, error)
	GetPosition(ctx context.Context, address string, tickSpacing int32) (*types.PositionState, error)
}

// PnLCalculator is the subset of internal/pnl.Tracker the monitor depends
// on.
type PnLCalculator interface {
	CalculatePnL(address string, currentPrice, currentAmountA, currentAmountB, feesA, feesB, priceAUSD, priceBUSD decimal.Decimal) (*types.PnLResult, error)
}

// PriceOracle is the external price_usd(mint) capability spec.md §9's
// Open Question describes: the core consumes it and must not cache
// stale prices beyond its own freshness contract.
type PriceOracle interface {
	PriceUSD(ctx context.Context, mint string) (decimal.Decimal, error)
	Decimals(mint string) int32
}
