package monitor

import (
	"math/big"

	"github.com/shopspring/decimal"
)

func decimalFromBigInt(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}

// PortfolioMetrics summarises value, fees, and PnL across every currently
// tracked position (spec.md §4.4's portfolio_metrics()).
type PortfolioMetrics struct {
	TotalPositions   int
	InRangeCount     int
	StaleCount       int
	TotalValueUSD    decimal.Decimal
	TotalFeesUSD     decimal.Decimal
	TotalNetPnLUSD   decimal.Decimal
}

// PortfolioMetrics aggregates the current monitored set into one snapshot.
func (m *Monitor) PortfolioMetrics() PortfolioMetrics {
	positions := m.GetPositions()

	metrics := PortfolioMetrics{
		TotalPositions: len(positions),
		TotalValueUSD:  decimal.Zero,
		TotalFeesUSD:   decimal.Zero,
		TotalNetPnLUSD: decimal.Zero,
	}
	for _, p := range positions {
		if p.InRange {
			metrics.InRangeCount++
		}
		if p.Stale {
			metrics.StaleCount++
		}
		if p.PnL != nil {
			metrics.TotalValueUSD = metrics.TotalValueUSD.Add(p.PnL.CurrentValueUSD)
			metrics.TotalFeesUSD = metrics.TotalFeesUSD.Add(p.PnL.FeesUSD)
			metrics.TotalNetPnLUSD = metrics.TotalNetPnLUSD.Add(p.PnL.NetPnLUSD)
		}
	}
	return metrics
}
