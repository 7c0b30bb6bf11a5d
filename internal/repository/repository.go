// Package repository is the persisted-state collaborator spec.md §6
// describes: pools/simulations/prices tables behind GORM, with the schema
// migrated at startup by executing a bundled DDL script statement-by-
// statement (unlike the teacher's AutoMigrate — see the "Deliberate
// deviation" note in DESIGN.md's repository section).
package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// migrationDDL is executed statement-by-statement against a fresh
// connection before the repository serves any read/write.
const migrationDDL = `
CREATE TABLE IF NOT EXISTS pools (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	address VARCHAR(64) NOT NULL,
	token_mint_a VARCHAR(64) NOT NULL,
	token_mint_b VARCHAR(64) NOT NULL,
	tick_spacing INT NOT NULL,
	fee_rate_bps INT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE KEY uq_pools_address (address)
);

CREATE TABLE IF NOT EXISTS simulations (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	pool_address VARCHAR(64) NOT NULL,
	tick_lower INT NOT NULL,
	tick_upper INT NOT NULL,
	width_pct VARCHAR(64) NOT NULL,
	projected_fees_usd VARCHAR(64) NOT NULL,
	projected_il_pct VARCHAR(64) NOT NULL,
	created_at DATETIME NOT NULL,
	KEY idx_simulations_pool (pool_address)
);

CREATE TABLE IF NOT EXISTS prices (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	token_mint VARCHAR(64) NOT NULL,
	price_usd VARCHAR(64) NOT NULL,
	observed_at DATETIME NOT NULL,
	KEY idx_prices_token_time (token_mint, observed_at)
);
`

// PoolRecord is the GORM model for the pools table.
type PoolRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Address     string `gorm:"column:address;uniqueIndex"`
	TokenMintA  string `gorm:"column:token_mint_a"`
	TokenMintB  string `gorm:"column:token_mint_b"`
	TickSpacing int32  `gorm:"column:tick_spacing"`
	FeeRateBps  int32  `gorm:"column:fee_rate_bps"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PoolRecord) TableName() string { return "pools" }

// SimulationRecord is the GORM model for the simulations table, persisting
// the analytics/simulate external interface's outputs (spec.md §6).
type SimulationRecord struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	PoolAddress      string `gorm:"column:pool_address"`
	TickLower        int32  `gorm:"column:tick_lower"`
	TickUpper        int32  `gorm:"column:tick_upper"`
	WidthPct         string `gorm:"column:width_pct"`
	ProjectedFeesUSD string `gorm:"column:projected_fees_usd"`
	ProjectedILPct   string `gorm:"column:projected_il_pct"`
	CreatedAt        time.Time
}

func (SimulationRecord) TableName() string { return "simulations" }

// PriceRecord is the GORM model for the prices table.
type PriceRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	TokenMint  string    `gorm:"column:token_mint"`
	PriceUSD   string    `gorm:"column:price_usd"`
	ObservedAt time.Time `gorm:"column:observed_at"`
}

func (PriceRecord) TableName() string { return "prices" }

// Repository wraps a GORM connection scoped to the pools/simulations/prices
// tables.
type Repository struct {
	db *gorm.DB
}

// Open connects to MySQL via dsn and migrates the schema.
func Open(dsn string) (*Repository, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}
	return newWithDB(db)
}

// OpenWithDB wraps an already-open GORM connection (used by tests against
// sqlmock).
func OpenWithDB(db *gorm.DB) (*Repository, error) {
	return newWithDB(db)
}

func newWithDB(db *gorm.DB) (*Repository, error) {
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// migrate executes the bundled DDL script statement-by-statement, per
// spec.md §6, rather than relying on GORM's AutoMigrate.
func migrate(db *gorm.DB) error {
	for _, stmt := range strings.Split(migrationDDL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpsertPool inserts or updates a pool row keyed by address.
func (r *Repository) UpsertPool(address, tokenMintA, tokenMintB string, tickSpacing, feeRateBps int32, now time.Time) error {
	var existing PoolRecord
	err := r.db.Where("address = ?", address).First(&existing).Error
	if err == nil {
		existing.TokenMintA = tokenMintA
		existing.TokenMintB = tokenMintB
		existing.TickSpacing = tickSpacing
		existing.FeeRateBps = feeRateBps
		existing.UpdatedAt = now
		return r.db.Save(&existing).Error
	}
	record := PoolRecord{
		Address: address, TokenMintA: tokenMintA, TokenMintB: tokenMintB,
		TickSpacing: tickSpacing, FeeRateBps: feeRateBps,
		CreatedAt: now, UpdatedAt: now,
	}
	return r.db.Create(&record).Error
}

// GetPool fetches a pool row by address.
func (r *Repository) GetPool(address string) (*PoolRecord, error) {
	var record PoolRecord
	if err := r.db.Where("address = ?", address).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// RecordSimulation persists one analytics/simulate result.
func (r *Repository) RecordSimulation(poolAddress string, tickLower, tickUpper int32, widthPct, projectedFeesUSD, projectedILPct decimal.Decimal, at time.Time) error {
	record := SimulationRecord{
		PoolAddress: poolAddress, TickLower: tickLower, TickUpper: tickUpper,
		WidthPct: widthPct.String(), ProjectedFeesUSD: projectedFeesUSD.String(), ProjectedILPct: projectedILPct.String(),
		CreatedAt: at,
	}
	return r.db.Create(&record).Error
}

// RecordPrice persists one observed token price.
func (r *Repository) RecordPrice(tokenMint string, priceUSD decimal.Decimal, at time.Time) error {
	record := PriceRecord{TokenMint: tokenMint, PriceUSD: priceUSD.String(), ObservedAt: at}
	return r.db.Create(&record).Error
}

// LatestPrice returns the most recently observed price for tokenMint.
func (r *Repository) LatestPrice(tokenMint string) (decimal.Decimal, error) {
	var record PriceRecord
	if err := r.db.Where("token_mint = ?", tokenMint).Order("observed_at DESC").First(&record).Error; err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(record.PriceUSD)
}

// PriceOracle adapts a Repository's persisted prices into the monitor's
// PriceOracle capability. Decimals come from a static table fixed at
// construction, since a mint's decimals never change once deployed.
type PriceOracle struct {
	repo     *Repository
	decimals map[string]int32
}

// NewPriceOracle builds a PriceOracle backed by repo, serving Decimals from
// the supplied mint-to-decimals table.
func NewPriceOracle(repo *Repository, decimals map[string]int32) *PriceOracle {
	return &PriceOracle{repo: repo, decimals: decimals}
}

// PriceUSD satisfies monitor.PriceOracle by reading the latest persisted
// observation for mint.
func (p *PriceOracle) PriceUSD(_ context.Context, mint string) (decimal.Decimal, error) {
	return p.repo.LatestPrice(mint)
}

// Decimals satisfies monitor.PriceOracle.
func (p *PriceOracle) Decimals(mint string) int32 {
	return p.decimals[mint]
}
