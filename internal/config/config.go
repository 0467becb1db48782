// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/atmx/paper-ledger/internal/allocation"
	"github.com/atmx/paper-ledger/internal/money"
)

// Config holds application configuration.
type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	DatabaseURL string        `env:"DATABASE_URL"` // empty: in-memory store
	RedisURL    string        `env:"REDIS_URL"`    // empty: no cache, in-memory quotes
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	LogLevel    slog.Level    `env:"LOG_LEVEL" envDefault:"info"`

	DefaultCurrency string          `env:"DEFAULT_CURRENCY" envDefault:"USD"`
	StartingCash    decimal.Decimal `env:"STARTING_CASH" envDefault:"10000"`

	AllocationTolerance          decimal.Decimal `env:"ALLOCATION_TOLERANCE" envDefault:"0.1"`
	AllocationToleranceInclusive bool            `env:"ALLOCATION_TOLERANCE_INCLUSIVE" envDefault:"false"`

	TradeTimeout      time.Duration `env:"TRADE_TIMEOUT" envDefault:"5s"`
	CloseRollSchedule string        `env:"CLOSE_ROLL_SCHEDULE" envDefault:"0 16 * * 1-5"` // empty disables
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values env parsing cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if !money.IsCurrency(c.DefaultCurrency) {
		errs = append(errs, fmt.Errorf("DEFAULT_CURRENCY %q is not a known currency", c.DefaultCurrency))
	}
	if c.StartingCash.IsNegative() {
		errs = append(errs, fmt.Errorf("STARTING_CASH must not be negative, got %s", c.StartingCash))
	}
	if c.AllocationTolerance.IsNegative() {
		errs = append(errs, fmt.Errorf("ALLOCATION_TOLERANCE must not be negative, got %s", c.AllocationTolerance))
	}
	if c.AllocationTolerance.IsZero() && !c.AllocationToleranceInclusive {
		errs = append(errs, errors.New("ALLOCATION_TOLERANCE=0 requires ALLOCATION_TOLERANCE_INCLUSIVE=true"))
	}
	if c.TradeTimeout < 0 {
		errs = append(errs, fmt.Errorf("TRADE_TIMEOUT must not be negative, got %s", c.TradeTimeout))
	}
	return errors.Join(errs...)
}

// Cash is the starting cash of a new wallet.
func (c *Config) Cash() money.Money { return money.New(c.StartingCash) }

// Checker is the allocation completeness rule.
func (c *Config) Checker() allocation.Checker {
	return allocation.Checker{Inclusive: c.AllocationToleranceInclusive}.WithTolerance(c.AllocationTolerance)
}
