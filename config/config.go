/*
config.go - Server configuration

PURPOSE:
  Collects the register's runtime settings from command-line flags, with
  environment variables as defaults. A .env file in the working directory
  is loaded first when present.

SETTINGS:
  flag            env                  default
  -port           POS_PORT             8080
  -db             POS_DB               pos.db (":memory:" for tests/demo)
  -tax-rate       POS_TAX_RATE         0.21
  -currency       POS_CURRENCY         ARS
  -fiscal-url     POS_FISCAL_URL       "" (in-process simulator)
  -fiscal-timeout POS_FISCAL_TIMEOUT   10s
  -catalog        POS_CATALOG          "" (built-in demo catalog)
  -billing-mode   POS_BILLING_MODE     internal
  -log-level      POS_LOG_LEVEL        info

PRECEDENCE:
  flag > environment (.env included) > default

SEE ALSO:
  - cmd/server/main.go: Consumer
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

// Config holds everything the server needs to start.
type Config struct {
	Port          int
	DBPath        string
	TaxRate       decimal.Decimal
	Currency      pos.Currency
	FiscalURL     string
	FiscalTimeout time.Duration
	CatalogPath   string
	BillingMode   pos.BillingMode
	LogLevel      logrus.Level
}

// Load reads .env (if any), then parses args against environment defaults.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return Parse(args, os.Getenv)
}

// Parse builds a Config from args, using getenv for defaults.
func Parse(args []string, getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	fs := flag.NewFlagSet("pos", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	port := fs.String("port", env("POS_PORT", "8080"), "HTTP server port")
	dbPath := fs.String("db", env("POS_DB", "pos.db"), "SQLite database path")
	taxRate := fs.String("tax-rate", env("POS_TAX_RATE", pos.DefaultTaxRate.String()), "fiscal tax rate")
	currency := fs.String("currency", env("POS_CURRENCY", string(pos.CurrencyARS)), "catalog currency")
	fiscalURL := fs.String("fiscal-url", env("POS_FISCAL_URL", ""), "fiscal authority base URL (empty: simulator)")
	fiscalTimeout := fs.String("fiscal-timeout", env("POS_FISCAL_TIMEOUT", pos.DefaultFiscalTimeout.String()), "fiscal authorization timeout")
	catalogPath := fs.String("catalog", env("POS_CATALOG", ""), "catalog JSON file used to seed an empty store")
	mode := fs.String("billing-mode", env("POS_BILLING_MODE", string(pos.ModeInternal)), "initial billing mode")
	logLevel := fs.String("log-level", env("POS_LOG_LEVEL", "info"), "log level")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:      *dbPath,
		Currency:    pos.Currency(*currency),
		FiscalURL:   *fiscalURL,
		CatalogPath: *catalogPath,
		BillingMode: pos.BillingMode(*mode),
	}

	p, err := strconv.Atoi(*port)
	if err != nil || p <= 0 || p > 65535 {
		return Config{}, fmt.Errorf("port must be a number between 1 and 65535, got %q", *port)
	}
	cfg.Port = p

	if cfg.DBPath == "" {
		return Config{}, errors.New("db path is required")
	}

	rate, err := decimal.NewFromString(*taxRate)
	if err != nil {
		return Config{}, fmt.Errorf("tax rate must be a decimal: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("tax rate must be in [0, 1), got %s", rate)
	}
	cfg.TaxRate = rate

	if cfg.Currency == "" {
		return Config{}, errors.New("currency is required")
	}

	timeout, err := time.ParseDuration(*fiscalTimeout)
	if err != nil {
		return Config{}, fmt.Errorf("fiscal timeout must be a duration: %w", err)
	}
	if timeout <= 0 {
		return Config{}, fmt.Errorf("fiscal timeout must be positive, got %s", timeout)
	}
	cfg.FiscalTimeout = timeout

	if !cfg.BillingMode.Valid() {
		return Config{}, fmt.Errorf("%w: %q", pos.ErrInvalidBillingMode, *mode)
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}
	cfg.LogLevel = level

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
