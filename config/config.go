// Package config loads the ledger service configuration from YAML or flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration of the ledger service.
type Config struct {
	ListenAddr     string        `validate:"required"`
	DataDir        string        `validate:"required"`
	PriceSource    string        `validate:"oneof=static binance bybit"`
	LockTimeout    time.Duration `validate:"gt=0"`
	LockStaleAfter time.Duration `validate:"gt=0"`
	StartingCash   decimal.Decimal
	// StaticPrices preloads the static price source (symbol -> price).
	StaticPrices map[string]decimal.Decimal
}

type configYAML struct {
	ListenAddr     string            `yaml:"listen_addr"`
	DataDir        string            `yaml:"data_dir"`
	PriceSource    string            `yaml:"price_source"`
	LockTimeout    time.Duration     `yaml:"lock_timeout"`
	LockStaleAfter time.Duration     `yaml:"lock_stale_after"`
	StartingCash   string            `yaml:"starting_cash"`
	StaticPrices   map[string]string `yaml:"static_prices"`
}

func defaults() Config {
	return Config{
		ListenAddr:     ":8080",
		DataDir:        "./data",
		PriceSource:    "static",
		LockTimeout:    5 * time.Second,
		LockStaleAfter: 30 * time.Second,
		StartingCash:   decimal.NewFromInt(10000),
		StaticPrices:   map[string]decimal.Decimal{},
	}
}

// Get reads configuration from the file named by --config, falling back to
// defaults when the flag is absent.
func Get() (Config, error) {
	path := flag.String("config", "", "path to yaml config")
	flag.Parse()

	if *path == "" {
		return defaults(), nil
	}
	return FromFile(*path)
}

// FromFile loads and validates a YAML configuration file.
func FromFile(path string) (Config, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return parse(payload)
}

func parse(payload []byte) (Config, error) {
	var raw configYAML
	if err := yaml.Unmarshal(payload, &raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg := defaults()
	if raw.ListenAddr != "" {
		cfg.ListenAddr = raw.ListenAddr
	}
	if raw.DataDir != "" {
		cfg.DataDir = raw.DataDir
	}
	if raw.PriceSource != "" {
		cfg.PriceSource = raw.PriceSource
	}
	if raw.LockTimeout != 0 {
		cfg.LockTimeout = raw.LockTimeout
	}
	if raw.LockStaleAfter != 0 {
		cfg.LockStaleAfter = raw.LockStaleAfter
	}
	if raw.StartingCash != "" {
		cash, err := decimal.NewFromString(raw.StartingCash)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'starting_cash' param in yaml config: %w", err)
		}
		if cash.IsNegative() {
			return Config{}, fmt.Errorf("'starting_cash' must not be negative, got %s", cash)
		}
		cfg.StartingCash = cash
	}
	for symbol, priceStr := range raw.StaticPrices {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect price for %s in 'static_prices': %w", symbol, err)
		}
		cfg.StaticPrices[symbol] = price
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
