// Command ledgerd runs the agent trading ledger service: an HTTP API that
// lets external reasoning agents buy and sell against durable per-identity
// position ledgers with market-rule validation and crash-consistent writes.
//
// Usage:
//
//	ledgerd --config config.yaml
//	ledgerd (runs with defaults: static prices, data under ./data)
//
// Optional environment variables (also loaded from .env):
//
//	LEDGER_API_KEY — shared API key protecting the HTTP endpoints
//	BINANCE_API_KEY, BINANCE_API_SECRET — for the binance price source
//	BYBIT_API_KEY, BYBIT_API_SECRET — for the bybit price source
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/agenttrade/ledger/config"
	"github.com/agenttrade/ledger/internal/auth"
	"github.com/agenttrade/ledger/internal/domain"
	"github.com/agenttrade/ledger/internal/locker"
	"github.com/agenttrade/ledger/internal/services"
	"github.com/agenttrade/ledger/internal/services/calendar"
	"github.com/agenttrade/ledger/internal/services/pricer"
	ledgerstore "github.com/agenttrade/ledger/internal/storage/ledger"
	"github.com/agenttrade/ledger/internal/web"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	locks, err := locker.NewManager(filepath.Join(cfg.DataDir, "locks"), cfg.LockStaleAfter, logger)
	if err != nil {
		logger.Fatal("init lock manager", zap.Error(err))
	}

	store := ledgerstore.NewStore(filepath.Join(cfg.DataDir, "ledgers"), logger)
	defer store.Close()

	priceSource, err := buildPricer(cfg)
	if err != nil {
		logger.Fatal("init price source", zap.Error(err))
	}

	trades, err := services.NewTradeService(
		logger,
		locks,
		store,
		domain.NewClassifier(),
		priceSource,
		calendar.NewWeekday(),
		cfg.LockTimeout,
		cfg.StartingCash,
	)
	if err != nil {
		logger.Fatal("init trade service", zap.Error(err))
	}

	keys := auth.FromEnv()
	if !keys.Enabled() {
		logger.Warn("LEDGER_API_KEY is not set, API authentication is disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(cfg.ListenAddr, trades, store, keys, logger)
	if err := server.Start(ctx); err != nil {
		logger.Fatal("ledger API server", zap.Error(err))
	}
}

func buildPricer(cfg config.Config) (pricer.Pricer, error) {
	switch cfg.PriceSource {
	case "binance":
		client := binance.NewClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"))
		return pricer.NewBinance(client), nil
	case "bybit":
		client := bybit.NewClient().WithAuth(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"))
		return pricer.NewBybit(client), nil
	default:
		return pricer.NewStatic(cfg.StaticPrices), nil
	}
}
