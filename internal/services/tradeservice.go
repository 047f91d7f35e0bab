// Package services wires the lock manager, ledger store, rule engine and
// price source into transactional trade operations.
package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/agenttrade/ledger/internal/domain"
	"github.com/agenttrade/ledger/internal/locker"
	"github.com/agenttrade/ledger/internal/services/calendar"
	"github.com/agenttrade/ledger/internal/services/pricer"
	"github.com/agenttrade/ledger/internal/services/rules"
	"github.com/agenttrade/ledger/pkg/retrier"
)

const (
	// DefaultLockTimeout bounds how long a trade waits for its identity lock.
	DefaultLockTimeout = 5 * time.Second

	priceRetryInterval = 200 * time.Millisecond
	priceRetryMax      = 2 * time.Second
	priceRetryAttempts = 3
)

// ledgerStore is the persistence surface the coordinator needs.
type ledgerStore interface {
	ReadLatest(identity string) (domain.LedgerRecord, error)
	Append(identity string, rec domain.LedgerRecord) error
}

// TradeService executes buy and sell transactions against per-identity
// ledgers. The entire critical section of a trade — read latest state,
// fetch price, validate, append — runs under one continuously-held identity
// lock, so concurrent callers serialize and validation never works from a
// stale snapshot. The price fetch deliberately sits inside the lock window
// for the same reason.
type TradeService struct {
	locks        *locker.Manager
	store        ledgerStore
	engine       *rules.Engine
	classifier   *domain.Classifier
	pricer       pricer.Pricer
	calendar     calendar.Calendar
	priceRetrier *retrier.Retrier
	logger       *zap.Logger
	lockTimeout  time.Duration
	startingCash decimal.Decimal
}

// NewTradeService creates the transaction coordinator. startingCash seeds an
// identity's ledger on its first trade.
func NewTradeService(
	logger *zap.Logger,
	locks *locker.Manager,
	store ledgerStore,
	classifier *domain.Classifier,
	priceSource pricer.Pricer,
	cal calendar.Calendar,
	lockTimeout time.Duration,
	startingCash decimal.Decimal,
) (*TradeService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		return nil, errors.New("lock manager is required")
	}
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	if priceSource == nil {
		return nil, errors.New("price source is required")
	}
	if cal == nil {
		cal = calendar.NewWeekday()
	}
	if classifier == nil {
		classifier = domain.NewClassifier()
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if startingCash.IsNegative() {
		return nil, errors.Errorf("starting cash %s must not be negative", startingCash)
	}

	return &TradeService{
		locks:        locks,
		store:        store,
		engine:       rules.NewEngine(classifier),
		classifier:   classifier,
		pricer:       priceSource,
		calendar:     cal,
		priceRetrier: retrier.New(priceRetryInterval, priceRetryMax, priceRetryAttempts),
		logger:       logger,
		lockTimeout:  lockTimeout,
		startingCash: startingCash,
	}, nil
}

// Buy purchases amount of symbol for the identity on the given trade date
// (empty date means the current trading date) and returns the committed
// post-trade snapshot.
func (s *TradeService) Buy(ctx context.Context, identity, symbol string, amount decimal.Decimal, date string) (domain.Snapshot, error) {
	return s.execute(ctx, identity, rules.Order{Action: domain.ActionBuy, Symbol: symbol, Amount: amount}, date)
}

// Sell liquidates amount of symbol for the identity on the given trade date
// and returns the committed post-trade snapshot.
func (s *TradeService) Sell(ctx context.Context, identity, symbol string, amount decimal.Decimal, date string) (domain.Snapshot, error) {
	return s.execute(ctx, identity, rules.Order{Action: domain.ActionSell, Symbol: symbol, Amount: amount}, date)
}

// GetPosition returns the latest committed snapshot without taking the
// identity lock. A concurrent writer may commit right after the read, so the
// result can be momentarily stale, but it is always a fully consistent
// committed state.
func (s *TradeService) GetPosition(_ context.Context, identity string) (domain.Snapshot, error) {
	rec, err := s.store.ReadLatest(identity)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return rec.Snapshot, nil
}

func (s *TradeService) execute(ctx context.Context, identity string, order rules.Order, date string) (domain.Snapshot, error) {
	if date == "" {
		date = s.calendar.CurrentTradingDate()
	}

	handle, err := s.locks.Acquire(identity, s.lockTimeout)
	if err != nil {
		return domain.Snapshot{}, err
	}
	// the lock must drop on every exit path: success, rejection or failure
	defer func() {
		if releaseErr := handle.Release(); releaseErr != nil {
			s.logger.Error("failed to release identity lock",
				zap.String("identity", identity), zap.Error(releaseErr))
		}
	}()

	last, err := s.store.ReadLatest(identity)
	if errors.Is(err, domain.ErrNoPriorPosition) {
		last, err = s.seedLedger(identity, date)
	}
	if err != nil {
		return domain.Snapshot{}, err
	}

	class := s.classifier.Classify(order.Symbol)
	if class.Rules().Session == domain.SessionBounded {
		open, calErr := s.calendar.IsTradingDay(date, class)
		if calErr != nil {
			return domain.Snapshot{}, calErr
		}
		if !open {
			return domain.Snapshot{}, &domain.Rejection{
				Kind:      domain.RejectMarketClosed,
				Symbol:    order.Symbol,
				TradeDate: date,
				Detail:    "not a trading day for " + string(class),
			}
		}
	}

	price, err := retrier.DoWithData(s.priceRetrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		p, priceErr := s.pricer.GetPrice(ctx, order.Symbol, date)
		if priceErr != nil && errors.Is(priceErr, domain.ErrPriceNotFound) {
			// a missing quote will not appear on retry; do not wedge the
			// identity lock with backoff
			return p, retrier.Permanent(priceErr)
		}
		return p, priceErr
	})
	if err != nil {
		return domain.Snapshot{}, errors.Wrapf(err, "fetch price for %s", order.Symbol)
	}

	next, err := s.engine.Validate(order, last, date, price)
	if err != nil {
		if rej, ok := domain.AsRejection(err); ok {
			s.logger.Info("trade rejected",
				zap.String("identity", identity),
				zap.String("symbol", order.Symbol),
				zap.String("kind", string(rej.Kind)),
				zap.String("detail", rej.Detail))
		}
		return domain.Snapshot{}, err
	}

	rec := domain.LedgerRecord{
		Seq:       last.Seq + 1,
		TradeDate: date,
		Action:    order.Action,
		Symbol:    order.Symbol,
		Amount:    order.Amount,
		Snapshot:  next,
	}
	if err := s.store.Append(identity, rec); err != nil {
		// fail closed: the computed snapshot never reaches the caller as
		// truth, only the ledger decides what the position is
		s.logger.Error("ledger append failed",
			zap.String("identity", identity),
			zap.Uint64("seq", rec.Seq),
			zap.Error(err))
		return domain.Snapshot{}, err
	}

	s.logger.Info("trade recorded",
		zap.String("identity", identity),
		zap.Uint64("seq", rec.Seq),
		zap.String("action", string(order.Action)),
		zap.String("symbol", order.Symbol),
		zap.String("amount", order.Amount.String()),
		zap.String("price", price.String()),
		zap.String("cash", next.Cash.String()))

	return next, nil
}

// seedLedger opens an identity's ledger with the configured starting cash.
// It runs under the identity lock of the first trade.
func (s *TradeService) seedLedger(identity, date string) (domain.LedgerRecord, error) {
	rec := domain.LedgerRecord{
		Seq:       1,
		TradeDate: date,
		Action:    domain.ActionNone,
		Amount:    decimal.Zero,
		Snapshot:  domain.NewSnapshot(s.startingCash),
	}
	if err := s.store.Append(identity, rec); err != nil {
		return domain.LedgerRecord{}, err
	}

	s.logger.Info("ledger opened",
		zap.String("identity", identity),
		zap.String("starting_cash", s.startingCash.String()))
	return rec, nil
}
