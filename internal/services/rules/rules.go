// Package rules validates trade orders against market-class trading rules.
package rules

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/agenttrade/ledger/internal/domain"
)

// Order is one buy or sell request submitted for validation.
type Order struct {
	Action domain.Action
	Symbol string
	Amount decimal.Decimal
}

// Engine is a pure validator: it performs no I/O, never mutates the state it
// is given, and on acceptance returns a freshly computed next snapshot. The
// price is supplied by the caller.
type Engine struct {
	classifier *domain.Classifier
}

// NewEngine creates a rule engine dispatching on the classifier's classes.
func NewEngine(classifier *domain.Classifier) *Engine {
	if classifier == nil {
		classifier = domain.NewClassifier()
	}
	return &Engine{classifier: classifier}
}

// Validate checks order against the latest committed record at price on
// tradeDate and returns the computed next snapshot.
func (e *Engine) Validate(order Order, last domain.LedgerRecord, tradeDate string, price decimal.Decimal) (domain.Snapshot, error) {
	rs := e.classifier.Classify(order.Symbol).Rules()

	if err := checkAmount(rs, order); err != nil {
		return domain.Snapshot{}, err
	}
	if !price.IsPositive() {
		return domain.Snapshot{}, errors.Errorf("non-positive price %s for %s", price, order.Symbol)
	}

	switch order.Action {
	case domain.ActionBuy:
		return applyBuy(order, last, tradeDate, price)
	case domain.ActionSell:
		return applySell(rs, order, last, tradeDate, price)
	default:
		return domain.Snapshot{}, errors.Errorf("action %q is not tradable", order.Action)
	}
}

func checkAmount(rs domain.RuleSet, order Order) error {
	if !order.Amount.IsPositive() {
		return &domain.Rejection{
			Kind:   domain.RejectLotSize,
			Symbol: order.Symbol,
			Detail: fmt.Sprintf("amount %s must be positive", order.Amount),
		}
	}

	if !order.Amount.Truncate(rs.QuantityPrecision).Equal(order.Amount) {
		return &domain.Rejection{
			Kind:   domain.RejectLotSize,
			Symbol: order.Symbol,
			Detail: fmt.Sprintf("amount %s carries more than %d decimal places", order.Amount, rs.QuantityPrecision),
		}
	}

	if rs.LotSize.IsPositive() && !order.Amount.Mod(rs.LotSize).IsZero() {
		return &domain.Rejection{
			Kind:     domain.RejectLotSize,
			Symbol:   order.Symbol,
			Required: rs.LotSize,
			Detail:   fmt.Sprintf("amount %s is not a multiple of lot size %s", order.Amount, rs.LotSize),
		}
	}
	return nil
}

func applyBuy(order Order, last domain.LedgerRecord, tradeDate string, price decimal.Decimal) (domain.Snapshot, error) {
	current := last.Snapshot
	cost := price.Mul(order.Amount)
	if cost.GreaterThan(current.Cash) {
		return domain.Snapshot{}, &domain.Rejection{
			Kind:      domain.RejectInsufficientFunds,
			Symbol:    order.Symbol,
			TradeDate: tradeDate,
			Required:  cost,
			Available: current.Cash,
			Detail:    fmt.Sprintf("buy needs %s, cash is %s", cost, current.Cash),
		}
	}

	next := current.Clone()
	next.Cash = next.Cash.Sub(cost)
	next.Holdings[order.Symbol] = next.Holdings[order.Symbol].Add(order.Amount)

	// the same-day acquisition ledger rolls over on the first trade of a new date
	if tradeDate != last.TradeDate {
		next.BoughtToday = make(map[string]decimal.Decimal)
	}
	next.BoughtToday[order.Symbol] = next.BoughtToday[order.Symbol].Add(order.Amount)

	return next, nil
}

func applySell(rs domain.RuleSet, order Order, last domain.LedgerRecord, tradeDate string, price decimal.Decimal) (domain.Snapshot, error) {
	current := last.Snapshot

	held, ok := current.Quantity(order.Symbol)
	if !ok {
		return domain.Snapshot{}, &domain.Rejection{
			Kind:      domain.RejectUnknownSymbol,
			Symbol:    order.Symbol,
			TradeDate: tradeDate,
			Required:  order.Amount,
			Detail:    fmt.Sprintf("%s is not held", order.Symbol),
		}
	}

	boughtToday := decimal.Zero
	if tradeDate == last.TradeDate {
		boughtToday = current.BoughtToday[order.Symbol]
	}

	// the settlement restriction applies even when total held quantity would
	// cover the sell; outright shortfalls are reported as such below
	if rs.Settlement == domain.SettleNextDay && held.GreaterThanOrEqual(order.Amount) {
		sellable := held.Sub(boughtToday)
		if sellable.LessThan(order.Amount) {
			return domain.Snapshot{}, &domain.Rejection{
				Kind:      domain.RejectSettlementRestricted,
				Symbol:    order.Symbol,
				TradeDate: tradeDate,
				Required:  order.Amount,
				Available: sellable,
				Detail:    fmt.Sprintf("%s bought on %s settles next day", boughtToday, tradeDate),
			}
		}
	}

	if held.LessThan(order.Amount) {
		return domain.Snapshot{}, &domain.Rejection{
			Kind:      domain.RejectInsufficientHoldings,
			Symbol:    order.Symbol,
			TradeDate: tradeDate,
			Required:  order.Amount,
			Available: held,
			Detail:    fmt.Sprintf("sell wants %s, holding %s", order.Amount, held),
		}
	}

	next := current.Clone()
	next.Cash = next.Cash.Add(price.Mul(order.Amount))

	remaining := held.Sub(order.Amount)
	if remaining.IsZero() {
		delete(next.Holdings, order.Symbol)
	} else {
		next.Holdings[order.Symbol] = remaining
	}

	if tradeDate != last.TradeDate {
		next.BoughtToday = make(map[string]decimal.Decimal)
	} else if bt := next.BoughtToday[order.Symbol]; bt.GreaterThan(remaining) {
		// same-day buys sold back (T0 classes) no longer count as acquired
		if remaining.IsZero() {
			delete(next.BoughtToday, order.Symbol)
		} else {
			next.BoughtToday[order.Symbol] = remaining
		}
	}

	return next, nil
}
