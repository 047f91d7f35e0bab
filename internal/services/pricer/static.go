package pricer

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/agenttrade/ledger/internal/domain"
)

// Static serves fixed per-symbol quotes. It backs simulation runs and tests,
// where deterministic prices matter more than live ones.
type Static struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStatic creates a static pricer preloaded with the given quotes.
func NewStatic(prices map[string]decimal.Decimal) *Static {
	table := make(map[string]decimal.Decimal, len(prices))
	for symbol, price := range prices {
		table[symbol] = price
	}
	return &Static{prices: table}
}

// SetPrice installs or replaces the quote for symbol.
func (p *Static) SetPrice(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

// GetPrice returns the fixed quote for symbol.
func (p *Static) GetPrice(_ context.Context, symbol, _ string) (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	price, ok := p.prices[symbol]
	if !ok {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrPriceNotFound, "symbol %s", symbol)
	}
	return price, nil
}
