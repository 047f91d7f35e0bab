package pricer

import (
	"context"
	"strings"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/agenttrade/ledger/internal/domain"
)

// Bybit quotes current spot prices from the Bybit V5 market API.
type Bybit struct {
	client *bybit.Client
}

// NewBybit creates a Bybit-backed pricer.
func NewBybit(client *bybit.Client) *Bybit {
	return &Bybit{client: client}
}

// GetPrice returns the latest spot price for symbol.
func (p *Bybit) GetPrice(_ context.Context, symbol, _ string) (decimal.Decimal, error) {
	exchangeSymbol := bybit.SymbolV5(strings.ReplaceAll(symbol, "-", ""))

	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &exchangeSymbol,
	})
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "bybit tickers for %s", symbol)
	}
	if len(result.Result.Spot.List) == 0 {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrPriceNotFound, "bybit has no quote for %s", symbol)
	}

	return decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
}
