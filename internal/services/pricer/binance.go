package pricer

import (
	"context"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/agenttrade/ledger/internal/domain"
)

// Binance quotes current spot prices from the Binance ticker API.
type Binance struct {
	client *binance.Client
}

// NewBinance creates a Binance-backed pricer.
func NewBinance(client *binance.Client) *Binance {
	return &Binance{client: client}
}

// GetPrice returns the latest spot price for symbol. Ledger symbols use a
// dash between base and quote ("BTC-USDT"); the exchange wants them fused.
func (p *Binance) GetPrice(ctx context.Context, symbol, _ string) (decimal.Decimal, error) {
	exchangeSymbol := strings.ReplaceAll(symbol, "-", "")

	prices, err := p.client.NewListPricesService().Symbol(exchangeSymbol).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "binance prices for %s", symbol)
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrPriceNotFound, "binance has no quote for %s", symbol)
	}

	return decimal.NewFromString(prices[0].Price)
}
