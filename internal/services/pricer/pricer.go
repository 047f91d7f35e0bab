// Package pricer resolves market prices for trade validation.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"
)

// Pricer provides the price a trade is validated and settled at. Live
// sources quote the current price and ignore date; historical sources
// honor it.
type Pricer interface {
	GetPrice(ctx context.Context, symbol, date string) (decimal.Decimal, error)
}
