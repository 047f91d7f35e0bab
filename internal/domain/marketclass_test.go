package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		symbol   string
		expected MarketClass
	}{
		{"AAPL", MarketEquityT0},
		{"MSFT", MarketEquityT0},
		{"600519.SS", MarketEquityT1},
		{"000001.SZ", MarketEquityT1},
		{"430047.BJ", MarketEquityT1},
		{"BTC-USD", MarketCrypto},
		{"ETH-USDT", MarketCrypto},
		{"SOL-BTC", MarketCrypto},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(tt.symbol))
		})
	}
}

func TestMarketClass_Rules(t *testing.T) {
	t1 := MarketEquityT1.Rules()
	assert.True(t, t1.LotSize.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, SettleNextDay, t1.Settlement)
	assert.Equal(t, SessionBounded, t1.Session)

	t0 := MarketEquityT0.Rules()
	assert.True(t, t0.LotSize.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, SettleSameDay, t0.Settlement)

	crypto := MarketCrypto.Rules()
	assert.False(t, crypto.LotSize.IsPositive())
	assert.Equal(t, int32(4), crypto.QuantityPrecision)
	assert.Equal(t, SessionContinuous, crypto.Session)
}
