package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenttrade/ledger/internal/domain"
)

func TestWeekday_IsTradingDay(t *testing.T) {
	c := NewWeekday()

	tests := []struct {
		name  string
		date  string
		class domain.MarketClass
		open  bool
	}{
		{"equity on a monday", "2025-06-02", domain.MarketEquityT0, true},
		{"equity on a friday", "2025-06-06", domain.MarketEquityT1, true},
		{"equity on a saturday", "2025-06-07", domain.MarketEquityT0, false},
		{"equity on a sunday", "2025-06-08", domain.MarketEquityT1, false},
		{"crypto on a saturday", "2025-06-07", domain.MarketCrypto, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open, err := c.IsTradingDay(tt.date, tt.class)
			require.NoError(t, err)
			assert.Equal(t, tt.open, open)
		})
	}
}

func TestWeekday_IsTradingDayRejectsBadDate(t *testing.T) {
	c := NewWeekday()

	_, err := c.IsTradingDay("02/06/2025", domain.MarketEquityT0)
	assert.Error(t, err)
}

func TestWeekday_CurrentTradingDate(t *testing.T) {
	c := &Weekday{now: func() time.Time {
		return time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC)
	}}

	assert.Equal(t, "2025-06-02", c.CurrentTradingDate())
}
