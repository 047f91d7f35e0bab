package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_CloneIsDeep(t *testing.T) {
	orig := NewSnapshot(decimal.NewFromInt(1000))
	orig.Holdings["AAPL"] = decimal.NewFromInt(10)
	orig.BoughtToday["AAPL"] = decimal.NewFromInt(10)

	clone := orig.Clone()
	clone.Cash = decimal.Zero
	clone.Holdings["AAPL"] = decimal.NewFromInt(99)
	clone.BoughtToday["AAPL"] = decimal.NewFromInt(99)

	assert.True(t, orig.Cash.Equal(decimal.NewFromInt(1000)))
	assert.True(t, orig.Holdings["AAPL"].Equal(decimal.NewFromInt(10)))
	assert.True(t, orig.BoughtToday["AAPL"].Equal(decimal.NewFromInt(10)))
}

func TestSnapshot_Quantity(t *testing.T) {
	s := NewSnapshot(decimal.Zero)
	s.Holdings["AAPL"] = decimal.NewFromInt(5)

	qty, ok := s.Quantity("AAPL")
	require.True(t, ok)
	assert.True(t, qty.Equal(decimal.NewFromInt(5)))

	_, ok = s.Quantity("MSFT")
	assert.False(t, ok)
}

func TestAsRejection(t *testing.T) {
	rej := &Rejection{Kind: RejectInsufficientFunds, Detail: "broke"}

	got, ok := AsRejection(rej)
	require.True(t, ok)
	assert.Equal(t, RejectInsufficientFunds, got.Kind)

	_, ok = AsRejection(ErrLockTimeout)
	assert.False(t, ok)
}
