package domain

import "github.com/shopspring/decimal"

// Snapshot is the complete position state after a ledger record is applied.
// Cash lives in its own field, never as a reserved key inside Holdings, so a
// symbol can never collide with the balance.
type Snapshot struct {
	Cash     decimal.Decimal            `json:"cash"`
	Holdings map[string]decimal.Decimal `json:"holdings"`
	// BoughtToday tracks, per symbol, the quantity acquired on the trade date
	// of the record carrying this snapshot. It is what settlement-restricted
	// classes subtract from held quantity when validating a same-day sell.
	BoughtToday map[string]decimal.Decimal `json:"bought_today,omitempty"`
}

// NewSnapshot returns a snapshot holding only cash.
func NewSnapshot(cash decimal.Decimal) Snapshot {
	return Snapshot{
		Cash:        cash,
		Holdings:    make(map[string]decimal.Decimal),
		BoughtToday: make(map[string]decimal.Decimal),
	}
}

// Clone returns a deep copy. The rule engine computes next states on copies
// so a committed snapshot is never mutated in place.
func (s Snapshot) Clone() Snapshot {
	next := Snapshot{
		Cash:        s.Cash,
		Holdings:    make(map[string]decimal.Decimal, len(s.Holdings)),
		BoughtToday: make(map[string]decimal.Decimal, len(s.BoughtToday)),
	}
	for symbol, qty := range s.Holdings {
		next.Holdings[symbol] = qty
	}
	for symbol, qty := range s.BoughtToday {
		next.BoughtToday[symbol] = qty
	}
	return next
}

// Quantity returns the held quantity for symbol and whether it is held at all.
func (s Snapshot) Quantity(symbol string) (decimal.Decimal, bool) {
	qty, ok := s.Holdings[symbol]
	return qty, ok
}
