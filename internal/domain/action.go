// Package domain defines the core data structures of the trading ledger.
package domain

// Action is the kind of operation a ledger record captures.
type Action string

const (
	// ActionNone marks the seed record that opens an identity's ledger.
	ActionNone Action = "none"
	// ActionBuy acquires a quantity of a symbol against cash.
	ActionBuy Action = "buy"
	// ActionSell liquidates a held quantity back into cash.
	ActionSell Action = "sell"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionNone, ActionBuy, ActionSell:
		return true
	}
	return false
}
