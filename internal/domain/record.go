package domain

import "github.com/shopspring/decimal"

// DateLayout is the canonical trade date encoding used across the ledger.
const DateLayout = "2006-01-02"

// LedgerRecord is one immutable entry of an identity's ledger. Each record
// is denormalized: it carries the complete post-trade snapshot, so current
// state is always reconstructed from the single most recent record instead
// of replaying history.
type LedgerRecord struct {
	Seq       uint64          `json:"seq"`
	TradeDate string          `json:"trade_date"`
	Action    Action          `json:"action"`
	Symbol    string          `json:"symbol,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Snapshot  Snapshot        `json:"snapshot"`
}
