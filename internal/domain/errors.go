package domain

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Sentinel failures outside the validation taxonomy.
var (
	// ErrLockTimeout means the identity lock could not be acquired in time.
	// The ledger was not touched and the call is safe to retry.
	ErrLockTimeout = errors.New("identity lock acquisition timed out")
	// ErrNoPriorPosition means the identity has no ledger records yet.
	ErrNoPriorPosition = errors.New("no prior position for identity")
	// ErrWriteFailed means a record could not be durably appended. The
	// computed snapshot was discarded; callers must re-query to observe
	// ledger-confirmed state.
	ErrWriteFailed = errors.New("ledger append failed")
	// ErrReadCorrupted means a stored record failed to decode. This is fatal
	// for the identity and must surface, never be skipped.
	ErrReadCorrupted = errors.New("ledger record corrupted")
	// ErrPriceNotFound means the price source has no quote for the symbol.
	ErrPriceNotFound = errors.New("price not found")
)

// RejectionKind enumerates the validation outcomes a trade can fail with.
type RejectionKind string

const (
	RejectLotSize              RejectionKind = "lot_size_violation"
	RejectSettlementRestricted RejectionKind = "settlement_restriction"
	RejectInsufficientFunds    RejectionKind = "insufficient_funds"
	RejectInsufficientHoldings RejectionKind = "insufficient_holdings"
	RejectUnknownSymbol        RejectionKind = "unknown_symbol"
	RejectMarketClosed         RejectionKind = "market_closed"
)

// Rejection is a structured validation verdict. It is an expected outcome,
// not an internal failure: the ledger is untouched and callers branch on
// Kind and the numeric fields without parsing strings.
type Rejection struct {
	Kind      RejectionKind   `json:"kind"`
	Symbol    string          `json:"symbol,omitempty"`
	TradeDate string          `json:"trade_date,omitempty"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Detail    string          `json:"detail,omitempty"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("trade rejected (%s): %s", r.Kind, r.Detail)
}

// AsRejection unwraps err into a Rejection when it carries one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
