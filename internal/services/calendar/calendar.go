// Package calendar supplies trading-day information per market class.
package calendar

import (
	"time"

	"github.com/pkg/errors"

	"github.com/agenttrade/ledger/internal/domain"
)

// Calendar answers whether a market class trades on a given date.
type Calendar interface {
	IsTradingDay(date string, class domain.MarketClass) (bool, error)
	CurrentTradingDate() string
}

// Weekday is a calendar where bounded-session markets trade Monday through
// Friday and continuous markets trade every day. Exchange holiday tables
// are out of scope; they would slot in behind the same interface.
type Weekday struct {
	now func() time.Time
}

// NewWeekday creates a weekday calendar running on wall-clock time.
func NewWeekday() *Weekday {
	return &Weekday{now: time.Now}
}

// IsTradingDay reports whether the class trades on date.
func (c *Weekday) IsTradingDay(date string, class domain.MarketClass) (bool, error) {
	if class.Rules().Session == domain.SessionContinuous {
		return true, nil
	}

	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return false, errors.Wrapf(err, "parse trade date %q", date)
	}
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday, nil
}

// CurrentTradingDate returns today's date in the ledger's canonical layout.
func (c *Weekday) CurrentTradingDate() string {
	return c.now().UTC().Format(domain.DateLayout)
}
