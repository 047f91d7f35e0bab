package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MarketClass tags a security with the rule set governing it.
type MarketClass string

const (
	// MarketEquityT0 covers equities sellable the same day they are bought.
	MarketEquityT0 MarketClass = "equity_t0"
	// MarketEquityT1 covers equities under a T+1 settlement restriction and
	// a 100-share lot size.
	MarketEquityT1 MarketClass = "equity_t1"
	// MarketCrypto covers continuously traded assets with fractional amounts.
	MarketCrypto MarketClass = "crypto"
)

// SettlementLag says when an acquired position becomes sellable.
type SettlementLag int

const (
	// SettleSameDay allows selling a position the day it was bought.
	SettleSameDay SettlementLag = iota
	// SettleNextDay locks same-day acquisitions until the next trade date.
	SettleNextDay
)

// Session says whether a market trades continuously or only on trading days.
type Session int

const (
	SessionContinuous Session = iota
	SessionBounded
)

// RuleSet holds the per-class parameters the rule engine enforces.
type RuleSet struct {
	Class MarketClass
	// LotSize is the minimum tradable increment; zero means unconstrained.
	LotSize decimal.Decimal
	// QuantityPrecision is the maximum number of decimal places an order
	// amount may carry. Finer-grained input is rejected, never rounded.
	QuantityPrecision int32
	Settlement        SettlementLag
	Session           Session
}

// Rules returns the rule set for the class.
func (c MarketClass) Rules() RuleSet {
	switch c {
	case MarketEquityT1:
		return RuleSet{
			Class:             c,
			LotSize:           decimal.NewFromInt(100),
			QuantityPrecision: 0,
			Settlement:        SettleNextDay,
			Session:           SessionBounded,
		}
	case MarketCrypto:
		return RuleSet{
			Class:             c,
			QuantityPrecision: 4,
			Settlement:        SettleSameDay,
			Session:           SessionContinuous,
		}
	default:
		return RuleSet{
			Class:             c,
			LotSize:           decimal.NewFromInt(1),
			QuantityPrecision: 0,
			Settlement:        SettleSameDay,
			Session:           SessionBounded,
		}
	}
}

// Classifier maps symbols to market classes through an explicit suffix
// table instead of string matching scattered across call sites.
type Classifier struct {
	suffixes []suffixRule
	fallback MarketClass
}

type suffixRule struct {
	suffix string
	class  MarketClass
}

// NewClassifier returns a classifier covering mainland-exchange equity
// suffixes and common crypto quote suffixes; everything else is treated as
// a same-day equity.
func NewClassifier() *Classifier {
	return &Classifier{
		suffixes: []suffixRule{
			{".SS", MarketEquityT1},
			{".SZ", MarketEquityT1},
			{".BJ", MarketEquityT1},
			{"-USDT", MarketCrypto},
			{"-USD", MarketCrypto},
			{"-BTC", MarketCrypto},
		},
		fallback: MarketEquityT0,
	}
}

// Classify returns the market class for symbol.
func (c *Classifier) Classify(symbol string) MarketClass {
	for _, rule := range c.suffixes {
		if strings.HasSuffix(symbol, rule.suffix) {
			return rule.class
		}
	}
	return c.fallback
}
