package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is one leg of a binary contract.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Opposite returns the other side of a binary contract.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// DepthLevel is one price level of an order book.
type DepthLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// PriceLevel is the two-sided top of book for one contract side.
type PriceLevel struct {
	Bid   decimal.Decimal `json:"bid"`
	Ask   decimal.Decimal `json:"ask"`
	Mid   decimal.Decimal `json:"mid"`
	Depth []DepthLevel    `json:"depth,omitempty"`
}

// Quote is a point-in-time two-sided price snapshot for a binary market.
type Quote struct {
	Venue     Venue      `json:"venue"`
	MarketID  string     `json:"market_id"`
	Timestamp time.Time  `json:"timestamp"`
	Yes       PriceLevel `json:"yes"`
	No        PriceLevel `json:"no"`
}

// Level returns the price level for the given side.
func (q *Quote) Level(side Side) PriceLevel {
	if side == SideYes {
		return q.Yes
	}
	return q.No
}

// Validate checks the 0 <= bid <= ask <= 1 invariant on both sides.
func (q *Quote) Validate() error {
	for _, l := range []struct {
		side  Side
		level PriceLevel
	}{{SideYes, q.Yes}, {SideNo, q.No}} {
		if l.level.Bid.IsNegative() {
			return &ValidationError{Field: string(l.side), Reason: "negative bid price"}
		}
		if l.level.Bid.GreaterThan(l.level.Ask) {
			return &ValidationError{Field: string(l.side), Reason: "bid above ask"}
		}
		if l.level.Ask.GreaterThan(decimal.NewFromInt(1)) {
			return &ValidationError{Field: string(l.side), Reason: "ask above 1.00"}
		}
	}
	return nil
}

// Age returns how old the quote is relative to now.
func (q *Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.Timestamp)
}

// PriceUpdate is a single inbound price event from a streaming feed.
type PriceUpdate struct {
	Venue     Venue           `json:"venue"`
	MarketID  string          `json:"market_id"`
	Side      Side            `json:"side"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Timestamp time.Time       `json:"timestamp"`
}

// ResolutionAlignment scores how likely two markets resolve identically,
// independent of price. Any non-empty Risks list forces Tradeable false.
type ResolutionAlignment struct {
	Score           int      `json:"score"` // 0-100
	Level           string   `json:"level"` // high | medium | low
	Tradeable       bool     `json:"tradeable"`
	TimingMatch     bool     `json:"timing_match"`
	SourcesMatch    bool     `json:"sources_match"`
	ConditionsMatch bool     `json:"conditions_match"`
	Risks           []string `json:"risks,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}
