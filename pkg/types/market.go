package types

import (
	"time"
)

// Venue identifies a prediction-market exchange.
type Venue string

const (
	VenueKalshi     Venue = "kalshi"
	VenuePolymarket Venue = "polymarket"
)

// Market is an immutable snapshot of a prediction market on one venue.
// Refreshed by periodic re-fetch, never mutated in place.
type Market struct {
	Venue          Venue      `json:"venue"`
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	ResolutionText string     `json:"resolution_text"`
	Tags           []string   `json:"tags,omitempty"`
	CloseTime      *time.Time `json:"close_time,omitempty"`
	Active         bool       `json:"active"`
	FetchedAt      time.Time  `json:"fetched_at"`
}

// HasCloseTime reports whether the market carries a close timestamp.
func (m *Market) HasCloseTime() bool {
	return m.CloseTime != nil && !m.CloseTime.IsZero()
}

// DaysToClose returns days until the market closes, 0 when unknown or past.
func (m *Market) DaysToClose(now time.Time) float64 {
	if !m.HasCloseTime() {
		return 0
	}
	d := m.CloseTime.Sub(now).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// CrossExchangePair is a candidate equivalent market pair across two venues,
// produced by the matcher. Read-only once created; a re-match produces a new pair.
type CrossExchangePair struct {
	MarketA          Market    `json:"market_a"`
	MarketB          Market    `json:"market_b"`
	CorrelationScore float64   `json:"correlation_score"` // in [0,1]
	Uncertain        bool      `json:"uncertain"`         // kept despite scoring below the minimum
	MatchedAt        time.Time `json:"matched_at"`
}

// Key returns a stable identifier for the pair, invariant under venue order.
func (p *CrossExchangePair) Key() string {
	a := string(p.MarketA.Venue) + ":" + p.MarketA.ID
	b := string(p.MarketB.Venue) + ":" + p.MarketB.ID
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

// MarketFilter narrows venue market listings.
type MarketFilter struct {
	Category   string
	ActiveOnly bool
	Limit      int
}
