package storage

import (
	"context"
	"errors"
	"time"

	"github.com/predixlabs/crossarb/internal/arbitrage"
)

// ErrNotFound is returned when a lookup matches no stored opportunity.
var ErrNotFound = errors.New("opportunity not found")

// Record is the persisted shape of a detected opportunity.
type Record struct {
	ID string `json:"id"`

	VenueA  string `json:"venue_a"`
	MarketA string `json:"market_a"`
	VenueB  string `json:"venue_b"`
	MarketB string `json:"market_b"`

	SideA string  `json:"side_a"`
	SideB string  `json:"side_b"`
	AskA  float64 `json:"ask_a"`
	AskB  float64 `json:"ask_b"`
	FeeA  float64 `json:"fee_a"`
	FeeB  float64 `json:"fee_b"`

	TotalCost     float64 `json:"total_cost"`
	ProfitMargin  float64 `json:"profit_margin"`
	ProfitPercent float64 `json:"profit_percent"`

	ResolutionScore int     `json:"resolution_score"`
	Confidence      float64 `json:"confidence"`
	MaxSize         float64 `json:"max_size"`

	DetectedAt time.Time `json:"detected_at"`
}

// Query shapes reads of stored opportunities.
type Query struct {
	// Limit bounds the result set. Zero means the default of 100.
	Limit int

	// OrderBy is "profit" or "detected_at" (the default).
	OrderBy string

	// Descending orders newest/most-profitable first. Defaults to true.
	Ascending bool
}

// Storage persists detected opportunities.
type Storage interface {
	// SaveOpportunity stores one detected opportunity.
	SaveOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error

	// GetOpportunities returns stored opportunities per the query.
	GetOpportunities(ctx context.Context, q Query) ([]*Record, error)

	// GetOpportunity returns one opportunity by ID, or ErrNotFound.
	GetOpportunity(ctx context.Context, id string) (*Record, error)

	// Close releases the underlying connection.
	Close() error
}

// toRecord flattens an opportunity into its persisted shape.
func toRecord(opp *arbitrage.Opportunity) *Record {
	a, b := opp.Best.Legs[0], opp.Best.Legs[1]
	return &Record{
		ID:              opp.ID,
		VenueA:          string(a.Venue),
		MarketA:         a.MarketID,
		VenueB:          string(b.Venue),
		MarketB:         b.MarketID,
		SideA:           string(a.Side),
		SideB:           string(b.Side),
		AskA:            opp.Best.Legs[0].AskPrice.InexactFloat64(),
		AskB:            opp.Best.Legs[1].AskPrice.InexactFloat64(),
		FeeA:            opp.Best.Legs[0].Fee.InexactFloat64(),
		FeeB:            opp.Best.Legs[1].Fee.InexactFloat64(),
		TotalCost:       opp.Best.TotalCost.InexactFloat64(),
		ProfitMargin:    opp.Best.ProfitMargin.InexactFloat64(),
		ProfitPercent:   opp.ProfitPercent(),
		ResolutionScore: opp.Alignment.Score,
		Confidence:      opp.Confidence,
		MaxSize:         opp.MaxSize,
		DetectedAt:      opp.DetectedAt,
	}
}
