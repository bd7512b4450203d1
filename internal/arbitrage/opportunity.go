package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/predixlabs/crossarb/pkg/types"
)

// Opportunity is the unit persisted and ranked: a matched pair, the best
// directional result for it, and the resolution alignment that gates it.
// Never mutated after creation; a new scan produces new records.
type Opportunity struct {
	ID         string                    `json:"id"`
	Pair       types.CrossExchangePair   `json:"pair"`
	Best       Result                    `json:"best"`
	Alignment  types.ResolutionAlignment `json:"alignment"`
	Confidence float64                   `json:"confidence"` // matcher correlation score
	MaxSize    float64                   `json:"max_size"`   // depth-bounded position size (USD)
	DetectedAt time.Time                 `json:"detected_at"`
	TTL        time.Duration             `json:"ttl"`
}

// NewOpportunity assembles an opportunity record.
func NewOpportunity(
	pair types.CrossExchangePair,
	best Result,
	alignment types.ResolutionAlignment,
	maxSize float64,
	ttl time.Duration,
) *Opportunity {
	return &Opportunity{
		ID:         uuid.New().String(),
		Pair:       pair,
		Best:       best,
		Alignment:  alignment,
		Confidence: pair.CorrelationScore,
		MaxSize:    maxSize,
		DetectedAt: time.Now(),
		TTL:        ttl,
	}
}

// ProfitPercent returns the best result's relative profit as a float for
// ranking and presentation.
func (o *Opportunity) ProfitPercent() float64 {
	f, _ := o.Best.ProfitPercent.Float64()
	return f
}

// Expired reports whether the opportunity's TTL has elapsed.
func (o *Opportunity) Expired(now time.Time) bool {
	return now.After(o.DetectedAt.Add(o.TTL))
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] %s<->%s cost=%s profit=%s%% score=%d tradeable=%v",
		o.ID[:8],
		o.Pair.MarketA.ID,
		o.Pair.MarketB.ID,
		o.Best.TotalCost,
		o.Best.ProfitPercent.StringFixed(2),
		o.Alignment.Score,
		o.Alignment.Tradeable,
	)
}
