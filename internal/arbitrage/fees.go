package arbitrage

import (
	"github.com/predixlabs/crossarb/pkg/types"
	"github.com/shopspring/decimal"
)

// FeeStructure is a per-venue fee model. Supplied externally, never mutated
// by the calculator.
type FeeStructure struct {
	// Flat is charged per contract regardless of price.
	Flat decimal.Decimal
	// PercentOfTrade is charged on the leg's trade value (fraction, 0.02 = 2%).
	PercentOfTrade decimal.Decimal
	// PercentOfProfit is charged on the winning leg's payout profit
	// (fraction of 1 - ask).
	PercentOfProfit decimal.Decimal
}

// LegFee returns the worst-case fee for buying one contract at the given ask.
// The profit component assumes this leg wins, since a riskless position must
// remain profitable whichever side resolves.
func (f FeeStructure) LegFee(ask decimal.Decimal) decimal.Decimal {
	fee := f.Flat
	fee = fee.Add(f.PercentOfTrade.Mul(ask))
	fee = fee.Add(f.PercentOfProfit.Mul(one.Sub(ask)))
	return fee
}

// FeeSchedule maps venues to their fee models.
type FeeSchedule map[types.Venue]FeeStructure

// DefaultFeeSchedule carries each venue's published fee model: Kalshi a
// flat cent per contract, Polymarket 2% of winning-side profit.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		types.VenueKalshi:     {Flat: decimal.NewFromFloat(0.01)},
		types.VenuePolymarket: {PercentOfProfit: decimal.NewFromFloat(0.02)},
	}
}

// For returns the fee structure for a venue, zero fees when unconfigured.
func (s FeeSchedule) For(venue types.Venue) FeeStructure {
	if s == nil {
		return FeeStructure{}
	}
	return s[venue]
}

// Validate rejects negative fee components.
func (s FeeSchedule) Validate() error {
	for venue, f := range s {
		if f.Flat.IsNegative() || f.PercentOfTrade.IsNegative() || f.PercentOfProfit.IsNegative() {
			return &types.ConfigurationError{
				Setting: "fees." + string(venue),
				Reason:  "fee components must be non-negative",
			}
		}
	}
	return nil
}
