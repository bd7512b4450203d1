package arbitrage

import (
	"fmt"

	"github.com/predixlabs/crossarb/pkg/types"
	"github.com/shopspring/decimal"
)

// nearZeroMargin is the band below which a valid result is flagged as
// marginal. Half a cent per contract leaves nothing after slippage.
var nearZeroMargin = decimal.NewFromFloat(0.005)

// Validate sanity-checks a computed result. Out-of-bounds prices and a total
// cost at or above the guaranteed payout are hard errors; a near-zero margin
// is a warning only.
func Validate(r Result) ([]string, error) {
	for _, leg := range r.Legs {
		if leg.AskPrice.IsNegative() {
			return nil, &types.ValidationError{
				Field:  fmt.Sprintf("%s/%s", leg.Venue, leg.Side),
				Reason: "negative price",
			}
		}
		if leg.AskPrice.GreaterThan(one) {
			return nil, &types.ValidationError{
				Field:  fmt.Sprintf("%s/%s", leg.Venue, leg.Side),
				Reason: "price above 1.00",
			}
		}
	}

	if r.TotalCost.GreaterThanOrEqual(one) {
		return nil, &types.ValidationError{
			Field:  "total_cost",
			Reason: "cost meets or exceeds guaranteed payout",
		}
	}

	var warnings []string
	if r.ProfitMargin.LessThan(nearZeroMargin) {
		warnings = append(warnings, fmt.Sprintf(
			"margin %s is near zero, unlikely to survive slippage", r.ProfitMargin))
	}

	return warnings, nil
}
