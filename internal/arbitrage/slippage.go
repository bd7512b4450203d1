package arbitrage

import (
	"github.com/predixlabs/crossarb/pkg/types"
	"github.com/shopspring/decimal"
)

// maxSlippagePenalty caps the estimate when an order would exhaust the book.
var maxSlippagePenalty = decimal.NewFromFloat(0.10)

// EstimateSlippage estimates per-contract slippage for an order of the given
// size against the quoted depth. It walks the levels, fills as much as each
// level offers, and returns the size-weighted premium over the top of book.
// Returns zero for empty depth and the capped penalty when size exceeds the
// total depth.
func EstimateSlippage(size decimal.Decimal, depth []types.DepthLevel) decimal.Decimal {
	if len(depth) == 0 || !size.IsPositive() {
		return decimal.Zero
	}

	best := depth[0].Price
	remaining := size
	weightedCost := decimal.Zero

	for _, level := range depth {
		if !remaining.IsPositive() {
			break
		}
		fill := level.Size
		if fill.GreaterThan(remaining) {
			fill = remaining
		}
		weightedCost = weightedCost.Add(level.Price.Mul(fill))
		remaining = remaining.Sub(fill)
	}

	if remaining.IsPositive() {
		return maxSlippagePenalty
	}

	avg := weightedCost.Div(size)
	slip := avg.Sub(best)
	if slip.IsNegative() {
		return decimal.Zero
	}
	if slip.GreaterThan(maxSlippagePenalty) {
		return maxSlippagePenalty
	}
	return slip
}
