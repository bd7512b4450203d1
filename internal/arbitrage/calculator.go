package arbitrage

import (
	"sort"
	"time"

	"github.com/predixlabs/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Leg is one side of a directional combination: a contract bought on one venue.
type Leg struct {
	Venue    types.Venue     `json:"venue"`
	MarketID string          `json:"market_id"`
	Side     types.Side      `json:"side"`
	AskPrice decimal.Decimal `json:"ask_price"`
	Fee      decimal.Decimal `json:"fee"`
}

// Result is the profit/cost/fee breakdown for one directional combination.
// Valid implies TotalCost < 1, the guaranteed payout.
type Result struct {
	Legs          [2]Leg          `json:"legs"`
	Cost          decimal.Decimal `json:"cost"`           // sum of leg asks
	TotalFees     decimal.Decimal `json:"total_fees"`     // sum of leg fees
	TotalCost     decimal.Decimal `json:"total_cost"`     // cost + fees
	ProfitMargin  decimal.Decimal `json:"profit_margin"`  // 1 - total cost, per contract
	ProfitPercent decimal.Decimal `json:"profit_percent"` // margin / total cost * 100
	BreakEven     decimal.Decimal `json:"break_even"`
	Valid         bool            `json:"valid"`
}

// QuotePair holds the two venue quotes for a matched market pair.
type QuotePair struct {
	Pair   types.CrossExchangePair
	QuoteA types.Quote
	QuoteB types.Quote
}

// Config holds calculator configuration.
type Config struct {
	// SafetyMargin shrinks the validity bound: valid requires
	// totalCost < 1 - SafetyMargin.
	SafetyMargin decimal.Decimal
	Fees         FeeSchedule
	Logger       *zap.Logger
}

// Calculator produces arbitrage results from quote pairs using exact decimal
// arithmetic. Binary floats misclassify marginal opportunities at cent level,
// so nothing in here touches float64 until presentation.
type Calculator struct {
	safetyMargin decimal.Decimal
	fees         FeeSchedule
	logger       *zap.Logger
}

// New creates a calculator. Fails on negative safety margin or fee components.
func New(cfg Config) (*Calculator, error) {
	if cfg.SafetyMargin.IsNegative() {
		return nil, &types.ConfigurationError{
			Setting: "safety-margin",
			Reason:  "must be non-negative",
		}
	}
	err := cfg.Fees.Validate()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		safetyMargin: cfg.SafetyMargin,
		fees:         cfg.Fees,
		logger:       logger,
	}, nil
}

// Calculate returns one Result per directional combination for the pair,
// sorted descending by profit percent. Ties keep insertion order.
func (c *Calculator) Calculate(qp QuotePair) ([]Result, error) {
	start := time.Now()
	defer func() {
		CalcDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	err := qp.QuoteA.Validate()
	if err != nil {
		return nil, err
	}
	err = qp.QuoteB.Validate()
	if err != nil {
		return nil, err
	}

	// The two directional combinations for a binary pair: buy YES on A with
	// NO on B, and the mirror.
	directions := [][2]types.Side{
		{types.SideYes, types.SideNo},
		{types.SideNo, types.SideYes},
	}

	results := make([]Result, 0, len(directions))
	for _, dir := range directions {
		legA := c.newLeg(qp.QuoteA, dir[0])
		legB := c.newLeg(qp.QuoteB, dir[1])
		if legA == nil || legB == nil {
			// No offer on one side of this direction.
			continue
		}
		results = append(results, c.combine(*legA, *legB))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ProfitPercent.GreaterThan(results[j].ProfitPercent)
	})

	for i := range results {
		if results[i].Valid {
			ResultsValidTotal.Inc()
		}
	}

	return results, nil
}

// newLeg builds a leg for buying side on the quoted venue, nil when the book
// has no ask on that side.
func (c *Calculator) newLeg(q types.Quote, side types.Side) *Leg {
	ask := q.Level(side).Ask
	if !ask.IsPositive() {
		return nil
	}
	return &Leg{
		Venue:    q.Venue,
		MarketID: q.MarketID,
		Side:     side,
		AskPrice: ask,
		Fee:      c.fees.For(q.Venue).LegFee(ask),
	}
}

func (c *Calculator) combine(legA, legB Leg) Result {
	cost := legA.AskPrice.Add(legB.AskPrice)
	fees := legA.Fee.Add(legB.Fee)
	totalCost := cost.Add(fees)

	margin := one.Sub(totalCost)
	profitPercent := decimal.Zero
	if totalCost.IsPositive() {
		profitPercent = margin.Div(totalCost).Mul(hundred)
	}

	valid := totalCost.LessThan(one.Sub(c.safetyMargin))

	return Result{
		Legs:          [2]Leg{legA, legB},
		Cost:          cost,
		TotalFees:     fees,
		TotalCost:     totalCost,
		ProfitMargin:  margin,
		ProfitPercent: profitPercent,
		BreakEven:     totalCost,
		Valid:         valid,
	}
}
