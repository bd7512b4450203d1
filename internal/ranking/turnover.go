package ranking

import (
	"math"
	"time"

	"github.com/predixlabs/crossarb/internal/arbitrage"
	"github.com/predixlabs/crossarb/pkg/types"
)

// StrategyPreset names a fixed set of turnover weights and thresholds.
type StrategyPreset string

const (
	StrategyConservative StrategyPreset = "conservative"
	StrategyBalanced     StrategyPreset = "balanced"
	StrategyAggressive   StrategyPreset = "aggressive"
)

// strategyParams fixes weights and gates per preset.
type strategyParams struct {
	confidenceWeight float64
	turnoverWeight   float64
	profitWeight     float64
	minConfidence    float64
	minProfit        float64 // percent
	kellyFraction    float64 // 0.5 = half-Kelly
}

var presets = map[StrategyPreset]strategyParams{
	StrategyConservative: {
		confidenceWeight: 0.5,
		turnoverWeight:   0.2,
		profitWeight:     0.3,
		minConfidence:    0.8,
		minProfit:        2.0,
		kellyFraction:    0.25,
	},
	StrategyBalanced: {
		confidenceWeight: 0.35,
		turnoverWeight:   0.35,
		profitWeight:     0.3,
		minConfidence:    0.65,
		minProfit:        1.0,
		kellyFraction:    0.5,
	},
	StrategyAggressive: {
		confidenceWeight: 0.2,
		turnoverWeight:   0.45,
		profitWeight:     0.35,
		minConfidence:    0.5,
		minProfit:        0.5,
		kellyFraction:    1.0,
	},
}

// TurnoverScore is the capital-turnover assessment of one live opportunity.
type TurnoverScore struct {
	OpportunityID    string  `json:"opportunity_id"`
	Score            float64 `json:"score"`
	DaysToResolution float64 `json:"days_to_resolution"`
	TurnoverPerYear  float64 `json:"turnover_per_year"`
	AnnualizedReturn float64 `json:"annualized_return"`
	KellySize        float64 `json:"kelly_size"`
	FractionalKelly  float64 `json:"fractional_kelly"`
	Qualified        bool    `json:"qualified"`
}

// TurnoverRanker scores live opportunities by how efficiently they recycle
// capital under a named strategy preset.
type TurnoverRanker struct {
	preset StrategyPreset
	params strategyParams
	now    func() time.Time
}

// NewTurnoverRanker creates a ranker for the named preset. Unknown presets
// are configuration errors.
func NewTurnoverRanker(preset StrategyPreset) (*TurnoverRanker, error) {
	params, ok := presets[preset]
	if !ok {
		return nil, &types.ConfigurationError{
			Setting: "strategy",
			Reason:  "unknown preset " + string(preset),
		}
	}
	return &TurnoverRanker{
		preset: preset,
		params: params,
		now:    time.Now,
	}, nil
}

// Score assesses one opportunity. Days to resolution comes from the earlier
// of the two markets' close times; opportunities with no known close default
// to 30 days.
func (t *TurnoverRanker) Score(opp *arbitrage.Opportunity) TurnoverScore {
	days := daysToResolution(opp, t.now())
	profit := opp.ProfitPercent() / 100

	turnover := 365.0 / days
	annualized := AnnualizedReturn(profit, days)

	// Normalize turnover onto [0,1] against a weekly-recycling ideal.
	turnoverSignal := math.Min(turnover/52.0, 1)
	profitSignal := math.Min(profit/0.10, 1)

	score := t.params.confidenceWeight*opp.Confidence +
		t.params.turnoverWeight*turnoverSignal +
		t.params.profitWeight*profitSignal

	winRate := estimatedWinRate(opp)
	kelly := KellyFraction(winRate, profit)

	return TurnoverScore{
		OpportunityID:    opp.ID,
		Score:            score,
		DaysToResolution: days,
		TurnoverPerYear:  turnover,
		AnnualizedReturn: annualized,
		KellySize:        kelly,
		FractionalKelly:  kelly * t.params.kellyFraction,
		Qualified: opp.Confidence >= t.params.minConfidence &&
			opp.ProfitPercent() >= t.params.minProfit &&
			opp.Alignment.Tradeable,
	}
}

// AnnualizedReturn compounds a per-cycle profit over the cycles a year
// allows: (1+profit)^(365/days) - 1.
func AnnualizedReturn(profit, days float64) float64 {
	if days <= 0 {
		days = 1
	}
	return math.Pow(1+profit, 365.0/days) - 1
}

// KellyFraction returns the Kelly-optimal fraction of capital for a bet with
// the given win rate and payoff ratio. Clamped to [0,1]; a negative edge
// sizes to zero.
func KellyFraction(winRate, payoff float64) float64 {
	if payoff <= 0 {
		return 0
	}
	k := winRate - (1-winRate)/payoff
	if k < 0 {
		return 0
	}
	if k > 1 {
		return 1
	}
	return k
}

// estimatedWinRate maps resolution alignment onto a win-rate estimate. A
// perfectly aligned pair settles identically, so the arbitrage pays out in
// every outcome; misresolution is the only way to lose, and it is rare even
// for imperfect alignments.
func estimatedWinRate(opp *arbitrage.Opportunity) float64 {
	return 0.9 + 0.1*(float64(opp.Alignment.Score)/100.0)*opp.Confidence
}

func daysToResolution(opp *arbitrage.Opportunity, now time.Time) float64 {
	days := math.Inf(1)
	if opp.Pair.MarketA.HasCloseTime() {
		days = opp.Pair.MarketA.DaysToClose(now)
	}
	if opp.Pair.MarketB.HasCloseTime() {
		if d := opp.Pair.MarketB.DaysToClose(now); d < days {
			days = d
		}
	}
	if math.IsInf(days, 1) || days < 1 {
		if math.IsInf(days, 1) {
			return 30
		}
		return 1
	}
	return days
}

// Preset returns the ranker's strategy name.
func (t *TurnoverRanker) Preset() StrategyPreset {
	return t.preset
}
