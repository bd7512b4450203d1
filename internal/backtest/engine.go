package backtest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/internal/arbitrage"
	"github.com/predixlabs/crossarb/pkg/types"
)

const (
	windowLength = 7 * 24 * time.Hour

	defaultWeeks            = 12
	defaultTradesPerWeek    = 20
	defaultMinProfitPercent = 0.5
	defaultTradeSize        = 100
)

// Sample is one historical observation of a matched pair's quotes.
type Sample struct {
	Time   time.Time
	Pair   types.CrossExchangePair
	QuoteA types.Quote
	QuoteB types.Quote
}

// Result summarizes a replay run.
type Result struct {
	WeeklyReturns    []float64 `json:"weekly_returns"`
	TotalReturn      float64   `json:"total_return"`
	AnnualizedReturn float64   `json:"annualized_return"`
	Sharpe           float64   `json:"sharpe"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	CILow            float64   `json:"ci_low"`
	CIHigh           float64   `json:"ci_high"`
	Trades           int       `json:"trades"`
	Wins             int       `json:"wins"`
	Skipped          int       `json:"skipped"`
	Diverged         int       `json:"diverged"`
	Seed             int64     `json:"seed"`
	Model            string    `json:"model"`
}

// WinRate is the fraction of executed trades that ended positive.
func (r *Result) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades)
}

// Config configures a replay engine.
type Config struct {
	Calculator *arbitrage.Calculator

	// Seed fixes the sampling sequence. Zero draws a seed from the
	// clock and records it on the result.
	Seed int64

	// Weeks is how many 7-day windows to sample, with replacement.
	Weeks int

	// TradesPerWeek caps executions per sampled window.
	TradesPerWeek int

	// Model sets the execution cost assumption.
	Model SlippageModel

	// TradeSize is the contracts per replayed execution. It sizes how
	// deep each trade eats into the quoted book. Defaults to 100.
	TradeSize float64

	// MinProfitPercent gates trades whose net edge is below it.
	MinProfitPercent float64

	Logger *zap.Logger
}

// Engine replays historical quote samples through the arbitrage
// calculator and reports the return profile of the strategy.
type Engine struct {
	calc      *arbitrage.Calculator
	weeks     int
	perWeek   int
	model     SlippageModel
	tradeSize float64
	minProfit float64
	seed      int64
	logger    *zap.Logger
}

func New(cfg Config) (*Engine, error) {
	if cfg.Calculator == nil {
		return nil, &types.ConfigurationError{Setting: "Calculator", Reason: "is required"}
	}
	model, err := validateModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.Weeks < 0 {
		return nil, &types.ConfigurationError{Setting: "Weeks", Reason: "must not be negative"}
	}
	if cfg.Weeks == 0 {
		cfg.Weeks = defaultWeeks
	}
	if cfg.TradesPerWeek == 0 {
		cfg.TradesPerWeek = defaultTradesPerWeek
	}
	if cfg.TradeSize < 0 {
		return nil, &types.ConfigurationError{Setting: "TradeSize", Reason: "must not be negative"}
	}
	if cfg.TradeSize == 0 {
		cfg.TradeSize = defaultTradeSize
	}
	if cfg.MinProfitPercent == 0 {
		cfg.MinProfitPercent = defaultMinProfitPercent
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		calc:      cfg.Calculator,
		weeks:     cfg.Weeks,
		perWeek:   cfg.TradesPerWeek,
		model:     model,
		tradeSize: cfg.TradeSize,
		minProfit: cfg.MinProfitPercent,
		seed:      cfg.Seed,
		logger:    logger,
	}, nil
}

// Run replays the sample history. Each sampled week picks up to
// TradesPerWeek observations at random, prices them, subtracts the
// model's depth-based slippage, and books the trade when the expected
// net edge clears the minimum. Booked trades settle against resolutions,
// keyed "venue:marketID" with the side that paid out; pairs whose
// outcomes are unrecorded settle as a consistent hedge, exactly one leg
// winning. Capital is split evenly across the week's trade slots, so a
// weekly return is the mean net margin of its executions.
func (e *Engine) Run(ctx context.Context, samples []Sample, resolutions map[string]types.Side) (*Result, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("run backtest: no samples")
	}

	windows := bucketWindows(samples)
	rng := rand.New(rand.NewSource(e.seed))

	e.logger.Info("backtest-starting",
		zap.Int("samples", len(samples)),
		zap.Int("windows", len(windows)),
		zap.Int("weeks", e.weeks),
		zap.Int64("seed", e.seed),
		zap.String("model", string(e.model)),
	)

	res := &Result{
		WeeklyReturns: make([]float64, 0, e.weeks),
		Seed:          e.seed,
		Model:         string(e.model),
	}

	for w := 0; w < e.weeks; w++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		window := windows[rng.Intn(len(windows))]
		res.WeeklyReturns = append(res.WeeklyReturns, e.replayWeek(rng, window, resolutions, res))
	}

	res.TotalReturn = compound(res.WeeklyReturns)
	res.AnnualizedReturn = annualize(res.TotalReturn, len(res.WeeklyReturns))
	res.Sharpe = sharpe(res.WeeklyReturns)
	res.MaxDrawdown = maxDrawdown(res.WeeklyReturns)
	res.CILow, res.CIHigh = confidence95(res.WeeklyReturns)

	WeeksReplayedTotal.Add(float64(len(res.WeeklyReturns)))

	e.logger.Info("backtest-complete",
		zap.Int("trades", res.Trades),
		zap.Int("diverged", res.Diverged),
		zap.Float64("total_return", res.TotalReturn),
		zap.Float64("sharpe", res.Sharpe),
		zap.Float64("max_drawdown", res.MaxDrawdown),
	)

	return res, nil
}

// replayWeek executes one sampled window and returns its portfolio
// return.
func (e *Engine) replayWeek(rng *rand.Rand, window []Sample, resolutions map[string]types.Side, res *Result) float64 {
	var sum float64
	for i := 0; i < e.perWeek; i++ {
		s := window[rng.Intn(len(window))]
		net, diverged, ok := e.price(s, resolutions)
		if !ok {
			res.Skipped++
			continue
		}
		TradesReplayedTotal.Inc()
		res.Trades++
		if net > 0 {
			res.Wins++
		}
		if diverged {
			res.Diverged++
		}
		sum += net
	}
	// Capital not deployed earns nothing.
	return sum / float64(e.perWeek)
}

// price computes the realized net margin fraction for one observation,
// or false when no tradeable edge survives the slippage and profit
// gates. The gate uses the expected margin; the returned net settles the
// legs against recorded resolutions, so a diverging pair can realize a
// loss the gate never saw.
func (e *Engine) price(s Sample, resolutions map[string]types.Side) (net float64, diverged, ok bool) {
	results, err := e.calc.Calculate(arbitrage.QuotePair{
		Pair:   s.Pair,
		QuoteA: s.QuoteA,
		QuoteB: s.QuoteB,
	})
	if err != nil || len(results) == 0 {
		return 0, false, false
	}
	best := results[0]
	if !best.Valid {
		return 0, false, false
	}

	penalty := e.model.penalty(e.depthFill(best, s))
	expected := best.ProfitMargin.InexactFloat64() - penalty
	if expected*100 < e.minProfit {
		return 0, false, false
	}

	payout, diverged := resolvedPayout(best.Legs, resolutions)
	return payout - best.TotalCost.InexactFloat64() - penalty, diverged, true
}

// depthFill returns the share of quoted depth the configured trade size
// consumes on its thinnest leg. A leg quoting no depth counts as a full
// fill, pricing it at the deep end of the curve.
func (e *Engine) depthFill(best arbitrage.Result, s Sample) float64 {
	fill := 0.0
	for _, leg := range best.Legs {
		q := s.QuoteA
		if leg.Venue == s.QuoteB.Venue && leg.MarketID == s.QuoteB.MarketID {
			q = s.QuoteB
		}
		total := 0.0
		for _, lvl := range q.Level(leg.Side).Depth {
			total += lvl.Size.InexactFloat64()
		}
		if total <= 0 {
			return 1
		}
		if f := e.tradeSize / total; f > fill {
			fill = f
		}
	}
	if fill > 1 {
		fill = 1
	}
	return fill
}

// resolvedPayout values the held legs against recorded outcomes. A pair
// counts only when both markets have one; otherwise the hedge settles
// consistently and pays exactly one leg.
func resolvedPayout(legs [2]arbitrage.Leg, resolutions map[string]types.Side) (payout float64, diverged bool) {
	resA, okA := resolutions[legKey(legs[0])]
	resB, okB := resolutions[legKey(legs[1])]
	if !okA || !okB {
		return 1, false
	}

	if resA == legs[0].Side {
		payout++
	}
	if resB == legs[1].Side {
		payout++
	}
	return payout, payout != 1
}

func legKey(leg arbitrage.Leg) string {
	return string(leg.Venue) + ":" + leg.MarketID
}

// bucketWindows groups samples into 7-day windows anchored at the
// earliest observation. Empty windows are dropped so sparse histories
// never yield zero-trade weeks by accident.
func bucketWindows(samples []Sample) [][]Sample {
	ordered := make([]Sample, len(samples))
	copy(ordered, samples)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Time.Before(ordered[j].Time)
	})

	start := ordered[0].Time
	buckets := make(map[int][]Sample)
	for _, s := range ordered {
		idx := int(s.Time.Sub(start) / windowLength)
		buckets[idx] = append(buckets[idx], s)
	}

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	windows := make([][]Sample, 0, len(keys))
	for _, k := range keys {
		windows = append(windows, buckets[k])
	}
	return windows
}
