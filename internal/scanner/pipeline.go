// Package scanner orchestrates scan cycles: it pulls quotes for matched
// pairs, runs the arbitrage calculator, gates results on resolution
// alignment, and hands survivors to ranking, storage, and notification.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/predixlabs/crossarb/internal/arbitrage"
	"github.com/predixlabs/crossarb/internal/notify"
	"github.com/predixlabs/crossarb/internal/ranking"
	"github.com/predixlabs/crossarb/internal/resolution"
	"github.com/predixlabs/crossarb/internal/storage"
	"github.com/predixlabs/crossarb/pkg/cache"
	"github.com/predixlabs/crossarb/pkg/types"
)

// QuoteSource fetches live quotes for one venue.
type QuoteSource interface {
	Name() types.Venue
	GetQuote(ctx context.Context, marketID string) (*types.Quote, error)
}

// EventKind distinguishes pipeline events.
type EventKind int

const (
	// EventOpportunity carries a ranked opportunity. Unless CollectAll is
	// set it is always tradeable.
	EventOpportunity EventKind = iota

	// EventError reports a pair whose scan failed. One bad pair never
	// aborts the cycle.
	EventError
)

// Event is emitted on the pipeline's event channel.
type Event struct {
	Kind        EventKind
	Opportunity *arbitrage.Opportunity
	Pair        types.CrossExchangePair
	Err         error
}

// Report summarizes one scan cycle.
type Report struct {
	Pairs         int                      `json:"pairs"`
	Errors        int                      `json:"errors"`
	Gated         int                      `json:"gated"`
	Opportunities []*arbitrage.Opportunity `json:"opportunities"`
	Summary       ranking.Summary          `json:"summary"`
	Duration      time.Duration            `json:"duration"`
}

// Config holds pipeline configuration.
type Config struct {
	Sources    map[types.Venue]QuoteSource
	Cache      cache.Cache
	Calculator *arbitrage.Calculator
	Analyzer   *resolution.Analyzer
	Ranker     *ranking.Ranker

	// Store, Top, and Notifier are optional sinks.
	Store    storage.Storage
	Top      *cache.TopOpportunities
	Notifier *notify.Notifier

	// QuoteTTL bounds both the cache lifetime and the age at which a
	// cached quote is refetched. Defaults to 5s.
	QuoteTTL time.Duration

	// MaxSlippage bounds position sizing against quoted depth.
	// Defaults to 0.02.
	MaxSlippage decimal.Decimal

	// OpportunityTTL is stamped on detected opportunities. Defaults to 60s.
	OpportunityTTL time.Duration

	// CollectAll passes risk-vetoed pairs through to the ranker, flagged
	// non-tradeable, instead of gating them out of the cycle. Calibration
	// runs use it to see what the gate would have suppressed.
	CollectAll bool

	EventBufferSize int

	Logger *zap.Logger
}

// Pipeline runs scan cycles over matched pairs.
type Pipeline struct {
	sources  map[types.Venue]QuoteSource
	cache    cache.Cache
	calc     *arbitrage.Calculator
	analyzer *resolution.Analyzer
	ranker   *ranking.Ranker
	store    storage.Storage
	top      *cache.TopOpportunities
	notifier *notify.Notifier
	rolling  *RollingStats

	quoteTTL    time.Duration
	maxSlippage decimal.Decimal
	oppTTL      time.Duration
	collectAll  bool

	events chan Event
	logger *zap.Logger
}

// NewPipeline builds a pipeline.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if len(cfg.Sources) == 0 {
		return nil, &types.ConfigurationError{Setting: "Sources", Reason: "at least one quote source required"}
	}
	if cfg.Cache == nil {
		return nil, &types.ConfigurationError{Setting: "Cache", Reason: "must not be nil"}
	}
	if cfg.Calculator == nil || cfg.Analyzer == nil || cfg.Ranker == nil {
		return nil, &types.ConfigurationError{Setting: "Calculator/Analyzer/Ranker", Reason: "must not be nil"}
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 5 * time.Second
	}
	if cfg.MaxSlippage.IsZero() {
		cfg.MaxSlippage = decimal.NewFromFloat(0.02)
	}
	if cfg.OpportunityTTL <= 0 {
		cfg.OpportunityTTL = time.Minute
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pipeline{
		sources:     cfg.Sources,
		cache:       cfg.Cache,
		calc:        cfg.Calculator,
		analyzer:    cfg.Analyzer,
		ranker:      cfg.Ranker,
		store:       cfg.Store,
		top:         cfg.Top,
		notifier:    cfg.Notifier,
		rolling:     NewRollingStats(),
		quoteTTL:    cfg.QuoteTTL,
		maxSlippage: cfg.MaxSlippage,
		oppTTL:      cfg.OpportunityTTL,
		collectAll:  cfg.CollectAll,
		events:      make(chan Event, cfg.EventBufferSize),
		logger:      cfg.Logger,
	}, nil
}

// Events returns the pipeline's event channel.
func (p *Pipeline) Events() <-chan Event {
	return p.events
}

// Stats returns per-pair rolling profit statistics.
func (p *Pipeline) Stats() map[string]StatSummary {
	return p.rolling.Snapshot()
}

// Scan runs one cycle over the given pairs. A failing pair is reported and
// skipped; the cycle always completes unless the context is cancelled.
func (p *Pipeline) Scan(ctx context.Context, pairs []types.CrossExchangePair) (*Report, error) {
	start := time.Now()
	ScansTotal.Inc()
	report := &Report{Pairs: len(pairs)}

	var found []*arbitrage.Opportunity
	for _, pair := range pairs {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		opp, gated, err := p.process(ctx, pair)
		if err != nil {
			report.Errors++
			ScanErrorsTotal.Inc()
			p.logger.Warn("pair-scan-failed",
				zap.String("pair", pair.Key()),
				zap.Error(err))
			p.emit(Event{Kind: EventError, Pair: pair, Err: err})
			continue
		}
		if gated {
			report.Gated++
			continue
		}
		if opp != nil {
			found = append(found, opp)
		}
	}

	ranked, summary := p.ranker.Rank(found)
	for _, opp := range ranked {
		p.sink(ctx, opp)
	}

	report.Opportunities = ranked
	report.Summary = summary
	report.Duration = time.Since(start)
	ScanDurationSeconds.Observe(report.Duration.Seconds())

	p.logger.Info("scan-complete",
		zap.Int("pairs", report.Pairs),
		zap.Int("errors", report.Errors),
		zap.Int("gated", report.Gated),
		zap.Int("opportunities", len(ranked)),
		zap.Duration("duration", report.Duration))

	return report, nil
}

func (p *Pipeline) process(ctx context.Context, pair types.CrossExchangePair) (*arbitrage.Opportunity, bool, error) {
	var qa, qb *types.Quote
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		qa, err = p.quoteFor(gctx, pair.MarketA)
		return err
	})
	g.Go(func() (err error) {
		qb, err = p.quoteFor(gctx, pair.MarketB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	results, err := p.calc.Calculate(arbitrage.QuotePair{
		Pair:   pair,
		QuoteA: *qa,
		QuoteB: *qb,
	})
	if err != nil {
		return nil, false, err
	}
	if len(results) > 0 {
		best, _ := results[0].ProfitPercent.Float64()
		p.rolling.Observe(pair.Key(), best)
	}

	var best *arbitrage.Result
	for i := range results {
		if results[i].Valid {
			best = &results[i]
			break
		}
	}
	if best == nil {
		return nil, false, nil
	}

	alignment := p.analyzer.Compare(pair.MarketA, pair.MarketB)
	if !alignment.Tradeable && !p.collectAll {
		GatedTotal.Inc()
		p.logger.Debug("opportunity-gated",
			zap.String("pair", pair.Key()),
			zap.Int("score", alignment.Score),
			zap.Strings("risks", alignment.Risks))
		return nil, true, nil
	}

	opp := arbitrage.NewOpportunity(pair, *best, alignment, p.maxSize(*best, qa, qb), p.oppTTL)
	return opp, false, nil
}

// quoteFor serves from cache when fresh, falling back to the venue.
func (p *Pipeline) quoteFor(ctx context.Context, m types.Market) (*types.Quote, error) {
	if q, ok := cache.LoadQuote(p.cache, m.Venue, m.ID, p.quoteTTL, time.Now()); ok {
		return q, nil
	}

	src, ok := p.sources[m.Venue]
	if !ok {
		return nil, fmt.Errorf("no quote source for venue %s", m.Venue)
	}
	q, err := src.GetQuote(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch quote %s:%s: %w", m.Venue, m.ID, err)
	}
	cache.StoreQuote(p.cache, q, p.quoteTTL)
	return q, nil
}

// maxSize bounds the position so estimated slippage stays inside the
// configured limit on both legs, expressed as USD at total cost.
func (p *Pipeline) maxSize(best arbitrage.Result, qa, qb *types.Quote) float64 {
	minContracts := decimal.Zero
	haveDepth := false

	for _, leg := range best.Legs {
		q := qa
		if leg.Venue == qb.Venue && leg.MarketID == qb.MarketID {
			q = qb
		}
		depth := q.Level(leg.Side).Depth
		if len(depth) == 0 {
			continue
		}
		contracts := maxContractsWithin(depth, p.maxSlippage)
		if !haveDepth || contracts.LessThan(minContracts) {
			minContracts = contracts
			haveDepth = true
		}
	}

	if !haveDepth {
		return defaultMaxSizeUSD
	}
	usd, _ := minContracts.Mul(best.TotalCost).Float64()
	return usd
}

const defaultMaxSizeUSD = 100.0

// maxContractsWithin walks cumulative depth and returns the largest order
// size whose estimated slippage stays within the limit.
func maxContractsWithin(depth []types.DepthLevel, maxSlip decimal.Decimal) decimal.Decimal {
	cum := decimal.Zero
	bound := decimal.Zero
	for i := range depth {
		cum = cum.Add(depth[i].Size)
		if arbitrage.EstimateSlippage(cum, depth).LessThanOrEqual(maxSlip) {
			bound = cum
			continue
		}
		break
	}
	return bound
}

func (p *Pipeline) sink(ctx context.Context, opp *arbitrage.Opportunity) {
	OpportunitiesTotal.Inc()

	if p.store != nil {
		if err := p.store.SaveOpportunity(ctx, opp); err != nil {
			p.logger.Error("opportunity-store-failed",
				zap.String("opportunity-id", opp.ID),
				zap.Error(err))
		}
	}
	if p.top != nil {
		p.top.Add(cache.ScoredItem{
			ID:     opp.ID,
			Profit: opp.ProfitPercent(),
			Value:  opp,
		})
	}
	p.notifier.Notify(ctx, opp)
	p.emit(Event{Kind: EventOpportunity, Opportunity: opp, Pair: opp.Pair})
}

func (p *Pipeline) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		EventsDroppedTotal.Inc()
	}
}
