package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/predixlabs/crossarb/internal/matching"
	"github.com/predixlabs/crossarb/pkg/types"
)

// PairSource yields the matched pairs a scan cycle should cover.
type PairSource interface {
	Pairs(ctx context.Context) ([]types.CrossExchangePair, error)
}

// MarketSource lists markets for one venue.
type MarketSource interface {
	Name() types.Venue
	GetMarkets(ctx context.Context, filter types.MarketFilter) ([]types.Market, error)
}

// MatchedPairSource fetches both venues' market listings and matches them.
type MatchedPairSource struct {
	SourceA MarketSource
	SourceB MarketSource
	Matcher *matching.Matcher
	Filter  types.MarketFilter
}

// Pairs lists both venues concurrently and matches the results.
func (s *MatchedPairSource) Pairs(ctx context.Context) ([]types.CrossExchangePair, error) {
	var marketsA, marketsB []types.Market
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		marketsA, err = s.SourceA.GetMarkets(gctx, s.Filter)
		return err
	})
	g.Go(func() (err error) {
		marketsB, err = s.SourceB.GetMarkets(gctx, s.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s.Matcher.Match(marketsA, marketsB), nil
}

// StaticPairSource serves a fixed pair list; one-shot scans use it.
type StaticPairSource []types.CrossExchangePair

func (s StaticPairSource) Pairs(context.Context) ([]types.CrossExchangePair, error) {
	return s, nil
}

// PollerConfig holds poller configuration.
type PollerConfig struct {
	Pipeline *Pipeline
	Source   PairSource

	// Interval between scheduled cycles. Defaults to 30s.
	Interval time.Duration

	Clock  clock.Clock
	Logger *zap.Logger
}

// Poller runs scan cycles on a schedule, plus on demand via Trigger. Cycles
// never overlap: a trigger arriving mid-cycle coalesces into exactly one
// follow-up cycle.
type Poller struct {
	pipeline *Pipeline
	source   PairSource
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	mu       sync.Mutex
	scanning bool
	pending  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller builds a poller.
func NewPoller(cfg PollerConfig) (*Poller, error) {
	if cfg.Pipeline == nil {
		return nil, &types.ConfigurationError{Setting: "Pipeline", Reason: "must not be nil"}
	}
	if cfg.Source == nil {
		return nil, &types.ConfigurationError{Setting: "Source", Reason: "must not be nil"}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Poller{
		pipeline: cfg.Pipeline,
		source:   cfg.Source,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}, nil
}

// Start begins scheduled scanning. The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.logger.Info("poller-starting", zap.Duration("interval", p.interval))

	p.Trigger()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := p.clock.Ticker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.Trigger()
			}
		}
	}()
	return nil
}

// Trigger requests a scan cycle. If one is already running, exactly one
// follow-up cycle is queued regardless of how many triggers arrive.
func (p *Poller) Trigger() {
	p.mu.Lock()
	if p.scanning {
		p.pending = true
		p.mu.Unlock()
		CoalescedTriggersTotal.Inc()
		return
	}
	p.scanning = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run()
}

func (p *Poller) run() {
	defer p.wg.Done()
	for {
		p.cycle()

		p.mu.Lock()
		if p.pending {
			p.pending = false
			p.mu.Unlock()
			continue
		}
		p.scanning = false
		p.mu.Unlock()
		return
	}
}

func (p *Poller) cycle() {
	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	pairs, err := p.source.Pairs(ctx)
	if err != nil {
		p.logger.Error("pair-listing-failed", zap.Error(err))
		return
	}
	if _, err := p.pipeline.Scan(ctx, pairs); err != nil {
		p.logger.Error("scan-cycle-failed", zap.Error(err))
	}
}

// Close stops scheduled scanning and waits for any in-flight cycle.
func (p *Poller) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("poller-closed")
	return nil
}
