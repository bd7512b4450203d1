package scanner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predixlabs/crossarb/internal/arbitrage"
	"github.com/predixlabs/crossarb/internal/ranking"
	"github.com/predixlabs/crossarb/internal/resolution"
	"github.com/predixlabs/crossarb/pkg/cache"
	"github.com/predixlabs/crossarb/pkg/types"
)

type fakeSource struct {
	venue types.Venue
	delay time.Duration

	mu     sync.Mutex
	quotes map[string]*types.Quote
	errs   map[string]error
	calls  int
}

func (f *fakeSource) Name() types.Venue { return f.venue }

func (f *fakeSource) GetQuote(ctx context.Context, marketID string) (*types.Quote, error) {
	f.mu.Lock()
	f.calls++
	q := f.quotes[marketID]
	err := f.errs[marketID]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("no quote for %s", marketID)
	}
	return q, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quote(venue types.Venue, marketID string, yesBid, yesAsk, noBid, noAsk string) *types.Quote {
	return &types.Quote{
		Venue:     venue,
		MarketID:  marketID,
		Timestamp: time.Now(),
		Yes:       types.PriceLevel{Bid: dec(yesBid), Ask: dec(yesAsk)},
		No:        types.PriceLevel{Bid: dec(noBid), Ask: dec(noAsk)},
	}
}

func alignedPair() types.CrossExchangePair {
	return types.CrossExchangePair{
		MarketA: types.Market{
			Venue:          types.VenueKalshi,
			ID:             "FED-25DEC",
			Title:          "Fed cuts rates in December",
			ResolutionText: "Resolves YES if the Federal Reserve lowers the target rate.",
		},
		MarketB: types.Market{
			Venue:          types.VenuePolymarket,
			ID:             "0xfed",
			Title:          "Will the Fed cut rates in December?",
			ResolutionText: "Resolves Yes if the Federal Reserve lowers the target rate.",
		},
		CorrelationScore: 0.85,
	}
}

func conflictedPair() types.CrossExchangePair {
	return types.CrossExchangePair{
		MarketA: types.Market{
			Venue:          types.VenueKalshi,
			ID:             "CPI-25NOV",
			Title:          "CPI above 3.5 percent in November",
			ResolutionText: "Resolves YES per the Bureau of Labor Statistics release.",
		},
		MarketB: types.Market{
			Venue:          types.VenuePolymarket,
			ID:             "0xcpi",
			Title:          "Will CPI exceed 3.5 percent in November?",
			ResolutionText: "Resolves Yes per the Federal Reserve statement.",
		},
		CorrelationScore: 0.7,
	}
}

func newTestPipeline(t *testing.T, sources map[types.Venue]QuoteSource) *Pipeline {
	return newTestPipelineCollect(t, sources, false)
}

func newTestPipelineCollect(t *testing.T, sources map[types.Venue]QuoteSource, collectAll bool) *Pipeline {
	t.Helper()

	calc, err := arbitrage.New(arbitrage.Config{
		SafetyMargin: decimal.Zero,
		Fees:         arbitrage.FeeSchedule{},
	})
	require.NoError(t, err)

	analyzer, err := resolution.New(resolution.Config{})
	require.NoError(t, err)

	store, err := cache.NewRistretto(cache.RistrettoConfig{MaxEntries: 1000})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	p, err := NewPipeline(Config{
		Sources:    sources,
		Cache:      store,
		Calculator: calc,
		Analyzer:   analyzer,
		Ranker:     ranking.New(ranking.Config{CollectAll: collectAll}),
		QuoteTTL:   time.Minute,
		CollectAll: collectAll,
	})
	require.NoError(t, err)
	return p
}

func defaultSources() (map[types.Venue]QuoteSource, *fakeSource, *fakeSource) {
	kalshi := &fakeSource{
		venue: types.VenueKalshi,
		quotes: map[string]*types.Quote{
			"FED-25DEC": quote(types.VenueKalshi, "FED-25DEC", "0.45", "0.46", "0.55", "0.56"),
			"CPI-25NOV": quote(types.VenueKalshi, "CPI-25NOV", "0.30", "0.31", "0.70", "0.71"),
		},
	}
	polymarket := &fakeSource{
		venue: types.VenuePolymarket,
		quotes: map[string]*types.Quote{
			"0xfed": quote(types.VenuePolymarket, "0xfed", "0.48", "0.49", "0.46", "0.47"),
			"0xcpi": quote(types.VenuePolymarket, "0xcpi", "0.33", "0.34", "0.60", "0.61"),
		},
	}
	return map[types.Venue]QuoteSource{
		types.VenueKalshi:     kalshi,
		types.VenuePolymarket: polymarket,
	}, kalshi, polymarket
}

func TestScan_DetectsOpportunity(t *testing.T) {
	sources, _, _ := defaultSources()
	p := newTestPipeline(t, sources)

	report, err := p.Scan(context.Background(), []types.CrossExchangePair{alignedPair()})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pairs)
	assert.Zero(t, report.Errors)
	require.Len(t, report.Opportunities, 1)

	opp := report.Opportunities[0]
	// Best direction: YES at 0.46 on kalshi + NO at 0.47 on polymarket.
	assert.Equal(t, "0.93", opp.Best.TotalCost.String())
	assert.True(t, opp.Best.Valid)
	assert.True(t, opp.Alignment.Tradeable)
	assert.Equal(t, 0.85, opp.Confidence)

	select {
	case ev := <-p.Events():
		assert.Equal(t, EventOpportunity, ev.Kind)
		assert.Equal(t, opp.ID, ev.Opportunity.ID)
	default:
		t.Fatal("expected an opportunity event")
	}
}

func TestScan_PairErrorIsIsolated(t *testing.T) {
	sources, kalshi, _ := defaultSources()
	kalshi.mu.Lock()
	kalshi.errs = map[string]error{"CPI-25NOV": fmt.Errorf("venue timeout")}
	kalshi.mu.Unlock()

	p := newTestPipeline(t, sources)

	report, err := p.Scan(context.Background(), []types.CrossExchangePair{
		conflictedPair(), // fails on quote fetch
		alignedPair(),    // still scanned
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors)
	assert.Len(t, report.Opportunities, 1)

	ev := <-p.Events()
	assert.Equal(t, EventError, ev.Kind)
	assert.Error(t, ev.Err)
}

func TestScan_ResolutionGateSuppresses(t *testing.T) {
	sources, _, _ := defaultSources()
	p := newTestPipeline(t, sources)

	// CPI quotes sum to 0.31 + 0.61 = 0.92: profitable, but the markets
	// name different resolution sources.
	report, err := p.Scan(context.Background(), []types.CrossExchangePair{conflictedPair()})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Gated)
	assert.Empty(t, report.Opportunities)
}

func TestScan_CollectAllSurfacesGatedPairs(t *testing.T) {
	sources, _, _ := defaultSources()
	p := newTestPipelineCollect(t, sources, true)

	// Same conflicted pair the gate suppresses: with CollectAll it reaches
	// the ranker flagged non-tradeable instead of vanishing.
	report, err := p.Scan(context.Background(), []types.CrossExchangePair{conflictedPair()})
	require.NoError(t, err)
	assert.Zero(t, report.Gated)
	require.Len(t, report.Opportunities, 1)

	opp := report.Opportunities[0]
	assert.False(t, opp.Alignment.Tradeable)
	assert.NotEmpty(t, opp.Alignment.Risks)
	assert.Zero(t, report.Summary.Tradeable)
}

func TestScan_SecondCycleHitsCache(t *testing.T) {
	sources, kalshi, polymarket := defaultSources()
	p := newTestPipeline(t, sources)

	_, err := p.Scan(context.Background(), []types.CrossExchangePair{alignedPair()})
	require.NoError(t, err)
	require.Equal(t, 1, kalshi.callCount())
	require.Equal(t, 1, polymarket.callCount())

	p.cache.Wait()
	_, err = p.Scan(context.Background(), []types.CrossExchangePair{alignedPair()})
	require.NoError(t, err)
	assert.Equal(t, 1, kalshi.callCount(), "fresh cached quote must not refetch")
	assert.Equal(t, 1, polymarket.callCount())
}

func TestScan_RecordsRollingStats(t *testing.T) {
	sources, _, _ := defaultSources()
	p := newTestPipeline(t, sources)

	pair := alignedPair()
	_, err := p.Scan(context.Background(), []types.CrossExchangePair{pair})
	require.NoError(t, err)

	stats := p.Stats()
	require.Contains(t, stats, pair.Key())
	assert.Equal(t, int64(1), stats[pair.Key()].Count)
	assert.InDelta(t, 7.5269, stats[pair.Key()].Mean, 0.001)
}

func TestMaxContractsWithin(t *testing.T) {
	depth := []types.DepthLevel{
		{Price: dec("0.40"), Size: dec("100")},
		{Price: dec("0.41"), Size: dec("100")},
		{Price: dec("0.60"), Size: dec("100")},
	}

	// Top level alone has zero slippage.
	assert.Equal(t, "100", maxContractsWithin(depth, dec("0")).String())

	// Two levels: average premium 0.005 at 200 contracts.
	assert.Equal(t, "200", maxContractsWithin(depth, dec("0.005")).String())

	// Third level is too far from touch.
	assert.Equal(t, "200", maxContractsWithin(depth, dec("0.05")).String())
}
