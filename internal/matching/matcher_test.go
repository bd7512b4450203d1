package matching

import (
	"testing"
	"time"

	"github.com/predixlabs/crossarb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMatcher(t *testing.T, cfg Config) *Matcher {
	t.Helper()
	m, err := New(cfg)
	require.NoError(t, err)
	return m
}

func mkt(venue types.Venue, id, title, category string, close *time.Time) types.Market {
	return types.Market{Venue: venue, ID: id, Title: title, Category: category, CloseTime: close}
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestMatch_PairsEquivalentMarkets(t *testing.T) {
	m := newMatcher(t, Config{})

	kalshi := []types.Market{
		mkt(types.VenueKalshi, "k-fed", "Will the Fed cut rates in March 2026?", "economics", ts("2026-03-18T18:00:00Z")),
		mkt(types.VenueKalshi, "k-btc", "Will Bitcoin close above $100,000 on June 30?", "crypto", ts("2026-06-30T23:59:00Z")),
	}
	poly := []types.Market{
		mkt(types.VenuePolymarket, "p-btc", "Bitcoin above $100,000 on June 30?", "crypto", ts("2026-06-30T23:00:00Z")),
		mkt(types.VenuePolymarket, "p-fed", "Fed rate cut in March 2026?", "economics", ts("2026-03-18T19:00:00Z")),
	}

	pairs := m.Match(kalshi, poly)
	require.Len(t, pairs, 2)

	byKey := make(map[string]types.CrossExchangePair)
	for _, p := range pairs {
		byKey[p.MarketA.ID+"|"+p.MarketB.ID] = p
	}
	assert.Contains(t, byKey, "k-fed|p-fed")
	assert.Contains(t, byKey, "k-btc|p-btc")
	for _, p := range pairs {
		assert.GreaterOrEqual(t, p.CorrelationScore, DefaultMinScore)
		assert.False(t, p.Uncertain)
	}
}

func TestMatch_DropsUnrelatedMarkets(t *testing.T) {
	m := newMatcher(t, Config{})

	kalshi := []types.Market{
		mkt(types.VenueKalshi, "k-1", "Will it snow in NYC on Christmas Day?", "weather", nil),
	}
	poly := []types.Market{
		mkt(types.VenuePolymarket, "p-1", "Champions League winner announced by June?", "sports", nil),
	}

	pairs := m.Match(kalshi, poly)
	assert.Empty(t, pairs)
}

func TestMatch_IncludeUncertainFlagsLowConfidence(t *testing.T) {
	strict := newMatcher(t, Config{})
	loose := newMatcher(t, Config{IncludeUncertain: true})

	kalshi := []types.Market{
		mkt(types.VenueKalshi, "k-1", "Will the president sign the budget bill?", "politics", nil),
	}
	poly := []types.Market{
		mkt(types.VenuePolymarket, "p-1", "Budget signed into law this quarter?", "politics", nil),
	}

	strictPairs := strict.Match(kalshi, poly)
	loosePairs := loose.Match(kalshi, poly)

	if len(strictPairs) == 0 {
		require.Len(t, loosePairs, 1, "uncertain mode should keep the borderline pair")
		assert.True(t, loosePairs[0].Uncertain)
	}
}

func TestMatch_SymmetricUnderExchangeOrder(t *testing.T) {
	m := newMatcher(t, Config{})

	kalshi := []types.Market{
		mkt(types.VenueKalshi, "k-fed", "Will the Fed cut rates in March 2026?", "economics", ts("2026-03-18T18:00:00Z")),
		mkt(types.VenueKalshi, "k-btc", "Will Bitcoin close above $100,000 on June 30?", "crypto", ts("2026-06-30T23:59:00Z")),
		mkt(types.VenueKalshi, "k-nyc", "Will it snow in NYC on Christmas Day?", "weather", nil),
	}
	poly := []types.Market{
		mkt(types.VenuePolymarket, "p-btc", "Bitcoin above $100,000 on June 30?", "crypto", ts("2026-06-30T23:00:00Z")),
		mkt(types.VenuePolymarket, "p-fed", "Fed rate cut in March 2026?", "economics", ts("2026-03-18T19:00:00Z")),
	}

	forward := m.Match(kalshi, poly)
	reverse := m.Match(poly, kalshi)

	require.Equal(t, len(forward), len(reverse))

	fwdKeys := make(map[string]float64)
	for _, p := range forward {
		fwdKeys[p.Key()] = p.CorrelationScore
	}
	for _, p := range reverse {
		score, ok := fwdKeys[p.Key()]
		require.True(t, ok, "pair %s missing from forward match", p.Key())
		assert.InDelta(t, score, p.CorrelationScore, 1e-12)
	}
}

func TestMatch_EachMarketUsedOnce(t *testing.T) {
	m := newMatcher(t, Config{})

	kalshi := []types.Market{
		mkt(types.VenueKalshi, "k-1", "Will the Fed cut rates in March 2026?", "economics", nil),
		mkt(types.VenueKalshi, "k-2", "Will the Fed cut rates in March 2026?", "economics", nil),
	}
	poly := []types.Market{
		mkt(types.VenuePolymarket, "p-1", "Fed rate cut March 2026?", "economics", nil),
	}

	pairs := m.Match(kalshi, poly)
	require.Len(t, pairs, 1)
}

func TestScore_Symmetric(t *testing.T) {
	m := newMatcher(t, Config{})

	a := mkt(types.VenueKalshi, "k-1", "Will the Fed cut rates in March?", "economics", ts("2026-03-18T18:00:00Z"))
	b := mkt(types.VenuePolymarket, "p-1", "Fed rate cut in March?", "finance", ts("2026-03-19T18:00:00Z"))

	assert.InDelta(t, m.Score(a, b), m.Score(b, a), 1e-12)
}

func TestNew_RejectsBadWeights(t *testing.T) {
	_, err := New(Config{TitleWeight: 0.9, KeywordWeight: 0.9})
	var cerr *types.ConfigurationError
	assert.ErrorAs(t, err, &cerr)

	_, err = New(Config{MinScore: 1.5})
	assert.ErrorAs(t, err, &cerr)
}

func TestTitleSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{name: "identical", a: "Fed cut in March", b: "Fed cut in March", min: 1, max: 1},
		{name: "punctuation-insensitive", a: "Fed cut, in March!", b: "fed cut in march", min: 1, max: 1},
		{name: "close-paraphrase", a: "Will the Fed cut rates in March?", b: "Fed cut rates in March?", min: 0.6, max: 1},
		{name: "unrelated", a: "Bitcoin above 100k", b: "Snow in NYC on Christmas", min: 0, max: 0.4},
		{name: "empty", a: "", b: "anything", min: 0, max: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titleSimilarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestKeywordOverlap_StripsStopwords(t *testing.T) {
	// Shared words are only stopwords; overlap must be zero.
	got := keywordOverlap("will the and of", "will the in to")
	assert.Equal(t, 0.0, got)

	got = keywordOverlap("bitcoin price above 100000", "bitcoin above 100000 tomorrow")
	assert.Greater(t, got, 0.4)
}
