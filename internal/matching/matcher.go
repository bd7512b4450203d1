// Package matching finds candidate equivalent markets across venues. Venues
// phrase the same underlying event differently, so equivalence is scored from
// weighted fuzzy signals rather than identifiers.
package matching

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/predixlabs/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Default signal weights. They sum to 1.
const (
	defaultTitleWeight    = 0.40
	defaultKeywordWeight  = 0.30
	defaultCategoryWeight = 0.15
	defaultTemporalWeight = 0.15

	// DefaultMinScore drops pairs scoring below it unless uncertain pairs
	// are explicitly included.
	DefaultMinScore = 0.55

	// uncertainFloor is the lowest score kept even in uncertain mode.
	uncertainFloor = 0.30
)

// Config holds matcher configuration. Zero weights fall back to defaults.
type Config struct {
	TitleWeight    float64
	KeywordWeight  float64
	CategoryWeight float64
	TemporalWeight float64

	// MinScore is the correlation floor for confident pairs.
	MinScore float64
	// IncludeUncertain keeps below-minimum pairs, flagged, down to an
	// internal floor.
	IncludeUncertain bool
	// MaxCloseTimeGap is where temporal proximity decays to zero.
	MaxCloseTimeGap time.Duration

	Logger *zap.Logger
}

// Matcher pairs markets across two venues by weighted similarity signals.
type Matcher struct {
	cfg Config
}

// New creates a matcher, applying defaults and validating weights.
func New(cfg Config) (*Matcher, error) {
	if cfg.TitleWeight == 0 && cfg.KeywordWeight == 0 && cfg.CategoryWeight == 0 && cfg.TemporalWeight == 0 {
		cfg.TitleWeight = defaultTitleWeight
		cfg.KeywordWeight = defaultKeywordWeight
		cfg.CategoryWeight = defaultCategoryWeight
		cfg.TemporalWeight = defaultTemporalWeight
	}
	sum := cfg.TitleWeight + cfg.KeywordWeight + cfg.CategoryWeight + cfg.TemporalWeight
	if math.Abs(sum-1) > 1e-9 {
		return nil, &types.ConfigurationError{
			Setting: "matching.weights",
			Reason:  "signal weights must sum to 1",
		}
	}
	if cfg.MinScore == 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.MinScore < 0 || cfg.MinScore > 1 {
		return nil, &types.ConfigurationError{
			Setting: "matching.min-score",
			Reason:  "must be in [0,1]",
		}
	}
	if cfg.MaxCloseTimeGap == 0 {
		cfg.MaxCloseTimeGap = 72 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Matcher{cfg: cfg}, nil
}

type candidate struct {
	a     int
	b     int
	score float64
}

// Match pairs markets across the two venue listings. Each market is used at
// most once; assignment is greedy by descending score with a deterministic
// tie-break, which makes the result invariant under argument order.
func (m *Matcher) Match(marketsA, marketsB []types.Market) []types.CrossExchangePair {
	start := time.Now()
	defer func() {
		MatchDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	// Canonical orientation so Match(A,B) and Match(B,A) walk the same
	// candidate list.
	swapped := false
	if orientation(marketsB) < orientation(marketsA) {
		marketsA, marketsB = marketsB, marketsA
		swapped = true
	}

	floor := m.cfg.MinScore
	if m.cfg.IncludeUncertain && uncertainFloor < floor {
		floor = uncertainFloor
	}

	var candidates []candidate
	for i := range marketsA {
		for j := range marketsB {
			score := m.Score(marketsA[i], marketsB[j])
			if score < floor {
				continue
			}
			candidates = append(candidates, candidate{a: i, b: j, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		ki := marketsA[candidates[i].a].ID + "|" + marketsB[candidates[i].b].ID
		kj := marketsA[candidates[j].a].ID + "|" + marketsB[candidates[j].b].ID
		return ki < kj
	})

	usedA := make(map[int]bool)
	usedB := make(map[int]bool)
	now := time.Now()

	var pairs []types.CrossExchangePair
	for _, c := range candidates {
		if usedA[c.a] || usedB[c.b] {
			continue
		}
		usedA[c.a] = true
		usedB[c.b] = true

		first, second := marketsA[c.a], marketsB[c.b]
		if swapped {
			first, second = second, first
		}
		pairs = append(pairs, types.CrossExchangePair{
			MarketA:          first,
			MarketB:          second,
			CorrelationScore: c.score,
			Uncertain:        c.score < m.cfg.MinScore,
			MatchedAt:        now,
		})
	}

	PairsMatchedTotal.Add(float64(len(pairs)))
	m.cfg.Logger.Debug("matching-pass-complete",
		zap.Int("markets-a", len(marketsA)),
		zap.Int("markets-b", len(marketsB)),
		zap.Int("pairs", len(pairs)))

	return pairs
}

// Score computes the weighted correlation score for one market pair.
// Every signal is symmetric, so Score(a,b) == Score(b,a).
func (m *Matcher) Score(a, b types.Market) float64 {
	title := titleSimilarity(a.Title, b.Title)
	keyword := keywordOverlap(a.Title+" "+a.Description, b.Title+" "+b.Description)
	category := categoryAgreement(a.Category, b.Category)
	temporal := m.temporalProximity(a, b)

	score := m.cfg.TitleWeight*title +
		m.cfg.KeywordWeight*keyword +
		m.cfg.CategoryWeight*category +
		m.cfg.TemporalWeight*temporal

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// categoryAgreement is 1 on agreement, 0 on disagreement and neutral when
// either venue omits categories.
func categoryAgreement(a, b string) float64 {
	if a == "" || b == "" {
		return 0.5
	}
	if strings.EqualFold(a, b) {
		return 1
	}
	return 0
}

// temporalProximity decays linearly with the close-time gap, neutral when
// either market has no close time.
func (m *Matcher) temporalProximity(a, b types.Market) float64 {
	if !a.HasCloseTime() || !b.HasCloseTime() {
		return 0.5
	}
	gap := a.CloseTime.Sub(*b.CloseTime)
	if gap < 0 {
		gap = -gap
	}
	if gap >= m.cfg.MaxCloseTimeGap {
		return 0
	}
	return 1 - float64(gap)/float64(m.cfg.MaxCloseTimeGap)
}

// orientation gives a deterministic ordering key for a market listing.
func orientation(markets []types.Market) string {
	if len(markets) == 0 {
		return ""
	}
	min := string(markets[0].Venue) + ":" + markets[0].ID
	for _, mk := range markets[1:] {
		k := string(mk.Venue) + ":" + mk.ID
		if k < min {
			min = k
		}
	}
	return min
}
