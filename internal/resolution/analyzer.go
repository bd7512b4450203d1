// Package resolution scores how likely two markets are to resolve
// identically, independent of price. Matching prices on markets that settle
// by different rules is not arbitrage, it is a bet on the rulebooks.
package resolution

import (
	"fmt"

	"github.com/predixlabs/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Component weights; they sum to 100.
const (
	weightSources    = 35
	weightTiming     = 30
	weightConditions = 35
)

// DefaultMinThreshold is the score below which a pair is not tradeable.
const DefaultMinThreshold = 65

// Config holds analyzer configuration.
type Config struct {
	// MinThreshold gates tradeability, range [0,100]. Zero means default.
	MinThreshold int
	// SourceAliases extends the built-in canonicalization table
	// (alias -> canonical name).
	SourceAliases map[string]string
	Logger        *zap.Logger
}

// Analyzer extracts resolution criteria from market free text via pattern
// rules and compares them pairwise.
type Analyzer struct {
	minThreshold  int
	sourceAliases map[string]string
	logger        *zap.Logger
}

// New creates an analyzer. A threshold outside [0,100] is a configuration
// error.
func New(cfg Config) (*Analyzer, error) {
	threshold := cfg.MinThreshold
	if threshold == 0 {
		threshold = DefaultMinThreshold
	}
	if threshold < 0 || threshold > 100 {
		return nil, &types.ConfigurationError{
			Setting: "resolution.min-threshold",
			Reason:  fmt.Sprintf("must be in [0,100], got %d", cfg.MinThreshold),
		}
	}

	aliases := make(map[string]string, len(defaultSourceAliases)+len(cfg.SourceAliases))
	for alias, canonical := range defaultSourceAliases {
		aliases[alias] = canonical
	}
	for alias, canonical := range cfg.SourceAliases {
		aliases[alias] = canonical
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Analyzer{
		minThreshold:  threshold,
		sourceAliases: aliases,
		logger:        logger,
	}, nil
}

// Compare scores the resolution alignment of two markets. Symmetric up to
// field relabeling: swapping a and b changes neither score nor tradeability.
func (a *Analyzer) Compare(marketA, marketB types.Market) types.ResolutionAlignment {
	critA := a.extract(marketA.Title + " " + marketA.Description + " " + marketA.ResolutionText)
	critB := a.extract(marketB.Title + " " + marketB.Description + " " + marketB.ResolutionText)

	var (
		score    int
		risks    []string
		warnings []string
	)

	sourcesMatch := false
	switch {
	case len(critA.sources) == 0 && len(critB.sources) == 0:
		sourcesMatch = true
		warnings = append(warnings, "no resolution source stated on either market")
	case intersects(critA.sources, critB.sources):
		sourcesMatch = true
	case len(critA.sources) > 0 && len(critB.sources) > 0:
		risks = append(risks, "resolution sources differ")
	default:
		warnings = append(warnings, "resolution source stated on only one market")
	}
	if sourcesMatch {
		score += weightSources
	}

	// A missing date on either side is treated as a match; venues often
	// state timing only in the close timestamp.
	timingMatch := true
	if len(critA.dates) > 0 && len(critB.dates) > 0 && !intersects(critA.dates, critB.dates) {
		timingMatch = false
		risks = append(risks, "resolution dates differ")
	}
	if timingMatch {
		score += weightTiming
	}

	conditionsMatch := true
	if len(critA.numbers) > 0 && len(critB.numbers) > 0 && !intersects(critA.numbers, critB.numbers) {
		conditionsMatch = false
		if critA.conditions && critB.conditions {
			risks = append(risks, "explicit resolution conditions disagree")
		} else {
			warnings = append(warnings, "stated thresholds differ")
		}
	}
	if conditionsMatch {
		score += weightConditions
	}

	alignment := a.finalize(score, risks, warnings)
	alignment.TimingMatch = timingMatch
	alignment.SourcesMatch = sourcesMatch
	alignment.ConditionsMatch = conditionsMatch

	ComparisonsTotal.Inc()
	if !alignment.Tradeable {
		NotTradeableTotal.Inc()
	}

	a.logger.Debug("resolution-compared",
		zap.String("market-a", marketA.ID),
		zap.String("market-b", marketB.ID),
		zap.Int("score", alignment.Score),
		zap.Bool("tradeable", alignment.Tradeable))

	return alignment
}

// finalize applies the tradeability gate: the score must clear the threshold
// and the risk list must be empty. Risks always veto, regardless of score.
func (a *Analyzer) finalize(score int, risks, warnings []string) types.ResolutionAlignment {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	level := "low"
	switch {
	case score >= 80:
		level = "high"
	case score >= 50:
		level = "medium"
	}

	return types.ResolutionAlignment{
		Score:     score,
		Level:     level,
		Tradeable: score >= a.minThreshold && len(risks) == 0,
		Risks:     risks,
		Warnings:  warnings,
	}
}

// MinThreshold returns the configured tradeability threshold.
func (a *Analyzer) MinThreshold() int {
	return a.minThreshold
}
