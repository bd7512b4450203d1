// Package ranking filters, orders and sizes computed opportunities.
package ranking

import (
	"sort"

	"github.com/predixlabs/crossarb/internal/arbitrage"
	"go.uber.org/zap"
)

// Config holds ranker configuration.
type Config struct {
	// MinProfitPercent drops results below this relative profit.
	MinProfitPercent float64
	// MinResolutionScore drops opportunities whose alignment scored lower.
	MinResolutionScore int
	// CollectAll keeps below-threshold opportunities for calibration runs
	// instead of dropping them. They are still excluded from Tradeable
	// counts.
	CollectAll bool
	Logger     *zap.Logger
}

// Ranker filters and sorts opportunity batches.
type Ranker struct {
	cfg Config
}

// Summary holds per-batch statistics.
type Summary struct {
	Total          int     `json:"total"`
	Tradeable      int     `json:"tradeable"`
	AvgProfit      float64 `json:"avg_profit"`
	MaxProfit      float64 `json:"max_profit"`
	AvgConfidence  float64 `json:"avg_confidence"`
	AvgResolution  float64 `json:"avg_resolution"`
	DroppedProfit  int     `json:"dropped_profit"`
	DroppedAligned int     `json:"dropped_resolution"`
}

// New creates a ranker.
func New(cfg Config) *Ranker {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Ranker{cfg: cfg}
}

// Rank filters the batch and sorts it by profit descending. The sort is
// stable: equal profits keep their insertion order, which makes scan cycles
// deterministic for identical inputs.
func (r *Ranker) Rank(opps []*arbitrage.Opportunity) ([]*arbitrage.Opportunity, Summary) {
	summary := Summary{}

	kept := make([]*arbitrage.Opportunity, 0, len(opps))
	for _, opp := range opps {
		if !opp.Best.Valid || opp.ProfitPercent() < r.cfg.MinProfitPercent {
			summary.DroppedProfit++
			continue
		}
		if opp.Alignment.Score < r.cfg.MinResolutionScore && !r.cfg.CollectAll {
			summary.DroppedAligned++
			continue
		}
		kept = append(kept, opp)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].ProfitPercent() > kept[j].ProfitPercent()
	})

	summary.Total = len(kept)
	for _, opp := range kept {
		if opp.Alignment.Tradeable {
			summary.Tradeable++
		}
		p := opp.ProfitPercent()
		summary.AvgProfit += p
		if p > summary.MaxProfit {
			summary.MaxProfit = p
		}
		summary.AvgConfidence += opp.Confidence
		summary.AvgResolution += float64(opp.Alignment.Score)
	}
	if len(kept) > 0 {
		n := float64(len(kept))
		summary.AvgProfit /= n
		summary.AvgConfidence /= n
		summary.AvgResolution /= n
	}

	r.cfg.Logger.Debug("batch-ranked",
		zap.Int("in", len(opps)),
		zap.Int("kept", summary.Total),
		zap.Int("tradeable", summary.Tradeable))

	return kept, summary
}
