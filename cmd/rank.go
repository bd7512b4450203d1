package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/predixlabs/crossarb/internal/ranking"
	"github.com/predixlabs/crossarb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Scan once and rank opportunities by capital turnover",
	Long: `Runs a single scan cycle, then scores each detected opportunity by how
efficiently it recycles capital: annualized return from days-to-resolution,
Kelly-sized positions, and a strategy-weighted composite score.

Strategies: conservative (quarter-Kelly, high confidence floor), balanced
(half-Kelly), aggressive (full Kelly, turnover-weighted).`,
	RunE: runRank,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.Flags().StringP("strategy", "s", "balanced", "Strategy preset: conservative, balanced, aggressive")
	rankCmd.Flags().StringP("category", "c", "", "Scan only markets in this category")
	rankCmd.Flags().DurationP("timeout", "t", 2*time.Minute, "Overall scan deadline")
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	strategy, _ := cmd.Flags().GetString("strategy")
	category, _ := cmd.Flags().GetString("category")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	turnover, err := ranking.NewTurnoverRanker(ranking.StrategyPreset(strategy))
	if err != nil {
		return fmt.Errorf("create turnover ranker: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	components, err := buildScanComponents(cfg, logger, category)
	if err != nil {
		return err
	}
	defer components.cache.Close()

	pairs, err := components.source.Pairs(ctx)
	if err != nil {
		return fmt.Errorf("list pairs: %w", err)
	}

	report, err := components.pipeline.Scan(ctx, pairs)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if len(report.Opportunities) == 0 {
		fmt.Printf("Scanned %d pairs: no opportunities to rank\n", report.Pairs)
		return nil
	}

	fmt.Printf("Strategy %s: %d opportunities\n\n", turnover.Preset(), len(report.Opportunities))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MARKET A\tMARKET B\tPROFIT %\tDAYS\tANNUALIZED\tKELLY\tSCORE\tQUALIFIED")
	for _, opp := range report.Opportunities {
		score := turnover.Score(opp)
		fmt.Fprintf(w, "%s:%s\t%s:%s\t%s\t%.1f\t%.1f%%\t%.3f\t%.3f\t%v\n",
			opp.Pair.MarketA.Venue, opp.Pair.MarketA.ID,
			opp.Pair.MarketB.Venue, opp.Pair.MarketB.ID,
			opp.Best.ProfitPercent.StringFixed(2),
			score.DaysToResolution,
			score.AnnualizedReturn*100,
			score.FractionalKelly,
			score.Score,
			score.Qualified)
	}
	return w.Flush()
}
