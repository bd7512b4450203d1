package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/internal/arbitrage"
	"github.com/predixlabs/crossarb/internal/matching"
	"github.com/predixlabs/crossarb/internal/ranking"
	"github.com/predixlabs/crossarb/internal/resolution"
	"github.com/predixlabs/crossarb/internal/scanner"
	"github.com/predixlabs/crossarb/internal/venues/kalshi"
	"github.com/predixlabs/crossarb/internal/venues/polymarket"
	"github.com/predixlabs/crossarb/pkg/cache"
	"github.com/predixlabs/crossarb/pkg/config"
	"github.com/predixlabs/crossarb/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan cycle and print the results",
	Long: `Fetches market listings from both venues, matches them, prices every
matched pair once, and prints the detected opportunities. Nothing is
persisted; use the run command for the continuous service.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("category", "c", "", "Scan only markets in this category")
	scanCmd.Flags().DurationP("timeout", "t", 2*time.Minute, "Overall scan deadline")
}

// scanComponents bundles the pieces a one-shot scan needs.
type scanComponents struct {
	pipeline *scanner.Pipeline
	source   *scanner.MatchedPairSource
	cache    cache.Cache
}

func buildScanComponents(cfg *config.Config, logger *zap.Logger, category string) (*scanComponents, error) {
	quoteCache, err := cache.NewRistretto(cache.RistrettoConfig{
		MaxEntries: cfg.CacheMaxEntries,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	kalshiClient := kalshi.NewClient(kalshi.Config{BaseURL: cfg.KalshiBaseURL, Logger: logger})
	polyClient := polymarket.NewClient(polymarket.Config{
		GammaURL: cfg.PolymarketGammaURL,
		CLOBURL:  cfg.PolymarketCLOBURL,
		Logger:   logger,
	})

	calc, err := arbitrage.New(arbitrage.Config{
		SafetyMargin: decimal.NewFromFloat(cfg.SafetyMargin),
		Fees:         arbitrage.DefaultFeeSchedule(),
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create calculator: %w", err)
	}

	analyzer, err := resolution.New(resolution.Config{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("create analyzer: %w", err)
	}

	matcher, err := matching.New(matching.Config{
		MinScore: cfg.MatchMinCorrelation,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create matcher: %w", err)
	}

	pipeline, err := scanner.NewPipeline(scanner.Config{
		Sources: map[types.Venue]scanner.QuoteSource{
			types.VenueKalshi:     kalshiClient,
			types.VenuePolymarket: polyClient,
		},
		Cache:      quoteCache,
		Calculator: calc,
		Analyzer:   analyzer,
		Ranker: ranking.New(ranking.Config{
			MinProfitPercent: cfg.MinProfitPercent,
			CollectAll:       cfg.CollectAll,
			Logger:           logger,
		}),
		QuoteTTL:    cfg.QuoteTTL,
		MaxSlippage: decimal.NewFromFloat(cfg.MaxSlippage),
		CollectAll:  cfg.CollectAll,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	if category == "" {
		category = cfg.MarketCategory
	}

	return &scanComponents{
		pipeline: pipeline,
		source: &scanner.MatchedPairSource{
			SourceA: kalshiClient,
			SourceB: polyClient,
			Matcher: matcher,
			Filter: types.MarketFilter{
				Category:   category,
				ActiveOnly: true,
				Limit:      cfg.MarketLimit,
			},
		},
		cache: quoteCache,
	}, nil
}

func runScan(cmd *cobra.Command, args []string) error {
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

	category, _ := cmd.Flags().GetString("category")
	timeout, _ := cmd.Flags().GetDuration("timeout")

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

	printReport(report)
	return nil
}

func printReport(report *scanner.Report) {
	fmt.Printf("Scanned %d pairs in %s: %d opportunities, %d gated, %d errors\n\n",
		report.Pairs, report.Duration.Round(time.Millisecond),
		len(report.Opportunities), report.Gated, report.Errors)

	if len(report.Opportunities) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MARKET A\tMARKET B\tCOST\tPROFIT %\tRES SCORE\tMAX SIZE")
	for _, opp := range report.Opportunities {
		fmt.Fprintf(w, "%s:%s\t%s:%s\t%s\t%s\t%d\t$%.0f\n",
			opp.Pair.MarketA.Venue, opp.Pair.MarketA.ID,
			opp.Pair.MarketB.Venue, opp.Pair.MarketB.ID,
			opp.Best.TotalCost.StringFixed(4),
			opp.Best.ProfitPercent.StringFixed(2),
			opp.Alignment.Score,
			opp.MaxSize)
	}
	_ = w.Flush()

	fmt.Printf("\nTradeable: %d/%d  avg profit %.2f%%  max profit %.2f%%\n",
		report.Summary.Tradeable, report.Summary.Total,
		report.Summary.AvgProfit, report.Summary.MaxProfit)
}
