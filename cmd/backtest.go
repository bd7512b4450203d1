package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/predixlabs/crossarb/internal/arbitrage"
	"github.com/predixlabs/crossarb/internal/backtest"
	"github.com/predixlabs/crossarb/pkg/config"
	"github.com/predixlabs/crossarb/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay recorded quote history through the arbitrage calculator",
	Long: `Reads a JSON file of recorded quote samples, replays sampled 7-day
windows through the fee-aware calculator under a chosen slippage model,
and reports the strategy's return profile: total and annualized return,
weekly Sharpe, max drawdown, and a 95% confidence interval.

Slippage is priced from the depth each trade consumes against the quoted
book. Recorded outcomes (--resolutions) settle each trade's legs, so
pairs that resolved inconsistently realize their divergence loss; pairs
without recorded outcomes settle as a consistent hedge.

A fixed --seed makes the window sampling reproducible.`,
	RunE: runBacktest,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().StringP("input", "i", "", "JSON file of quote samples (required)")
	backtestCmd.Flags().StringP("resolutions", "r", "", "JSON file mapping venue:marketID to the winning side")
	backtestCmd.Flags().Int64("seed", 0, "Sampling seed (0 draws from the clock)")
	backtestCmd.Flags().IntP("weeks", "w", 12, "Number of 7-day windows to sample")
	backtestCmd.Flags().StringP("model", "m", "realistic", "Slippage model: conservative, realistic, optimistic")
	backtestCmd.Flags().Float64P("size", "s", 100, "Contracts per replayed execution")
	backtestCmd.Flags().Float64P("min-profit", "p", 0.5, "Minimum net profit percent per trade")
	_ = backtestCmd.MarkFlagRequired("input")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	input, _ := cmd.Flags().GetString("input")
	resolutionsPath, _ := cmd.Flags().GetString("resolutions")
	seed, _ := cmd.Flags().GetInt64("seed")
	weeks, _ := cmd.Flags().GetInt("weeks")
	model, _ := cmd.Flags().GetString("model")
	size, _ := cmd.Flags().GetFloat64("size")
	minProfit, _ := cmd.Flags().GetFloat64("min-profit")

	samples, err := loadSamples(input)
	if err != nil {
		return err
	}

	var resolutions map[string]types.Side
	if resolutionsPath != "" {
		resolutions, err = loadResolutions(resolutionsPath)
		if err != nil {
			return err
		}
	}

	calc, err := arbitrage.New(arbitrage.Config{
		Fees:   arbitrage.DefaultFeeSchedule(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create calculator: %w", err)
	}

	engine, err := backtest.New(backtest.Config{
		Calculator:       calc,
		Seed:             seed,
		Weeks:            weeks,
		Model:            backtest.SlippageModel(model),
		TradeSize:        size,
		MinProfitPercent: minProfit,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	result, err := engine.Run(context.Background(), samples, resolutions)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	printBacktestResult(result)
	return nil
}

func loadSamples(path string) ([]backtest.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open samples: %w", err)
	}
	defer f.Close()

	var samples []backtest.Sample
	err = json.NewDecoder(f).Decode(&samples)
	if err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	return samples, nil
}

func loadResolutions(path string) (map[string]types.Side, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open resolutions: %w", err)
	}
	defer f.Close()

	var resolutions map[string]types.Side
	err = json.NewDecoder(f).Decode(&resolutions)
	if err != nil {
		return nil, fmt.Errorf("decode resolutions: %w", err)
	}
	for key, side := range resolutions {
		if side != types.SideYes && side != types.SideNo {
			return nil, fmt.Errorf("resolution %s: side must be %s or %s, got %q",
				key, types.SideYes, types.SideNo, side)
		}
	}
	return resolutions, nil
}

func printBacktestResult(result *backtest.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Model\t%s\n", result.Model)
	fmt.Fprintf(w, "Seed\t%d\n", result.Seed)
	fmt.Fprintf(w, "Weeks sampled\t%d\n", len(result.WeeklyReturns))
	fmt.Fprintf(w, "Trades\t%d (%d skipped, %d diverged)\n", result.Trades, result.Skipped, result.Diverged)
	fmt.Fprintf(w, "Win rate\t%.1f%%\n", result.WinRate()*100)
	fmt.Fprintf(w, "Total return\t%.2f%%\n", result.TotalReturn*100)
	fmt.Fprintf(w, "Annualized return\t%.2f%%\n", result.AnnualizedReturn*100)
	fmt.Fprintf(w, "Weekly Sharpe\t%.2f\n", result.Sharpe)
	fmt.Fprintf(w, "Max drawdown\t%.2f%%\n", result.MaxDrawdown*100)
	fmt.Fprintf(w, "95%% CI (weekly)\t[%.3f%%, %.3f%%]\n", result.CILow*100, result.CIHigh*100)
	_ = w.Flush()
}
