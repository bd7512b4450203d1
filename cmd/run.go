package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/predixlabs/crossarb/internal/app"
	"github.com/predixlabs/crossarb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage scanner service",
	Long: `Starts the cross-exchange scanner, which will:
1. List and match binary markets across Kalshi and Polymarket
2. Poll quotes on a schedule and rescan on streamed price updates
3. Price both arbitrage directions with fees and depth-bounded sizing
4. Persist, rank, and publish detected opportunities

Use --category to restrict scanning to one market category.`,
	RunE: runService,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("category", "c", "", "Scan only markets in this category")
}

func runService(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create logger
	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Get flags
	category, _ := cmd.Flags().GetString("category")

	application, err := app.New(cfg, logger, &app.Options{
		Category: category,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
