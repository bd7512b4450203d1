package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "crossarb",
	Short: "Cross-exchange prediction market arbitrage scanner",
	Long: `Crossarb scans Kalshi and Polymarket for binary markets resolving on the
same event, prices riskless YES/NO positions across the two venues, and
surfaces opportunities where the combined cost of both legs stays below
the guaranteed $1 payout after fees.

Matched pairs are gated on resolution criteria alignment so that markets
which merely sound alike never count as arbitrage.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
