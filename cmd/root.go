package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "arb-scanner",
	Short: "Cross-venue Kalshi/Polymarket arbitrage scanner",
	Long: `A scanner that cross-references Kalshi and Polymarket binary prediction
markets, fuzzy-matches equivalent markets across the two venues, and detects
arbitrage opportunities where a YES leg on one venue plus a NO leg on the
other costs less than $1.00 after worst-case fees.

It exposes detected opportunities, matched markets and live stats over an
HTTP control plane, and can optionally auto-execute the best opportunity
each scan subject to guardrail checks.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
