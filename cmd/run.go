package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mselser95/arb-scanner/internal/app"
	"github.com/mselser95/arb-scanner/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage scanner",
	Long: `Starts the scanner, which will:
1. Fetch active markets from Kalshi and Polymarket
2. Fuzzy-match equivalent markets across the two venues
3. Enrich matched pairs with live orderbook depth
4. Detect arbitrage opportunities and expose them over the HTTP control plane
5. Optionally auto-execute the best opportunity each scan, subject to
   guardrail checks`,
	RunE: runScanner,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runScanner(cmd *cobra.Command, args []string) error {
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

	application, err := app.New(cfg, logger, &app.Options{})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
