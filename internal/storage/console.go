package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/pkg/types"
)

// ConsoleStorage implements Storage by pretty-printing opportunities to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreOpportunity pretty-prints an arbitrage opportunity to console.
func (c *ConsoleStorage) StoreOpportunity(ctx context.Context, opp *types.Opportunity) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ARBITRAGE OPPORTUNITY DETECTED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Kalshi:      %s\n", opp.Pair.Kalshi.Title)
	fmt.Printf("Polymarket:  %s\n", opp.Pair.Polymarket.Title)
	fmt.Printf("Similarity:  %.1f\n", opp.Pair.SimilarityScore)
	fmt.Printf("Direction:   %s\n", opp.Direction)
	fmt.Printf("Time:        %s\n", opp.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Kalshi price:     %.4f\n", opp.KalshiPrice)
	fmt.Printf("  Polymarket price: %.4f\n", opp.PolymarketPrice)
	fmt.Printf("  ───────────────────────────────\n")
	fmt.Printf("  Cost:     %.4f\n", opp.Cost)
	fmt.Printf("  Profit:   %.4f (%.2f%% ROI)\n", opp.Profit, opp.ROI)
	fmt.Printf("  Max size: %.2f\n", opp.MaxSize)
	if opp.Profit > 0 {
		fmt.Printf("  ✓ PROFITABLE after worst-case fees!\n")
	} else {
		fmt.Printf("  ✗ NOT profitable after worst-case fees\n")
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
