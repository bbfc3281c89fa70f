package storage

import (
	"context"

	"github.com/mselser95/arb-scanner/pkg/types"
)

// Storage persists detected arbitrage opportunities.
type Storage interface {
	// StoreOpportunity stores an arbitrage opportunity.
	StoreOpportunity(ctx context.Context, opp *types.Opportunity) error

	// Close closes the storage connection.
	Close() error
}
