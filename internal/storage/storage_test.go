package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/pkg/types"
)

func sampleOpportunity() *types.Opportunity {
	return &types.Opportunity{
		Pair: types.MatchedPair{
			Kalshi:          types.Market{Ticker: "KXBTC-25-T1", Title: "Will BTC close above $100k?"},
			Polymarket:      types.Market{Title: "Bitcoin above 100k by EOY"},
			SimilarityScore: 92.5,
		},
		Direction:       types.DirectionKalshiYesPolyNo,
		Cost:            0.90,
		Profit:          0.10,
		ROI:             11.11,
		MaxSize:         50,
		Timestamp:       time.Now().UTC(),
		KalshiPrice:     0.45,
		PolymarketPrice: 0.45,
	}
}

func TestConsoleStorage_StoreOpportunityNeverErrors(t *testing.T) {
	s := NewConsoleStorage(zap.NewNop())
	require.NoError(t, s.StoreOpportunity(context.Background(), sampleOpportunity()))
	require.NoError(t, s.Close())
}

func TestPostgresStorage_StoreOpportunityInsertsExpectedColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := &PostgresStorage{db: db, logger: zap.NewNop()}

	opp := sampleOpportunity()
	mock.ExpectExec("INSERT INTO arbitrage_opportunities").
		WithArgs(
			opp.Pair.Kalshi.Ticker,
			opp.Pair.Kalshi.Title,
			opp.Pair.Polymarket.Title,
			opp.Pair.SimilarityScore,
			string(opp.Direction),
			opp.KalshiPrice,
			opp.PolymarketPrice,
			opp.Cost,
			opp.Profit,
			opp.ROI,
			opp.MaxSize,
			opp.Timestamp,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.StoreOpportunity(context.Background(), opp))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_StoreOpportunityPropagatesDBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := &PostgresStorage{db: db, logger: zap.NewNop()}

	mock.ExpectExec("INSERT INTO arbitrage_opportunities").
		WillReturnError(sql.ErrConnDone)

	err = store.StoreOpportunity(context.Background(), sampleOpportunity())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
