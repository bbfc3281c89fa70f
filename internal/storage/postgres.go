package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/pkg/types"
)

// schemaDDL creates the opportunities table if it doesn't already exist.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
	id                 BIGSERIAL PRIMARY KEY,
	kalshi_ticker      TEXT NOT NULL,
	kalshi_title       TEXT NOT NULL,
	polymarket_title   TEXT NOT NULL,
	similarity_score   DOUBLE PRECISION NOT NULL,
	direction          TEXT NOT NULL,
	kalshi_price       DOUBLE PRECISION NOT NULL,
	polymarket_price   DOUBLE PRECISION NOT NULL,
	cost               DOUBLE PRECISION NOT NULL,
	profit             DOUBLE PRECISION NOT NULL,
	roi                DOUBLE PRECISION NOT NULL,
	max_size           DOUBLE PRECISION NOT NULL,
	detected_at        TIMESTAMPTZ NOT NULL
)`

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage and ensures the
// opportunities table exists.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreOpportunity stores an arbitrage opportunity in PostgreSQL.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *types.Opportunity) error {
	query := `
		INSERT INTO arbitrage_opportunities (
			kalshi_ticker, kalshi_title, polymarket_title, similarity_score,
			direction, kalshi_price, polymarket_price,
			cost, profit, roi, max_size, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := p.db.ExecContext(ctx, query,
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
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("kalshi-ticker", opp.Pair.Kalshi.Ticker),
		zap.Float64("roi", opp.ROI))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
