package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/internal/arbitrage"
	"github.com/mselser95/arb-scanner/internal/execution"
	"github.com/mselser95/arb-scanner/internal/guard"
	"github.com/mselser95/arb-scanner/internal/matching"
	"github.com/mselser95/arb-scanner/internal/ratelimit"
	"github.com/mselser95/arb-scanner/internal/scanner"
	"github.com/mselser95/arb-scanner/internal/storage"
	"github.com/mselser95/arb-scanner/internal/venue/kalshi"
	"github.com/mselser95/arb-scanner/internal/venue/polymarket"
	"github.com/mselser95/arb-scanner/pkg/config"
	"github.com/mselser95/arb-scanner/pkg/healthprobe"
	"github.com/mselser95/arb-scanner/pkg/httpserver"
)

// New creates a new application instance, wiring every component from cfg.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	matcher, err := setupMatcher(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup matcher: %w", err)
	}

	detector := arbitrage.New(arbitrage.Config{
		KalshiFeeRate:     cfg.KalshiFeeRate,
		PolymarketFeeRate: cfg.PolymarketFeeRate,
		MinProfitCents:    cfg.MinProfitCents,
		Logger:            logger,
	})

	g := guard.New(guard.Config{
		Enabled:            cfg.AutoExecute,
		MaxDailyLossUSD:    cfg.MaxDailyLossUSD,
		MinProfitCents:     cfg.MinProfitCents,
		CooldownSeconds:    cfg.CooldownSeconds,
		MaxPositionSizeUSD: cfg.MaxPositionSizeUSD,
		Logger:             logger,
	})

	executor := execution.New(execution.Config{
		Guard:  g,
		Logger: logger,
	})

	limiter := ratelimit.NewVenueLimiter(cfg.KalshiMaxRPS, cfg.PolymarketMaxRPS)
	kalshiClient := kalshi.New(cfg.KalshiAPIURL, limiter.Kalshi, logger)
	polymarketClient := polymarket.New(cfg.PolymarketGammaURL, cfg.PolymarketCLOBURL, limiter.Polymarket, logger)

	scn := scanner.New(scanner.Config{
		KalshiClient:         kalshiClient,
		PolymarketClient:     polymarketClient,
		Matcher:              matcher,
		Detector:             detector,
		Executor:             executor,
		Guard:                g,
		Storage:              store,
		Logger:               logger,
		ScanInterval:         cfg.ScanInterval(),
		MaxKalshiMarkets:     cfg.MaxKalshiMarkets,
		MaxPolymarketMarkets: cfg.MaxPolymarketMarkets,
		AutoExecute:          cfg.AutoExecute,
	})

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Scanner:       scn,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		scanner:       scn,
		guard:         g,
		executor:      executor,
		store:         store,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupMatcher(cfg *config.Config, logger *zap.Logger) (*matching.Matcher, error) {
	return matching.New(&matching.Config{
		Threshold:     cfg.MatchSimilarityThresh,
		OverridesPath: cfg.OverridesPath,
		Logger:        logger,
	})
}
