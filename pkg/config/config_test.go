package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"LOG_LEVEL", "HTTP_PORT", "KALSHI_API_URL", "POLYMARKET_GAMMA_URL", "POLYMARKET_CLOB_URL",
		"SCAN_INTERVAL_SECONDS", "MIN_PROFIT_CENTS", "MATCH_SIMILARITY_THRESHOLD", "AUTO_EXECUTE",
		"MAX_POSITION_SIZE_USD", "MAX_DAILY_LOSS_USD", "EXECUTION_COOLDOWN_SECONDS",
		"POLYMARKET_FEE_RATE", "KALSHI_FEE_RATE", "MAX_POLYMARKET_MARKETS", "MAX_KALSHI_MARKETS",
		"KALSHI_MAX_RPS", "POLYMARKET_MAX_RPS", "STORAGE_MODE",
	}
	for _, k := range keys {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	require.Equal(t, 60, cfg.ScanIntervalSeconds)
	require.InDelta(t, 2.0, cfg.MinProfitCents, 1e-9)
	require.Equal(t, 80, cfg.MatchSimilarityThresh)
	require.False(t, cfg.AutoExecute)
	require.InDelta(t, 0.07, cfg.KalshiFeeRate, 1e-9)
	require.InDelta(t, 0.02, cfg.PolymarketFeeRate, 1e-9)
	require.InDelta(t, 100.0, cfg.MaxPositionSizeUSD, 1e-9)
	require.InDelta(t, 50.0, cfg.MaxDailyLossUSD, 1e-9)
	require.InDelta(t, 5.0, cfg.CooldownSeconds, 1e-9)
	require.Equal(t, 15000, cfg.MaxKalshiMarkets)
	require.Equal(t, 5000, cfg.MaxPolymarketMarkets)
	require.Equal(t, "console", cfg.StorageMode)
}

func TestLoadFromEnv_OverridesFromEnvironment(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("SCAN_INTERVAL_SECONDS", "30"))
	require.NoError(t, os.Setenv("STORAGE_MODE", "postgres"))
	defer clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, 30, cfg.ScanIntervalSeconds)
	require.Equal(t, "postgres", cfg.StorageMode)
}

func TestValidate_RejectsInvalidStorageMode(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	cfg.StorageMode = "mongo"
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveScanInterval(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	cfg.ScanIntervalSeconds = 0
	require.Error(t, cfg.Validate())
}

func TestScanInterval_ConvertsSecondsToDuration(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, cfg.ScanIntervalSeconds, int(cfg.ScanInterval().Seconds()))
}
