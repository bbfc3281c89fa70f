package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration, loaded from the environment.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Venue API base URLs
	KalshiAPIURL       string
	PolymarketGammaURL string
	PolymarketCLOBURL  string

	// Scanner
	ScanIntervalSeconds   int
	MinProfitCents        float64
	MatchSimilarityThresh int
	AutoExecute           bool

	// Execution credentials (always read from the environment, not validated)
	PolymarketPrivateKey  string
	KalshiAPIKeyID        string
	KalshiPrivateKeyPath  string

	// Risk management
	MaxPositionSizeUSD float64
	MaxDailyLossUSD    float64
	CooldownSeconds    float64

	// Fees, as fractions
	PolymarketFeeRate float64
	KalshiFeeRate     float64

	// Market fetch limits
	MaxPolymarketMarkets int
	MaxKalshiMarkets     int

	// Rate limiting
	KalshiMaxRPS     int
	PolymarketMaxRPS int

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Overrides file
	OverridesPath string
}

// LoadFromEnv loads configuration from environment variables with defaults,
// then validates the result.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		KalshiAPIURL:       getEnvOrDefault("KALSHI_API_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		PolymarketGammaURL: getEnvOrDefault("POLYMARKET_GAMMA_URL", "https://gamma-api.polymarket.com"),
		PolymarketCLOBURL:  getEnvOrDefault("POLYMARKET_CLOB_URL", "https://clob.polymarket.com"),

		ScanIntervalSeconds:   getIntOrDefault("SCAN_INTERVAL_SECONDS", 60),
		MinProfitCents:        getFloat64OrDefault("MIN_PROFIT_CENTS", 2.0),
		MatchSimilarityThresh: getIntOrDefault("MATCH_SIMILARITY_THRESHOLD", 80),
		AutoExecute:           getBoolOrDefault("AUTO_EXECUTE", false),

		PolymarketPrivateKey: os.Getenv("POLYMARKET_PRIVATE_KEY"),
		KalshiAPIKeyID:       os.Getenv("KALSHI_API_KEY_ID"),
		KalshiPrivateKeyPath: os.Getenv("KALSHI_PRIVATE_KEY_PATH"),

		MaxPositionSizeUSD: getFloat64OrDefault("MAX_POSITION_SIZE_USD", 100.0),
		MaxDailyLossUSD:    getFloat64OrDefault("MAX_DAILY_LOSS_USD", 50.0),
		CooldownSeconds:    getFloat64OrDefault("EXECUTION_COOLDOWN_SECONDS", 5.0),

		PolymarketFeeRate: getFloat64OrDefault("POLYMARKET_FEE_RATE", 0.02),
		KalshiFeeRate:     getFloat64OrDefault("KALSHI_FEE_RATE", 0.07),

		MaxPolymarketMarkets: getIntOrDefault("MAX_POLYMARKET_MARKETS", 5000),
		MaxKalshiMarkets:     getIntOrDefault("MAX_KALSHI_MARKETS", 15000),

		KalshiMaxRPS:     getIntOrDefault("KALSHI_MAX_RPS", 10),
		PolymarketMaxRPS: getIntOrDefault("POLYMARKET_MAX_RPS", 10),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "arb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "arb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "arb_scanner"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		OverridesPath: getEnvOrDefault("MARKET_OVERRIDES_PATH", "market_overrides.json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// ScanInterval returns ScanIntervalSeconds as a time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}

	if c.KalshiAPIURL == "" {
		return errors.New("KALSHI_API_URL cannot be empty")
	}

	if c.PolymarketGammaURL == "" {
		return errors.New("POLYMARKET_GAMMA_URL cannot be empty")
	}

	if c.ScanIntervalSeconds <= 0 {
		return fmt.Errorf("SCAN_INTERVAL_SECONDS must be positive, got %d", c.ScanIntervalSeconds)
	}

	if c.MinProfitCents < 0 {
		return fmt.Errorf("MIN_PROFIT_CENTS must be non-negative, got %f", c.MinProfitCents)
	}

	if c.MatchSimilarityThresh < 0 || c.MatchSimilarityThresh > 100 {
		return fmt.Errorf("MATCH_SIMILARITY_THRESHOLD must be between 0 and 100, got %d", c.MatchSimilarityThresh)
	}

	if c.MaxPositionSizeUSD <= 0 {
		return fmt.Errorf("MAX_POSITION_SIZE_USD must be positive, got %f", c.MaxPositionSizeUSD)
	}

	if c.MaxDailyLossUSD <= 0 {
		return fmt.Errorf("MAX_DAILY_LOSS_USD must be positive, got %f", c.MaxDailyLossUSD)
	}

	if c.CooldownSeconds < 0 {
		return fmt.Errorf("EXECUTION_COOLDOWN_SECONDS must be non-negative, got %f", c.CooldownSeconds)
	}

	if c.PolymarketFeeRate < 0 || c.KalshiFeeRate < 0 {
		return errors.New("fee rates must be non-negative")
	}

	if c.MaxPolymarketMarkets <= 0 {
		return fmt.Errorf("MAX_POLYMARKET_MARKETS must be positive, got %d", c.MaxPolymarketMarkets)
	}

	if c.MaxKalshiMarkets <= 0 {
		return fmt.Errorf("MAX_KALSHI_MARKETS must be positive, got %d", c.MaxKalshiMarkets)
	}

	if c.KalshiMaxRPS <= 0 || c.PolymarketMaxRPS <= 0 {
		return errors.New("venue rate limits must be positive")
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}
