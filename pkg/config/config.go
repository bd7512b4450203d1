package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Kalshi API
	KalshiBaseURL string
	KalshiFeedURL string
	KalshiAPIKey  string

	// Polymarket API
	PolymarketGammaURL string
	PolymarketCLOBURL  string
	PolymarketFeedURL  string

	// Market scanning
	ScanInterval   time.Duration
	MarketLimit    int
	MarketCategory string

	// Matching
	MatchMinCorrelation float64

	// Arbitrage
	SafetyMargin     float64
	MaxSlippage      float64
	OpportunityTTL   time.Duration
	MinProfitPercent float64
	CollectAll       bool

	// Quote cache
	QuoteTTL        time.Duration
	CacheMaxEntries int64

	// Streaming feeds
	FeedEnabled           bool
	FeedMaxRetries        int
	FeedReconnectInterval time.Duration
	FeedDialTimeout       time.Duration
	FeedPingInterval      time.Duration
	FeedBufferSize        int
	RealtimeThrottle      time.Duration

	// Notifications
	WebhookURL string

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Kalshi defaults
		KalshiBaseURL: getEnvOrDefault("KALSHI_API_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		KalshiFeedURL: getEnvOrDefault("KALSHI_WS_URL", "wss://api.elections.kalshi.com/trade-api/ws/v2"),
		KalshiAPIKey:  os.Getenv("KALSHI_API_KEY"),

		// Polymarket defaults
		PolymarketGammaURL: getEnvOrDefault("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		PolymarketCLOBURL:  getEnvOrDefault("POLYMARKET_CLOB_API_URL", "https://clob.polymarket.com"),
		PolymarketFeedURL:  getEnvOrDefault("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),

		// Scanning defaults
		ScanInterval:   getDurationOrDefault("SCAN_INTERVAL", 30*time.Second),
		MarketLimit:    getIntOrDefault("MARKET_LIMIT", 200),
		MarketCategory: os.Getenv("MARKET_CATEGORY"),

		// Matching defaults
		MatchMinCorrelation: getFloat64OrDefault("MATCH_MIN_CORRELATION", 0.70),

		// Arbitrage defaults
		SafetyMargin:     getFloat64OrDefault("ARB_SAFETY_MARGIN", 0.005),
		MaxSlippage:      getFloat64OrDefault("ARB_MAX_SLIPPAGE", 0.02),
		OpportunityTTL:   getDurationOrDefault("ARB_OPPORTUNITY_TTL", 60*time.Second),
		MinProfitPercent: getFloat64OrDefault("ARB_MIN_PROFIT_PERCENT", 0.5),
		CollectAll:       getBoolOrDefault("ARB_COLLECT_ALL", false),

		// Cache defaults
		QuoteTTL:        getDurationOrDefault("QUOTE_TTL", 5*time.Second),
		CacheMaxEntries: int64(getIntOrDefault("CACHE_MAX_ENTRIES", 100_000)),

		// Feed defaults
		FeedEnabled:           getBoolOrDefault("FEED_ENABLED", true),
		FeedMaxRetries:        getIntOrDefault("FEED_MAX_RETRIES", 5),
		FeedReconnectInterval: getDurationOrDefault("FEED_RECONNECT_INTERVAL", 5*time.Second),
		FeedDialTimeout:       getDurationOrDefault("FEED_DIAL_TIMEOUT", 10*time.Second),
		FeedPingInterval:      getDurationOrDefault("FEED_PING_INTERVAL", 30*time.Second),
		FeedBufferSize:        getIntOrDefault("FEED_BUFFER_SIZE", 256),
		RealtimeThrottle:      getDurationOrDefault("REALTIME_THROTTLE", 500*time.Millisecond),

		// Notification defaults
		WebhookURL: os.Getenv("WEBHOOK_URL"),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "crossarb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "crossarb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "crossarb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.KalshiBaseURL == "" {
		return fmt.Errorf("KALSHI_API_URL cannot be empty")
	}

	if c.PolymarketGammaURL == "" {
		return fmt.Errorf("POLYMARKET_GAMMA_API_URL cannot be empty")
	}

	if c.MatchMinCorrelation < 0 || c.MatchMinCorrelation > 1 {
		return fmt.Errorf("MATCH_MIN_CORRELATION must be between 0 and 1, got %f", c.MatchMinCorrelation)
	}

	if c.SafetyMargin < 0 || c.SafetyMargin >= 1 {
		return fmt.Errorf("ARB_SAFETY_MARGIN must be in [0, 1), got %f", c.SafetyMargin)
	}

	if c.MaxSlippage < 0 || c.MaxSlippage > 0.10 {
		return fmt.Errorf("ARB_MAX_SLIPPAGE must be in [0, 0.10], got %f", c.MaxSlippage)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

// PostgresConnString assembles the lib/pq connection string.
func (c *Config) PostgresConnString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
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

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
