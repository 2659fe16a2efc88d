package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/1cbyc/SyntheticQuantEngine/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Parameters
	Symbols  []string // Symbol whitelist processed each cycle
	Interval string   // Candle interval (e.g., "1m", "5m")
	Quantity float64  // Order quantity per position

	// Strategy Parameters
	FastWindow    int     // Fast SMA window, e.g. 20
	SlowWindow    int     // Slow SMA window, e.g. 50
	WindowBuffer  int     // Extra candles kept beyond SlowWindow in the rolling window
	MinConfidence float64 // Entry gate on the SMA spread as a fraction of price; 0 disables

	// Risk Limits
	MaxDailyLoss         float64 // Daily loss stop in quote currency
	MaxDailyProfit       float64 // Daily profit lock; 0 disables
	MaxOpenPositions     int
	MaxConsecutiveLosses int
	TrailingStopDistance float64 // Retrace from high-water-mark, price units
	TakeProfitDistance   float64 // Gain over entry, price units; 0 disables

	// Execution
	PaperMode      bool    // Simulate fills instead of sending real orders
	StartingEquity float64 // Paper account starting equity

	// Live Loop
	PollInterval time.Duration  // Cadence between cycles
	PollTimeout  time.Duration  // Deadline for one candle poll
	DayCutover   *time.Location // Timezone whose midnight resets daily risk counters
	MaxCycles    int            // Stop after N cycles; 0 means run until canceled

	// Persistence
	DBPath       string
	AuditLogPath string // CSV mirror of the fill audit log

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat string          // "text" (stdlib) or "json" (zap)

	// Connection Settings
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Execution mode first: keys are only mandatory for live order routing.
	cfg.PaperMode = getEnvAsBool("PAPER_MODE", true)
	if !cfg.PaperMode {
		if cfg.APIKey == "" {
			errs = append(errs, "BINANCE_API_KEY must be set when PAPER_MODE is false")
		}
		if cfg.SecretKey == "" {
			errs = append(errs, "BINANCE_API_SECRET must be set when PAPER_MODE is false")
		}
	}

	cfg.StartingEquity, err = getEnvAsFloatRequired("PAPER_STARTING_EQUITY", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PAPER_STARTING_EQUITY: %v", err))
	} else if cfg.StartingEquity <= 0 {
		errs = append(errs, "PAPER_STARTING_EQUITY must be positive")
	}

	// Trading Parameters
	symbolsRaw := getEnv("SYMBOLS", "BTCUSDT")
	for _, s := range strings.Split(symbolsRaw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.Symbols = append(cfg.Symbols, s)
		}
	}
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one symbol")
	}

	cfg.Interval = getEnv("INTERVAL", "1m")
	if cfg.Interval == "" {
		errs = append(errs, "INTERVAL must be set")
	}

	cfg.Quantity, err = getEnvAsFloatRequired("QUANTITY", 1.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid QUANTITY: %v", err))
	} else if cfg.Quantity <= 0 {
		errs = append(errs, "QUANTITY must be positive")
	}

	// Strategy Parameters
	cfg.FastWindow = getEnvAsInt("FAST_WINDOW", 20)
	cfg.SlowWindow = getEnvAsInt("SLOW_WINDOW", 50)
	cfg.WindowBuffer = getEnvAsInt("WINDOW_BUFFER", 10)
	if cfg.FastWindow <= 0 || cfg.SlowWindow <= 0 {
		errs = append(errs, "FAST_WINDOW and SLOW_WINDOW must be positive")
	}
	if cfg.FastWindow >= cfg.SlowWindow {
		errs = append(errs, "FAST_WINDOW must be less than SLOW_WINDOW")
	}
	if cfg.WindowBuffer < 0 {
		errs = append(errs, "WINDOW_BUFFER cannot be negative")
	}

	cfg.MinConfidence = getEnvAsFloat("MIN_CONFIDENCE", 0) // 0 disables the entry gate
	if cfg.MinConfidence < 0 {
		errs = append(errs, "MIN_CONFIDENCE cannot be negative")
	}

	// Risk Limits
	cfg.MaxDailyLoss, err = getEnvAsFloatRequired("MAX_DAILY_LOSS", 100.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DAILY_LOSS: %v", err))
	} else if cfg.MaxDailyLoss <= 0 {
		errs = append(errs, "MAX_DAILY_LOSS must be positive")
	}

	cfg.MaxDailyProfit = getEnvAsFloat("MAX_DAILY_PROFIT", 0) // 0 disables the profit lock
	if cfg.MaxDailyProfit < 0 {
		errs = append(errs, "MAX_DAILY_PROFIT cannot be negative")
	}

	cfg.MaxOpenPositions = getEnvAsInt("MAX_OPEN_POSITIONS", 1)
	if cfg.MaxOpenPositions < 1 {
		errs = append(errs, "MAX_OPEN_POSITIONS must be at least 1")
	}

	cfg.MaxConsecutiveLosses = getEnvAsInt("MAX_CONSECUTIVE_LOSSES", 3)
	if cfg.MaxConsecutiveLosses < 1 {
		errs = append(errs, "MAX_CONSECUTIVE_LOSSES must be at least 1")
	}

	cfg.TrailingStopDistance = getEnvAsFloat("TRAILING_STOP_DISTANCE", 0)
	cfg.TakeProfitDistance = getEnvAsFloat("TAKE_PROFIT_DISTANCE", 0)
	if cfg.TrailingStopDistance < 0 || cfg.TakeProfitDistance < 0 {
		errs = append(errs, "TRAILING_STOP_DISTANCE and TAKE_PROFIT_DISTANCE cannot be negative")
	}

	// Live Loop
	pollSeconds := getEnvAsInt("POLL_INTERVAL_SECONDS", 60)
	if pollSeconds <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second

	pollTimeoutSeconds := getEnvAsInt("POLL_TIMEOUT_SECONDS", 10)
	if pollTimeoutSeconds <= 0 {
		errs = append(errs, "POLL_TIMEOUT_SECONDS must be positive")
	}
	cfg.PollTimeout = time.Duration(pollTimeoutSeconds) * time.Second

	tzName := getEnv("DAY_CUTOVER_TZ", "UTC")
	loc, tzErr := time.LoadLocation(tzName)
	if tzErr != nil {
		errs = append(errs, fmt.Sprintf("invalid DAY_CUTOVER_TZ %q: %v", tzName, tzErr))
	} else {
		cfg.DayCutover = loc
	}

	cfg.MaxCycles = getEnvAsInt("MAX_CYCLES", 0)
	if cfg.MaxCycles < 0 {
		errs = append(errs, "MAX_CYCLES cannot be negative")
	}

	// Persistence
	cfg.DBPath = getEnv("DB_PATH", "./data/quant_engine.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	cfg.AuditLogPath = getEnv("AUDIT_LOG_PATH", "./logs/trades.csv")

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be 'text' or 'json'")
	}

	// Connection Settings
	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 5)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
