package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION - One frozen settings value per service, built at startup
// ═══════════════════════════════════════════════════════════════════════════════

// LLMConfig holds the OpenRouter settings shared by the analyzer and extractor.
type LLMConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// AnalyzerConfig configures the news analyzer service.
type AnalyzerConfig struct {
	DatabaseURL   string
	FinnhubAPIKey string
	LLM           LLMConfig

	SignificanceThreshold int
	CheckInterval         time.Duration
	SkipNewsOlderHours    int
	MaxNewsPerCheck       int

	// Off-hours cadence
	ClosedInterval  time.Duration
	WeekendInterval time.Duration
}

// ExtractorConfig configures the signal extractor service.
type ExtractorConfig struct {
	DatabaseURL   string
	FinnhubAPIKey string // ticker validation
	LLM           LLMConfig

	MinExpectedMovePercent float64
	MinConfidence          int
	MaxSignalsPerNews      int

	DefaultStopLossPercent   float64
	DefaultTakeProfitPercent float64
	DefaultMaxHoldHours      int
}

// ManagerConfig configures the experiment manager service.
type ManagerConfig struct {
	DatabaseURL        string
	FinnhubAPIKey      string
	AlphaVantageAPIKey string

	// Portfolio
	InitialCapital         decimal.Decimal
	MinCashReservePercent  float64
	MaxPositionPercent     float64
	MinPositionSize        decimal.Decimal
	MaxConcurrentPositions int

	// Risk
	DailyLossLimitPercent         float64
	DefaultStopLossPercent        float64
	DefaultTakeProfitPercent      float64
	TrailingStopActivationPercent float64
	TrailingStopDistancePercent   float64

	// Execution costs
	CommissionFixed          decimal.Decimal
	CommissionPercent        float64
	SlippageLiquidPercent    float64
	SlippageIlliquidPercent  float64
	LiquidityThresholdVolume int64 // daily volume below which slippage widens

	// Position sizing
	BasePositionPercent  float64
	ConfidenceFactorMin  float64
	ConfidenceFactorMax  float64
	VolatilityFactorMin  float64
	CorrelationFactorMin float64

	// Hold windows
	MinHold time.Duration

	// Monitoring cadences
	PositionCheckInterval     time.Duration
	PortfolioSnapshotInterval time.Duration

	// Notifications (optional)
	TelegramToken  string
	TelegramChatID int64
}

func loadLLM(defaultTemp float64, defaultMaxTokens int) LLMConfig {
	return LLMConfig{
		APIKey:      os.Getenv("OPENROUTER_API_KEY"),
		Model:       getEnv("LLM_MODEL", "anthropic/claude-3-haiku"),
		Temperature: getEnvFloat("LLM_TEMPERATURE", defaultTemp),
		MaxTokens:   getEnvInt("LLM_MAX_TOKENS", defaultMaxTokens),
		Timeout:     time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}

// LoadAnalyzer builds the analyzer configuration from the environment.
func LoadAnalyzer() (*AnalyzerConfig, error) {
	cfg := &AnalyzerConfig{
		DatabaseURL:           getEnv("DATABASE_URL", "postgresql://localhost/newswave"),
		FinnhubAPIKey:         os.Getenv("FINNHUB_API_KEY"),
		LLM:                   loadLLM(0.3, 300),
		SignificanceThreshold: getEnvInt("SIGNIFICANCE_THRESHOLD", 60),
		CheckInterval:         time.Duration(getEnvInt("CHECK_INTERVAL_SECONDS", 5)) * time.Second,
		SkipNewsOlderHours:    getEnvInt("SKIP_NEWS_OLDER_HOURS", 24),
		MaxNewsPerCheck:       getEnvInt("MAX_NEWS_PER_CHECK", 20),
		ClosedInterval:        30 * time.Minute,
		WeekendInterval:       60 * time.Minute,
	}

	if cfg.FinnhubAPIKey == "" {
		return nil, fmt.Errorf("FINNHUB_API_KEY is required")
	}
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.SignificanceThreshold < 0 || cfg.SignificanceThreshold > 100 {
		return nil, fmt.Errorf("SIGNIFICANCE_THRESHOLD must be between 0 and 100")
	}
	return cfg, nil
}

// LoadExtractor builds the extractor configuration from the environment.
func LoadExtractor() (*ExtractorConfig, error) {
	cfg := &ExtractorConfig{
		DatabaseURL:              getEnv("DATABASE_URL", "postgresql://localhost/newswave"),
		FinnhubAPIKey:            os.Getenv("FINNHUB_API_KEY"),
		LLM:                      loadLLM(0.4, 2000),
		MinExpectedMovePercent:   getEnvFloat("MIN_EXPECTED_MOVE_PERCENT", 1.0),
		MinConfidence:            getEnvInt("MIN_CONFIDENCE", 40),
		MaxSignalsPerNews:        getEnvInt("MAX_SIGNALS_PER_NEWS", 10),
		DefaultStopLossPercent:   getEnvFloat("DEFAULT_STOP_LOSS_PERCENT", 2.0),
		DefaultTakeProfitPercent: getEnvFloat("DEFAULT_TAKE_PROFIT_PERCENT", 3.0),
		DefaultMaxHoldHours:      getEnvInt("DEFAULT_MAX_HOLD_HOURS", 6),
	}

	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 100 {
		return nil, fmt.Errorf("MIN_CONFIDENCE must be between 0 and 100")
	}
	if cfg.MaxSignalsPerNews <= 0 {
		return nil, fmt.Errorf("MAX_SIGNALS_PER_NEWS must be positive")
	}
	return cfg, nil
}

// LoadManager builds the experiment manager configuration from the environment.
func LoadManager() (*ManagerConfig, error) {
	cfg := &ManagerConfig{
		DatabaseURL:        getEnv("DATABASE_URL", "postgresql://localhost/newswave"),
		FinnhubAPIKey:      os.Getenv("FINNHUB_API_KEY"),
		AlphaVantageAPIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),

		InitialCapital:         getEnvDecimal("INITIAL_CAPITAL", decimal.NewFromInt(10000)),
		MinCashReservePercent:  getEnvFloat("MIN_CASH_RESERVE_PERCENT", 10),
		MaxPositionPercent:     getEnvFloat("MAX_POSITION_PERCENT", 10),
		MinPositionSize:        getEnvDecimal("MIN_POSITION_SIZE", decimal.NewFromInt(100)),
		MaxConcurrentPositions: getEnvInt("MAX_CONCURRENT_POSITIONS", 20),

		DailyLossLimitPercent:         getEnvFloat("DAILY_LOSS_LIMIT_PERCENT", 5),
		DefaultStopLossPercent:        getEnvFloat("DEFAULT_STOP_LOSS_PERCENT", 3),
		DefaultTakeProfitPercent:      getEnvFloat("DEFAULT_TAKE_PROFIT_PERCENT", 5),
		TrailingStopActivationPercent: getEnvFloat("TRAILING_STOP_ACTIVATION_PERCENT", 2),
		TrailingStopDistancePercent:   getEnvFloat("TRAILING_STOP_DISTANCE_PERCENT", 1.5),

		CommissionFixed:          getEnvDecimal("COMMISSION_FIXED", decimal.NewFromFloat(1.0)),
		CommissionPercent:        getEnvFloat("COMMISSION_PERCENT", 0.1),
		SlippageLiquidPercent:    getEnvFloat("SLIPPAGE_LIQUID_PERCENT", 0.05),
		SlippageIlliquidPercent:  getEnvFloat("SLIPPAGE_ILLIQUID_PERCENT", 0.2),
		LiquidityThresholdVolume: int64(getEnvInt("LIQUIDITY_THRESHOLD_VOLUME", 1000000)),

		BasePositionPercent:  getEnvFloat("BASE_POSITION_PERCENT", 2.0),
		ConfidenceFactorMin:  getEnvFloat("CONFIDENCE_FACTOR_MIN", 0.5),
		ConfidenceFactorMax:  getEnvFloat("CONFIDENCE_FACTOR_MAX", 1.5),
		VolatilityFactorMin:  getEnvFloat("VOLATILITY_FACTOR_MIN", 0.5),
		CorrelationFactorMin: getEnvFloat("CORRELATION_FACTOR_MIN", 0.5),

		MinHold: time.Duration(getEnvInt("MIN_HOLD_HOURS", 2)) * time.Hour,

		PositionCheckInterval:     time.Duration(getEnvInt("POSITION_CHECK_INTERVAL_SECONDS", 30)) * time.Second,
		PortfolioSnapshotInterval: time.Duration(getEnvInt("PORTFOLIO_SNAPSHOT_INTERVAL_SECONDS", 300)) * time.Second,

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if !cfg.InitialCapital.IsPositive() {
		return nil, fmt.Errorf("INITIAL_CAPITAL must be positive")
	}
	if cfg.MinCashReservePercent < 0 || cfg.MinCashReservePercent > 50 {
		return nil, fmt.Errorf("MIN_CASH_RESERVE_PERCENT must be between 0 and 50")
	}
	if cfg.MaxPositionPercent <= 0 || cfg.MaxPositionPercent > 50 {
		return nil, fmt.Errorf("MAX_POSITION_PERCENT must be between 0 and 50")
	}
	if cfg.DailyLossLimitPercent <= 0 || cfg.DailyLossLimitPercent > 20 {
		return nil, fmt.Errorf("DAILY_LOSS_LIMIT_PERCENT must be between 0 and 20")
	}
	if cfg.BasePositionPercent <= 0 || cfg.BasePositionPercent > 10 {
		return nil, fmt.Errorf("BASE_POSITION_PERCENT must be between 0 and 10")
	}
	return cfg, nil
}

// Commission returns the commission for a position of the given dollar size:
// max(fixed, size × percent).
func (c *ManagerConfig) Commission(size decimal.Decimal) decimal.Decimal {
	pct := size.Mul(decimal.NewFromFloat(c.CommissionPercent / 100))
	if pct.GreaterThan(c.CommissionFixed) {
		return pct
	}
	return c.CommissionFixed
}

// Slippage returns the per-share slippage for a quote, widened when daily
// volume is below the liquidity threshold. Zero volume means unknown and is
// treated as liquid here, unlike market.ComputeExecution, which prices
// unknown volume as illiquid.
func (c *ManagerConfig) Slippage(price decimal.Decimal, volume int64) decimal.Decimal {
	pct := c.SlippageLiquidPercent
	if volume > 0 && volume < c.LiquidityThresholdVolume {
		pct = c.SlippageIlliquidPercent
	}
	return price.Mul(decimal.NewFromFloat(pct / 100))
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
