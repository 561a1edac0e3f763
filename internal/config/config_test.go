package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommission_FixedFloor(t *testing.T) {
	cfg := &ManagerConfig{
		CommissionFixed:   decimal.NewFromFloat(1.0),
		CommissionPercent: 0.1,
	}

	// 0.1% of 500 = 0.50 < fixed 1.00
	assert.True(t, cfg.Commission(decimal.NewFromInt(500)).Equal(decimal.NewFromFloat(1.0)))

	// 0.1% of 2000 = 2.00 > fixed
	assert.True(t, cfg.Commission(decimal.NewFromInt(2000)).Equal(decimal.NewFromFloat(2.0)))
}

func TestSlippage_LiquidityWidening(t *testing.T) {
	cfg := &ManagerConfig{
		SlippageLiquidPercent:    0.05,
		SlippageIlliquidPercent:  0.2,
		LiquidityThresholdVolume: 1000000,
	}
	price := decimal.NewFromInt(100)

	assert.True(t, cfg.Slippage(price, 5000000).Equal(decimal.NewFromFloat(0.05)))
	assert.True(t, cfg.Slippage(price, 500000).Equal(decimal.NewFromFloat(0.2)))
	// Unknown volume defaults to liquid in this helper.
	assert.True(t, cfg.Slippage(price, 0).Equal(decimal.NewFromFloat(0.05)))
}

func TestLoadManager_Defaults(t *testing.T) {
	cfg, err := LoadManager()
	require.NoError(t, err)

	assert.True(t, cfg.InitialCapital.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 10.0, cfg.MinCashReservePercent)
	assert.Equal(t, 20, cfg.MaxConcurrentPositions)
	assert.Equal(t, 5.0, cfg.DailyLossLimitPercent)
	assert.Equal(t, 2.0, cfg.TrailingStopActivationPercent)
	assert.Equal(t, 1.5, cfg.TrailingStopDistancePercent)
}

func TestLoadManager_RejectsOutOfRange(t *testing.T) {
	t.Setenv("MIN_CASH_RESERVE_PERCENT", "90")
	_, err := LoadManager()
	assert.Error(t, err)
}

func TestLoadAnalyzer_RequiresKeys(t *testing.T) {
	t.Setenv("FINNHUB_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	_, err := LoadAnalyzer()
	assert.Error(t, err)
}

func TestLoadAnalyzer_Defaults(t *testing.T) {
	t.Setenv("FINNHUB_API_KEY", "fk")
	t.Setenv("OPENROUTER_API_KEY", "ok")

	cfg, err := LoadAnalyzer()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.SignificanceThreshold)
	assert.Equal(t, "anthropic/claude-3-haiku", cfg.LLM.Model)
	assert.Equal(t, 24, cfg.SkipNewsOlderHours)
}

func TestLoadExtractor_Defaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "ok")

	cfg, err := LoadExtractor()
	require.NoError(t, err)

	assert.Equal(t, 1.0, cfg.MinExpectedMovePercent)
	assert.Equal(t, 40, cfg.MinConfidence)
	assert.Equal(t, 10, cfg.MaxSignalsPerNews)
	assert.Equal(t, 6, cfg.DefaultMaxHoldHours)
}
