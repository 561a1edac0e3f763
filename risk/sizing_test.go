package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newswave/newswave/types"
)

func sizingParams() SizingParams {
	return SizingParams{
		BasePositionPercent:   2.0,
		ConfidenceFactorMin:   0.5,
		ConfidenceFactorMax:   1.5,
		VolatilityFactorMin:   0.5,
		CorrelationFactorMin:  0.5,
		MaxPositionPercent:    10,
		MinPositionSize:       dec(100),
		MinCashReservePercent: 10,
	}
}

func TestPositionSize_ConfidenceScaling(t *testing.T) {
	status := types.PortfolioStatus{
		TotalValue:    dec(10000),
		CashBalance:   dec(10000),
		AvailableCash: dec(10000),
	}

	// base = 200; confidence 65 → factor 0.65 → 130
	size := PositionSize(status, 65, 1.0, 1.0, sizingParams())
	assert.True(t, size.Equal(dec(130)), "got %s", size)
}

func TestPositionSize_ConfidenceFactorClamped(t *testing.T) {
	status := types.PortfolioStatus{
		TotalValue:    dec(10000),
		CashBalance:   dec(10000),
		AvailableCash: dec(10000),
	}

	// confidence 10 → factor clamps at 0.5 → 100
	low := PositionSize(status, 10, 1.0, 1.0, sizingParams())
	assert.True(t, low.Equal(dec(100)), "got %s", low)

	// confidence 100 → factor 1.0 (100/100), not 1.5 → 200
	full := PositionSize(status, 100, 1.0, 1.0, sizingParams())
	assert.True(t, full.Equal(dec(200)), "got %s", full)
}

func TestPositionSize_RaisedToMinimum(t *testing.T) {
	status := types.PortfolioStatus{
		TotalValue:    dec(4000),
		CashBalance:   dec(4000),
		AvailableCash: dec(4000),
	}

	// base = 80, conf factor 0.5 → 40, raised to the 100 minimum
	size := PositionSize(status, 40, 1.0, 1.0, sizingParams())
	assert.True(t, size.Equal(dec(100)), "got %s", size)
}

func TestPositionSize_CappedByMaxPercent(t *testing.T) {
	p := sizingParams()
	p.BasePositionPercent = 9

	status := types.PortfolioStatus{
		TotalValue:    dec(10000),
		CashBalance:   dec(10000),
		AvailableCash: dec(10000),
	}

	// base = 900 × 1.5 = 1350, capped at 10% = 1000
	size := PositionSize(status, 150, 1.0, 1.0, p)
	assert.True(t, size.Equal(dec(1000)), "got %s", size)
}

func TestPositionSize_CappedByCashReserve(t *testing.T) {
	status := types.PortfolioStatus{
		TotalValue:    dec(10000),
		CashBalance:   dec(1100),
		AvailableCash: dec(1100),
	}

	// available 1100 - reserve 1000 = 100 available above the floor
	size := PositionSize(status, 100, 1.0, 1.0, sizingParams())
	assert.True(t, size.Equal(dec(100)), "got %s", size)
}
