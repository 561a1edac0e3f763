package risk

import (
	"github.com/shopspring/decimal"

	"github.com/newswave/newswave/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSITION SIZING - Confidence-scaled % of portfolio
// ═══════════════════════════════════════════════════════════════════════════════

// SizingParams tune the position-size formula.
type SizingParams struct {
	BasePositionPercent   float64
	ConfidenceFactorMin   float64
	ConfidenceFactorMax   float64
	VolatilityFactorMin   float64
	CorrelationFactorMin  float64
	MaxPositionPercent    float64
	MinPositionSize       decimal.Decimal
	MinCashReservePercent float64
}

// PositionSize computes the dollar size for a signal:
// base % of total value, scaled by confidence (0-100), volatility and
// correlation factors, clamped to the portfolio limits and to the cash left
// above the reserve. The result can come out below the minimum size; the
// admission gate rejects it then.
func PositionSize(status types.PortfolioStatus, confidence, volatilityFactor, correlationFactor float64, p SizingParams) decimal.Decimal {
	base := status.TotalValue.Mul(decimal.NewFromFloat(p.BasePositionPercent / 100))

	confFactor := clampFloat(confidence/100, p.ConfidenceFactorMin, p.ConfidenceFactorMax)
	volFactor := maxFloat(volatilityFactor, p.VolatilityFactorMin)
	corrFactor := maxFloat(correlationFactor, p.CorrelationFactorMin)

	size := base.
		Mul(decimal.NewFromFloat(confFactor)).
		Mul(decimal.NewFromFloat(volFactor)).
		Mul(decimal.NewFromFloat(corrFactor))

	maxPosition := status.TotalValue.Mul(decimal.NewFromFloat(p.MaxPositionPercent / 100))
	if size.GreaterThan(maxPosition) {
		size = maxPosition
	}
	if size.LessThan(p.MinPositionSize) {
		size = p.MinPositionSize
	}

	reserve := status.TotalValue.Mul(decimal.NewFromFloat(p.MinCashReservePercent / 100))
	maxAvailable := status.AvailableCash.Sub(reserve)
	if size.GreaterThan(maxAvailable) {
		size = maxAvailable
	}

	return size
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxFloat(v, lo float64) float64 {
	if v < lo {
		return lo
	}
	return v
}
