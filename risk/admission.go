package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/newswave/newswave/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ADMISSION - Gatekeeper for opening positions
// ═══════════════════════════════════════════════════════════════════════════════
//
// Checks run in a fixed order and the first failure aborts with its reason.
// The reasons are logged verbatim and audited, so their wording is stable.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Limits are the portfolio risk limits applied at admission.
type Limits struct {
	MaxConcurrentPositions int
	MaxPositionPercent     float64
	MinPositionSize        decimal.Decimal
	MinCashReservePercent  float64
	DailyLossLimitPercent  float64
}

// CanEnter decides whether a position of the given size may be opened
// against the current portfolio. Returns the failed check's reason.
func CanEnter(status types.PortfolioStatus, size decimal.Decimal, limits Limits) (bool, string) {
	if size.GreaterThan(status.AvailableCash) {
		return false, fmt.Sprintf("Insufficient cash: need $%s, have $%s",
			size.StringFixed(2), status.AvailableCash.StringFixed(2))
	}

	if status.PositionsCount >= limits.MaxConcurrentPositions {
		return false, fmt.Sprintf("Maximum positions reached: %d/%d",
			status.PositionsCount, limits.MaxConcurrentPositions)
	}

	maxPosition := status.TotalValue.Mul(decimal.NewFromFloat(limits.MaxPositionPercent / 100))
	if size.GreaterThan(maxPosition) {
		return false, fmt.Sprintf("Position size $%s exceeds limit $%s (%.0f%%)",
			size.StringFixed(2), maxPosition.StringFixed(2), limits.MaxPositionPercent)
	}

	if size.LessThan(limits.MinPositionSize) {
		return false, fmt.Sprintf("Position size $%s below minimum $%s",
			size.StringFixed(2), limits.MinPositionSize.StringFixed(2))
	}

	cashAfter := status.CashBalance.Sub(size)
	reserve := status.TotalValue.Mul(decimal.NewFromFloat(limits.MinCashReservePercent / 100))
	if cashAfter.LessThan(reserve) {
		return false, fmt.Sprintf("Would violate cash reserve: $%s < $%s",
			cashAfter.StringFixed(2), reserve.StringFixed(2))
	}

	if DailyLossBreached(status.RealizedPnLToday, status.TotalValue, limits.DailyLossLimitPercent) {
		return false, fmt.Sprintf("Daily loss limit reached: %s%% >= %.1f%%",
			dailyLossPercent(status.RealizedPnLToday, status.TotalValue).StringFixed(1),
			limits.DailyLossLimitPercent)
	}

	return true, "Position allowed"
}

// DailyLossBreached reports whether the absolute value of today's realized
// P&L has reached the daily limit as a percent of total value. A realized
// gain of that size trips it just as a loss does.
func DailyLossBreached(realizedToday, totalValue decimal.Decimal, limitPercent float64) bool {
	if !totalValue.IsPositive() {
		return false
	}
	return dailyLossPercent(realizedToday, totalValue).
		GreaterThanOrEqual(decimal.NewFromFloat(limitPercent))
}

func dailyLossPercent(realizedToday, totalValue decimal.Decimal) decimal.Decimal {
	if !totalValue.IsPositive() {
		return decimal.Zero
	}
	return realizedToday.Abs().Div(totalValue).Mul(decimal.NewFromInt(100))
}
