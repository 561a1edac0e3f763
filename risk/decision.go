package risk

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/newswave/newswave/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXIT DECISIONS - Stop loss, take profit, trailing stop, time expiry
// ═══════════════════════════════════════════════════════════════════════════════

// ExitParams tune the trailing-stop behaviour.
type ExitParams struct {
	TrailingActivationPercent float64
	TrailingDistancePercent   float64
}

// Decision is the outcome of one monitor pass over one position.
type Decision struct {
	Close      bool
	Reason     string
	UpdateStop bool
	NewStop    decimal.Decimal
}

// CheckExit evaluates one observed price against a position. Stop loss wins
// over take profit; while the position stays open the stop may ratchet up,
// never down.
func CheckExit(e *types.Experiment, current decimal.Decimal, p ExitParams) Decision {
	if current.LessThanOrEqual(e.StopLossPrice) {
		return Decision{Close: true, Reason: types.ExitStopLoss}
	}

	if current.GreaterThanOrEqual(e.TakeProfitPrice) {
		return Decision{Close: true, Reason: types.ExitTakeProfit}
	}

	unrealizedPct := UnrealizedPercent(e, current)
	if unrealizedPct.GreaterThanOrEqual(decimal.NewFromFloat(p.TrailingActivationPercent)) {
		newStop := current.Mul(decimal.NewFromFloat(1 - p.TrailingDistancePercent/100))
		if newStop.GreaterThan(e.StopLossPrice) {
			return Decision{UpdateStop: true, NewStop: newStop}
		}
	}

	return Decision{}
}

// UnrealizedPercent is the current return of the position in percent.
func UnrealizedPercent(e *types.Experiment, current decimal.Decimal) decimal.Decimal {
	if !e.PositionSize.IsPositive() {
		return decimal.Zero
	}
	currentValue := e.Shares.Mul(current)
	return currentValue.Sub(e.PositionSize).Div(e.PositionSize).Mul(decimal.NewFromInt(100))
}

// HoldExpired reports whether the position passed its hold deadline.
func HoldExpired(e *types.Experiment, now time.Time) bool {
	return e.MaxHoldUntil.Before(now)
}
