package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/newswave/newswave/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXIT ACCOUNTING - P&L, returns, benchmark alpha
// ═══════════════════════════════════════════════════════════════════════════════

// ExitAccounting is the complete accounting for closing one position.
type ExitAccounting struct {
	Proceeds      decimal.Decimal
	EntryCost     decimal.Decimal
	GrossPnL      decimal.Decimal
	NetPnL        decimal.Decimal
	ReturnPercent decimal.Decimal
	HoldMinutes   int
	SP500Return   *decimal.Decimal
	Alpha         *decimal.Decimal
}

// ComputeExit derives the close accounting from the position, the fill and
// the benchmark anchors. The benchmark return is computed at exit only, and
// only when both SPY anchors exist.
func ComputeExit(e *types.Experiment, exitPrice, exitCommission decimal.Decimal, sp500Exit *decimal.Decimal, now time.Time) ExitAccounting {
	proceeds := e.Shares.Mul(exitPrice).Sub(exitCommission)
	entryCost := e.PositionSize.Add(e.CommissionPaid)

	grossPnL := proceeds.Sub(entryCost)
	netPnL := grossPnL // commissions already included on both legs

	returnPct := decimal.Zero
	if entryCost.IsPositive() {
		returnPct = netPnL.Div(entryCost).Mul(decimal.NewFromInt(100))
	}

	acct := ExitAccounting{
		Proceeds:      proceeds,
		EntryCost:     entryCost,
		GrossPnL:      grossPnL,
		NetPnL:        netPnL,
		ReturnPercent: returnPct,
		HoldMinutes:   int(now.Sub(e.EntryTime).Minutes()),
	}

	if sp500Exit != nil && e.SP500Entry.IsPositive() {
		spReturn := sp500Exit.Div(e.SP500Entry).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
		alpha := returnPct.Sub(spReturn)
		acct.SP500Return = &spReturn
		acct.Alpha = &alpha
	}

	return acct
}
