package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/newswave/newswave/internal/config"
	"github.com/newswave/newswave/internal/market"
	"github.com/newswave/newswave/storage"
	"github.com/newswave/newswave/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PORTFOLIO MANAGER - Virtual positions over the snapshot ledger
// ═══════════════════════════════════════════════════════════════════════════════

type Manager struct {
	cfg  *config.ManagerConfig
	db   *storage.Database
	data *market.Data
}

// NewManager wires the portfolio manager.
func NewManager(cfg *config.ManagerConfig, db *storage.Database, data *market.Data) *Manager {
	return &Manager{cfg: cfg, db: db, data: data}
}

// EnsureInitialized seeds the ledger with the starting capital on first run.
func (m *Manager) EnsureInitialized(ctx context.Context) error {
	snap, err := m.db.LatestSnapshot(ctx)
	if err != nil {
		return err
	}
	if snap != nil {
		return nil
	}
	if err := m.db.InsertInitialSnapshot(ctx, m.cfg.InitialCapital); err != nil {
		return err
	}
	log.Info().Str("capital", m.cfg.InitialCapital.StringFixed(2)).Msg("Created initial portfolio")
	return nil
}

// Status assembles the live portfolio view: latest ledger row plus current
// exposure and unrealized P&L from quotes.
func (m *Manager) Status(ctx context.Context) (types.PortfolioStatus, error) {
	snap, err := m.db.LatestSnapshot(ctx)
	if err != nil {
		return types.PortfolioStatus{}, err
	}
	if snap == nil {
		if err := m.EnsureInitialized(ctx); err != nil {
			return types.PortfolioStatus{}, err
		}
		if snap, err = m.db.LatestSnapshot(ctx); err != nil || snap == nil {
			return types.PortfolioStatus{}, fmt.Errorf("ledger initialization failed: %w", err)
		}
	}

	count, exposure, err := m.db.ActiveExposure(ctx)
	if err != nil {
		return types.PortfolioStatus{}, err
	}

	unrealized := m.UnrealizedPnL(ctx)
	totalValue := snap.CashBalance.Add(unrealized).Add(exposure)

	status := types.PortfolioStatus{
		TotalValue:        totalValue,
		CashBalance:       snap.CashBalance,
		AvailableCash:     snap.CashBalance,
		PositionsCount:    count,
		PositionsExposure: exposure,
		UnrealizedPnL:     unrealized,
		RealizedPnLToday:  snap.RealizedPnLToday,
		RealizedPnLTotal:  snap.RealizedPnLTotal,
		LastUpdated:       snap.Timestamp,
	}

	if snap.TotalValue.IsPositive() {
		status.DailyReturn = totalValue.Div(snap.TotalValue).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
	}
	if m.cfg.InitialCapital.IsPositive() {
		status.TotalReturn = totalValue.Div(m.cfg.InitialCapital).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
	}
	return status, nil
}

// UnrealizedPnL sums shares × price − size over active positions. Positions
// with no obtainable price contribute nothing.
func (m *Manager) UnrealizedPnL(ctx context.Context) decimal.Decimal {
	active, err := m.db.ActiveExperiments(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load active positions for unrealized P&L")
		return decimal.Zero
	}

	total := decimal.Zero
	for _, e := range active {
		quote, err := m.data.CurrentPrice(ctx, e.Ticker, true)
		if err != nil {
			log.Debug().Str("ticker", e.Ticker).Msg("No price for unrealized P&L")
			continue
		}
		total = total.Add(e.Shares.Mul(quote.Price).Sub(e.PositionSize))
	}
	return total
}

// Enter opens a position from a signal at the given realistic execution.
func (m *Manager) Enter(ctx context.Context, view *types.SignalView, size decimal.Decimal, exec *types.Execution, maxHoldUntil time.Time) (int64, error) {
	sp500Entry := decimal.Zero
	if quote := m.data.BenchmarkPrice(ctx); quote != nil {
		sp500Entry = quote.Price
	} else {
		log.Warn().Msg("No SPY benchmark price, proceeding without benchmark")
	}

	shares := size.Div(exec.ExecutionPrice)
	commission := m.cfg.Commission(size)

	stopLoss := exec.ExecutionPrice.Mul(decimal.NewFromFloat(1 - m.cfg.DefaultStopLossPercent/100))
	takeProfit := exec.ExecutionPrice.Mul(decimal.NewFromFloat(1 + m.cfg.DefaultTakeProfitPercent/100))

	experiment := &types.Experiment{
		SignalID:        view.ID,
		NewsItemID:      view.NewsItemID,
		Ticker:          view.Conditions.Ticker,
		EntryPrice:      exec.ExecutionPrice,
		PositionSize:    size,
		Shares:          shares,
		CommissionPaid:  commission,
		StopLossPrice:   stopLoss,
		TakeProfitPrice: takeProfit,
		MaxHoldUntil:    maxHoldUntil,
		SP500Entry:      sp500Entry,
	}

	id, err := m.db.OpenExperiment(ctx, experiment)
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("ticker", experiment.Ticker).
		Str("market_price", exec.MarketPrice.StringFixed(2)).
		Str("entry_price", exec.ExecutionPrice.StringFixed(2)).
		Str("shares", shares.StringFixed(4)).
		Str("size", size.StringFixed(2)).
		Str("commission", commission.StringFixed(2)).
		Str("stop_loss", stopLoss.StringFixed(2)).
		Str("take_profit", takeProfit.StringFixed(2)).
		Time("max_hold_until", maxHoldUntil).
		Msg("💰 BUYING")

	return id, nil
}

// Exit closes a position. With an observed price the sell-side slippage is
// applied to it; otherwise a fresh realistic sell execution is priced.
// Returns false when the position was already closed by a concurrent path.
func (m *Manager) Exit(ctx context.Context, e *types.Experiment, reason string, observed *decimal.Decimal) (bool, error) {
	var exitPrice decimal.Decimal
	if observed != nil {
		exitPrice = observed.Sub(m.cfg.Slippage(*observed, 0))
	} else {
		exec, err := m.data.RealisticExecution(ctx, e.Ticker, types.SignalSell, e.PositionSize)
		if err != nil {
			return false, fmt.Errorf("no exit price for %s: %w", e.Ticker, err)
		}
		exitPrice = exec.ExecutionPrice
	}

	var sp500Exit *decimal.Decimal
	if quote := m.data.BenchmarkPrice(ctx); quote != nil {
		sp500Exit = &quote.Price
	}

	exitCommission := m.cfg.Commission(e.PositionSize)
	acct := ComputeExit(e, exitPrice, exitCommission, sp500Exit, time.Now().UTC())

	closed, err := m.db.CloseExperiment(ctx, e.ID, storage.CloseResult{
		ExitPrice:     exitPrice,
		ExitReason:    reason,
		GrossPnL:      acct.GrossPnL,
		NetPnL:        acct.NetPnL,
		ReturnPercent: acct.ReturnPercent,
		HoldMinutes:   acct.HoldMinutes,
		SP500Exit:     sp500Exit,
		SP500Return:   acct.SP500Return,
		Alpha:         acct.Alpha,
		Proceeds:      acct.Proceeds,
	})
	if err != nil || !closed {
		return closed, err
	}

	event := log.Info().
		Int64("experiment", e.ID).
		Str("ticker", e.Ticker).
		Str("reason", reason).
		Str("exit_price", exitPrice.StringFixed(2)).
		Str("pnl", acct.NetPnL.StringFixed(2)).
		Str("return_pct", acct.ReturnPercent.StringFixed(2)).
		Str("held", (time.Duration(acct.HoldMinutes) * time.Minute).String())
	if acct.Alpha != nil {
		event = event.Str("alpha", acct.Alpha.StringFixed(2))
	}
	if acct.NetPnL.IsPositive() {
		event.Msg("📈 CLOSING position")
	} else {
		event.Msg("📉 CLOSING position")
	}

	return true, nil
}

// Snapshot appends the current portfolio state to the ledger.
func (m *Manager) Snapshot(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if err := m.db.InsertSnapshot(ctx, &status); err != nil {
		return err
	}
	log.Debug().Str("total_value", status.TotalValue.StringFixed(2)).Msg("Portfolio snapshot created")
	return nil
}
