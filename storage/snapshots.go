package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/newswave/newswave/types"
)

// LatestSnapshot returns the newest ledger row, or nil when the portfolio
// has never been initialized.
func (d *Database) LatestSnapshot(ctx context.Context) (*types.PortfolioSnapshot, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, timestamp, total_value, cash_balance, positions_count,
			unrealized_pnl, realized_pnl_today, realized_pnl_total,
			daily_return, total_return
		FROM portfolio_snapshots
		ORDER BY timestamp DESC
		LIMIT 1
	`)

	var s types.PortfolioSnapshot
	err := row.Scan(&s.ID, &s.Timestamp, &s.TotalValue, &s.CashBalance,
		&s.PositionsCount, &s.UnrealizedPnL, &s.RealizedPnLToday,
		&s.RealizedPnLTotal, &s.DailyReturn, &s.TotalReturn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertInitialSnapshot seeds the ledger with the starting capital.
func (d *Database) InsertInitialSnapshot(ctx context.Context, capital decimal.Decimal) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots (total_value, cash_balance, positions_count,
			unrealized_pnl, realized_pnl_today, realized_pnl_total, daily_return, total_return)
		VALUES ($1, $1, 0, 0, 0, 0, 0, 0)
		ON CONFLICT (timestamp) DO NOTHING
	`, capital)
	return err
}

// InsertSnapshot appends a new ledger row.
func (d *Database) InsertSnapshot(ctx context.Context, s *types.PortfolioStatus) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots (total_value, cash_balance, positions_count,
			unrealized_pnl, realized_pnl_today, realized_pnl_total, daily_return, total_return)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.TotalValue, s.CashBalance, s.PositionsCount, s.UnrealizedPnL,
		s.RealizedPnLToday, s.RealizedPnLTotal, s.DailyReturn, s.TotalReturn)
	return err
}

// ResetDailyPnL zeroes realized_pnl_today on the latest row, called once when
// a new Eastern trading day is first observed.
func (d *Database) ResetDailyPnL(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE portfolio_snapshots
		SET realized_pnl_today = 0, timestamp = NOW()
		WHERE timestamp = (SELECT MAX(timestamp) FROM portfolio_snapshots)
	`)
	return err
}

func updateCashTx(ctx context.Context, tx *sql.Tx, change decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE portfolio_snapshots
		SET cash_balance = cash_balance + $1, timestamp = NOW()
		WHERE timestamp = (SELECT MAX(timestamp) FROM portfolio_snapshots)
	`, change)
	return err
}

func updateRealizedTx(ctx context.Context, tx *sql.Tx, pnl decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE portfolio_snapshots
		SET realized_pnl_today = realized_pnl_today + $1,
			realized_pnl_total = realized_pnl_total + $1,
			timestamp = NOW()
		WHERE timestamp = (SELECT MAX(timestamp) FROM portfolio_snapshots)
	`, pnl)
	return err
}
