package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newswave/newswave/types"
)

// ErrDuplicateSignal is returned when a signal already has an experiment.
// The UNIQUE constraint on experiments.signal_id makes notification
// redelivery safe.
var ErrDuplicateSignal = errors.New("signal already consumed by an experiment")

// OpenExperiment inserts an active position and debits the ledger by
// size + commission in the same transaction. The UPDATE on the latest
// snapshot row takes a row lock, serializing all cash mutations.
func (d *Database) OpenExperiment(ctx context.Context, e *types.Experiment) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO experiments (signal_id, news_item_id, ticker, entry_time,
			entry_price, position_size, shares, commission_paid,
			stop_loss_price, take_profit_price, max_hold_until, sp500_entry, status)
		VALUES ($1, $2, $3, NOW(), $4, $5, $6, $7, $8, $9, $10, $11, 'active')
		ON CONFLICT (signal_id) DO NOTHING
		RETURNING id
	`, e.SignalID, e.NewsItemID, e.Ticker, e.EntryPrice, e.PositionSize,
		e.Shares, e.CommissionPaid, e.StopLossPrice, e.TakeProfitPrice,
		e.MaxHoldUntil, e.SP500Entry).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrDuplicateSignal
	}
	if err != nil {
		return 0, err
	}

	totalCost := e.PositionSize.Add(e.CommissionPaid)
	if err := updateCashTx(ctx, tx, totalCost.Neg()); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// CloseResult carries the exit accounting written on close.
type CloseResult struct {
	ExitPrice     decimal.Decimal
	ExitReason    string
	GrossPnL      decimal.Decimal
	NetPnL        decimal.Decimal
	ReturnPercent decimal.Decimal
	HoldMinutes   int
	SP500Exit     *decimal.Decimal
	SP500Return   *decimal.Decimal
	Alpha         *decimal.Decimal
	Proceeds      decimal.Decimal
}

// CloseExperiment flips an active position to closed, records the exit
// accounting, credits proceeds back to cash and bumps realized P&L, all in
// one transaction. Returns false when the position was not active anymore,
// which makes concurrent close attempts harmless.
func (d *Database) CloseExperiment(ctx context.Context, id int64, res CloseResult) (bool, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE experiments SET
			exit_time = NOW(),
			exit_price = $2,
			exit_reason = $3,
			gross_pnl = $4,
			net_pnl = $5,
			return_percent = $6,
			hold_duration = $7,
			sp500_exit = $8,
			sp500_return = $9,
			alpha = $10,
			status = 'closed',
			updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id, res.ExitPrice, res.ExitReason, res.GrossPnL, res.NetPnL,
		res.ReturnPercent, res.HoldMinutes, res.SP500Exit, res.SP500Return, res.Alpha)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if err := updateCashTx(ctx, tx, res.Proceeds); err != nil {
		return false, err
	}
	if err := updateRealizedTx(ctx, tx, res.NetPnL); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateStopLoss ratchets the stop price of an active position.
func (d *Database) UpdateStopLoss(ctx context.Context, id int64, stop decimal.Decimal) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE experiments SET stop_loss_price = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id, stop)
	return err
}

// ActiveExperiments returns all open positions, oldest first.
func (d *Database) ActiveExperiments(ctx context.Context) ([]types.Experiment, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, signal_id, COALESCE(news_item_id, 0), ticker, entry_time,
			entry_price, position_size, shares, commission_paid,
			stop_loss_price, take_profit_price, max_hold_until, COALESCE(sp500_entry, 0),
			status, created_at, updated_at
		FROM experiments
		WHERE status = 'active'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var experiments []types.Experiment
	for rows.Next() {
		var e types.Experiment
		if err := rows.Scan(&e.ID, &e.SignalID, &e.NewsItemID, &e.Ticker,
			&e.EntryTime, &e.EntryPrice, &e.PositionSize, &e.Shares,
			&e.CommissionPaid, &e.StopLossPrice, &e.TakeProfitPrice,
			&e.MaxHoldUntil, &e.SP500Entry, &e.Status, &e.CreatedAt,
			&e.UpdatedAt); err != nil {
			return nil, err
		}
		experiments = append(experiments, e)
	}
	return experiments, rows.Err()
}

// ActiveExposure returns the count and total dollar size of open positions.
func (d *Database) ActiveExposure(ctx context.Context) (int, decimal.Decimal, error) {
	var count int
	var exposure decimal.Decimal
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(position_size), 0)
		FROM experiments
		WHERE status = 'active'
	`).Scan(&count, &exposure)
	return count, exposure, err
}

// ExpiredExperiments returns active positions whose hold deadline has passed.
func (d *Database) ExpiredExperiments(ctx context.Context, now time.Time) ([]types.Experiment, error) {
	all, err := d.ActiveExperiments(ctx)
	if err != nil {
		return nil, err
	}
	var expired []types.Experiment
	for _, e := range all {
		if e.MaxHoldUntil.Before(now) {
			expired = append(expired, e)
		}
	}
	return expired, nil
}
