package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/newswave/newswave/types"
)

// SaveSignals persists a batch of signals for one news item and stamps the
// news row processed, all in one transaction. Each insert fires the
// new_trading_signals notification, so redelivery after a crash mid-commit
// is impossible: either everything is visible or nothing is.
func (d *Database) SaveSignals(ctx context.Context, newsItemID int64, signals []types.TradingSignal) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	saved := 0
	for _, s := range signals {
		conditions, err := json.Marshal(s.Conditions)
		if err != nil {
			return 0, err
		}

		var id int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO trading_signals (news_item_id, signal_type, confidence,
				elliott_wave, wave_description, reasoning, market_conditions)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, newsItemID, s.SignalType, s.Confidence, s.Wave, s.WaveDescription,
			s.Reasoning, conditions).Scan(&id)
		if err != nil {
			return 0, err
		}

		if err := notify(ctx, tx, ChannelTradingSignals, id); err != nil {
			return 0, err
		}
		saved++
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE news_items
		SET processed_by_block2 = TRUE, block2_processed_at = NOW()
		WHERE id = $1
	`, newsItemID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return saved, nil
}

// SignalViewByID loads a signal joined with its news item.
func (d *Database) SignalViewByID(ctx context.Context, id int64) (*types.SignalView, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT s.id, s.news_item_id, s.signal_type, s.confidence, s.elliott_wave,
			s.wave_description, s.reasoning, s.market_conditions, s.created_at,
			n.headline, n.published_at
		FROM trading_signals s
		JOIN news_items n ON n.id = s.news_item_id
		WHERE s.id = $1
	`, id)

	var v types.SignalView
	var conditions []byte
	err := row.Scan(&v.ID, &v.NewsItemID, &v.SignalType, &v.Confidence, &v.Wave,
		&v.WaveDescription, &v.Reasoning, &conditions, &v.CreatedAt,
		&v.Headline, &v.NewsPublishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &v.Conditions); err != nil {
			return nil, err
		}
	}
	return &v, nil
}

// UnconsumedSignals returns ids of signals that have no experiment yet and
// whose entry window has not closed. The intake path re-validates the window,
// so this only needs to be a superset of the actionable set.
func (d *Database) UnconsumedSignals(ctx context.Context, limit int) ([]int64, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT s.id
		FROM trading_signals s
		WHERE s.signal_type IN ('BUY', 'SELL', 'SHORT')
		  AND NOT EXISTS (SELECT 1 FROM experiments e WHERE e.signal_id = s.id)
		  AND (s.market_conditions->>'entry_end')::timestamptz > NOW()
		ORDER BY s.created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
