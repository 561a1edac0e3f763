package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/newswave/newswave/types"
)

// InsertNews persists a scored news item. Duplicate external ids are a no-op
// (inserted=false). When the item is significant, the notification is
// published inside the same transaction as the insert.
func (d *Database) InsertNews(ctx context.Context, item *types.NewsItem) (int64, bool, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO news_items (news_id, headline, summary, url, published_at,
			significance_score, reasoning, is_significant)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (news_id) DO NOTHING
		RETURNING id
	`, item.NewsID, item.Headline, item.Summary, item.URL, item.PublishedAt,
		item.SignificanceScore, item.Reasoning, item.IsSignificant).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil // duplicate
	}
	if err != nil {
		return 0, false, err
	}

	if item.IsSignificant {
		if err := notify(ctx, tx, ChannelSignificantNews, id); err != nil {
			return 0, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// NewsExists reports whether an external news id was already ingested.
func (d *Database) NewsExists(ctx context.Context, newsID string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx,
		`SELECT 1 FROM news_items WHERE news_id = $1`, newsID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// NewsByID loads one news item.
func (d *Database) NewsByID(ctx context.Context, id int64) (*types.NewsItem, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, news_id, headline, COALESCE(summary, ''), COALESCE(url, ''),
			published_at, processed_at, significance_score, COALESCE(reasoning, ''),
			is_significant, processed_by_block2, block2_processed_at, block2_skip_reason,
			created_at
		FROM news_items
		WHERE id = $1
	`, id)

	var n types.NewsItem
	var processedAt sql.NullTime
	var skipReason sql.NullString
	err := row.Scan(&n.ID, &n.NewsID, &n.Headline, &n.Summary, &n.URL,
		&n.PublishedAt, &n.ProcessedAt, &n.SignificanceScore, &n.Reasoning,
		&n.IsSignificant, &n.ProcessedByExtractor, &processedAt, &skipReason,
		&n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if processedAt.Valid {
		n.ExtractorProcessedAt = &processedAt.Time
	}
	if skipReason.Valid {
		n.SkipReason = &skipReason.String
	}
	return &n, nil
}

// MarkNewsProcessed stamps processed_by_block2 with an optional skip reason.
func (d *Database) MarkNewsProcessed(ctx context.Context, id int64, skipReason *string) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE news_items
		SET processed_by_block2 = TRUE,
			block2_processed_at = NOW(),
			block2_skip_reason = $2
		WHERE id = $1
	`, id, skipReason)
	return err
}

// PendingSignificant returns significant news not yet picked up downstream,
// newest first. Used by the extractor's startup sweep, since notifications
// can be lost across reconnects.
func (d *Database) PendingSignificant(ctx context.Context, limit int) ([]int64, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id FROM news_items
		WHERE is_significant = TRUE
		  AND processed_by_block2 = FALSE
		ORDER BY processed_at DESC
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

// NewsStats summarizes ingestion over the trailing window.
type NewsStats struct {
	Total       int
	Significant int
	AvgScore    float64
}

// NewsStatsSince aggregates counts for the hourly stats log.
func (d *Database) NewsStatsSince(ctx context.Context, since time.Time) (NewsStats, error) {
	var s NewsStats
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_significant = TRUE),
			COALESCE(AVG(significance_score), 0)
		FROM news_items
		WHERE processed_at > $1
	`, since).Scan(&s.Total, &s.Significant, &s.AvgScore)
	return s, err
}
