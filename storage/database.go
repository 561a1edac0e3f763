package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	_ "github.com/lib/pq"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DATABASE - Shared persistence layer for the pipeline
// ═══════════════════════════════════════════════════════════════════════════════
//
// All three services share one PostgreSQL database. Tables are created on
// startup if missing, so any service can be booted first against an empty
// database. Cross-service notifications are published with pg_notify inside
// the same transaction that inserts the row.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Notification channels. Payload is the row id as text.
const (
	ChannelSignificantNews = "new_significant_news"
	ChannelTradingSignals  = "new_trading_signals"
)

type Database struct {
	db  *sql.DB
	dsn string
}

// New opens a connection pool, verifies connectivity and runs the migration.
func New(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	database := &Database{db: db, dsn: dsn}
	if err := database.migrate(); err != nil {
		return nil, err
	}

	log.Info().Msg("💾 Database connected")
	return database, nil
}

// migrate creates necessary tables and indexes
func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS news_items (
		id SERIAL PRIMARY KEY,
		news_id VARCHAR(255) UNIQUE NOT NULL,
		headline TEXT NOT NULL,
		summary TEXT,
		url VARCHAR(500),
		published_at TIMESTAMP WITH TIME ZONE NOT NULL,
		processed_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		significance_score INTEGER DEFAULT 0,
		reasoning TEXT,
		is_significant BOOLEAN DEFAULT FALSE,
		processed_by_block2 BOOLEAN DEFAULT FALSE,
		block2_processed_at TIMESTAMP WITH TIME ZONE,
		block2_skip_reason TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS trading_signals (
		id SERIAL PRIMARY KEY,
		news_item_id INTEGER NOT NULL REFERENCES news_items(id),
		signal_type VARCHAR(20) NOT NULL CHECK (signal_type IN ('BUY', 'SELL', 'SHORT', 'HOLD')),
		confidence NUMERIC(3,2) NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
		elliott_wave INTEGER NOT NULL CHECK (elliott_wave >= 0 AND elliott_wave <= 6),
		wave_description TEXT NOT NULL,
		reasoning TEXT NOT NULL,
		market_conditions JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS experiments (
		id SERIAL PRIMARY KEY,
		signal_id INTEGER UNIQUE NOT NULL REFERENCES trading_signals(id),
		news_item_id INTEGER REFERENCES news_items(id),
		ticker VARCHAR(10) NOT NULL,
		entry_time TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		entry_price NUMERIC(10,4) NOT NULL,
		position_size NUMERIC(12,2) NOT NULL,
		shares NUMERIC(12,6) NOT NULL,
		commission_paid NUMERIC(8,4) DEFAULT 0,
		stop_loss_price NUMERIC(10,4),
		take_profit_price NUMERIC(10,4),
		max_hold_until TIMESTAMP WITH TIME ZONE,
		sp500_entry NUMERIC(10,4),
		exit_time TIMESTAMP WITH TIME ZONE,
		exit_price NUMERIC(10,4),
		exit_reason VARCHAR(50),
		gross_pnl NUMERIC(12,2),
		net_pnl NUMERIC(12,2),
		return_percent NUMERIC(8,4),
		hold_duration INTEGER,
		sp500_exit NUMERIC(10,4),
		sp500_return NUMERIC(8,4),
		alpha NUMERIC(8,4),
		status VARCHAR(20) DEFAULT 'active',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS portfolio_snapshots (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW() UNIQUE,
		total_value NUMERIC(12,2) NOT NULL,
		cash_balance NUMERIC(12,2) NOT NULL,
		positions_count INTEGER DEFAULT 0,
		unrealized_pnl NUMERIC(12,2) DEFAULT 0,
		realized_pnl_today NUMERIC(12,2) DEFAULT 0,
		realized_pnl_total NUMERIC(12,2) DEFAULT 0,
		daily_return NUMERIC(8,4) DEFAULT 0,
		total_return NUMERIC(8,4) DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS service_logs (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		level VARCHAR(10) NOT NULL,
		message TEXT NOT NULL,
		service VARCHAR(50) NOT NULL,
		instance VARCHAR(36)
	);

	CREATE INDEX IF NOT EXISTS idx_news_items_news_id ON news_items(news_id);
	CREATE INDEX IF NOT EXISTS idx_news_items_published_at ON news_items(published_at);
	CREATE INDEX IF NOT EXISTS idx_news_items_is_significant ON news_items(is_significant);
	CREATE INDEX IF NOT EXISTS idx_trading_signals_news_item_id ON trading_signals(news_item_id);
	CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(status);
	CREATE INDEX IF NOT EXISTS idx_portfolio_snapshots_timestamp ON portfolio_snapshots(timestamp);
	CREATE INDEX IF NOT EXISTS idx_service_logs_timestamp ON service_logs(timestamp);
	`

	_, err := d.db.Exec(schema)
	return err
}

// InsertServiceLog appends one structured log row. Errors are swallowed so a
// logging failure can never take a service down.
func (d *Database) InsertServiceLog(level, message, service, instance string) {
	_, err := d.db.Exec(`
		INSERT INTO service_logs (level, message, service, instance)
		VALUES ($1, $2, $3, $4)
	`, level, message, service, instance)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to persist service log")
	}
}

// DSN returns the connection string, used to open the dedicated LISTEN
// connection.
func (d *Database) DSN() string {
	return d.dsn
}

// Close closes the connection pool.
func (d *Database) Close() {
	if d.db != nil {
		d.db.Close()
	}
}

func notify(ctx context.Context, tx *sql.Tx, channel string, payload int64) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2::text)`, channel, payload)
	return err
}
