package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// Signal types stored in trading_signals.signal_type
const (
	SignalBuy   = "BUY"
	SignalSell  = "SELL"
	SignalShort = "SHORT"
	SignalHold  = "HOLD"
)

// Exit reasons stored in experiments.exit_reason
const (
	ExitStopLoss       = "stop_loss"
	ExitTakeProfit     = "take_profit"
	ExitMaxHoldTime    = "max_hold_time_exceeded"
	ExitDailyLossLimit = "daily_loss_limit"
)

// Experiment status values
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// NewsItem is one row of news_items. Created by the analyzer, flagged by the
// extractor, never touched by the experiment manager.
type NewsItem struct {
	ID                   int64
	NewsID               string // external id, e.g. "finnhub:123456"
	Headline             string
	Summary              string
	URL                  string
	PublishedAt          time.Time
	ProcessedAt          time.Time
	SignificanceScore    int // 0-100
	Reasoning            string
	IsSignificant        bool
	ProcessedByExtractor bool
	ExtractorProcessedAt *time.Time
	SkipReason           *string
	CreatedAt            time.Time
}

// AgeMinutes returns how old the news is relative to now.
func (n *NewsItem) AgeMinutes(now time.Time) int {
	return int(now.Sub(n.PublishedAt).Minutes())
}

// MarketConditions is the structured payload stored in
// trading_signals.market_conditions (JSONB).
type MarketConditions struct {
	Ticker              string    `json:"ticker"`
	ExpectedMovePercent float64   `json:"expected_move_percent"`
	StopLossPercent     float64   `json:"stop_loss_percent"`
	TakeProfitPercent   float64   `json:"take_profit_percent"`
	MaxHoldHours        int       `json:"max_hold_hours"`
	EntryStart          time.Time `json:"entry_start"`
	EntryEnd            time.Time `json:"entry_end"`
	TickerValidated     bool      `json:"ticker_validated"`
	TickerExists        bool      `json:"ticker_exists"`
}

// TradingSignal is one row of trading_signals.
type TradingSignal struct {
	ID              int64
	NewsItemID      int64
	SignalType      string  // BUY, SELL, SHORT, HOLD
	Confidence      float64 // normalized 0-1
	Wave            int     // 0-6
	WaveDescription string
	Reasoning       string
	Conditions      MarketConditions
	CreatedAt       time.Time
}

// SignalView is a signal joined with its news item, the shape the experiment
// manager consumes.
type SignalView struct {
	TradingSignal
	Headline        string
	NewsPublishedAt time.Time
}

// Experiment is one row of experiments: a virtual position opened from a
// signal and monitored until close.
type Experiment struct {
	ID              int64
	SignalID        int64
	NewsItemID      int64
	Ticker          string
	EntryTime       time.Time
	EntryPrice      decimal.Decimal
	PositionSize    decimal.Decimal // dollars committed, excluding commission
	Shares          decimal.Decimal
	CommissionPaid  decimal.Decimal
	StopLossPrice   decimal.Decimal
	TakeProfitPrice decimal.Decimal
	MaxHoldUntil    time.Time
	SP500Entry      decimal.Decimal // zero when benchmark was unavailable

	ExitTime            *time.Time
	ExitPrice           *decimal.Decimal
	ExitReason          *string
	GrossPnL            *decimal.Decimal
	NetPnL              *decimal.Decimal
	ReturnPercent       *decimal.Decimal
	HoldDurationMinutes *int
	SP500Exit           *decimal.Decimal
	SP500Return         *decimal.Decimal
	Alpha               *decimal.Decimal

	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PortfolioSnapshot is one row of portfolio_snapshots. The latest row is the
// authoritative cash ledger.
type PortfolioSnapshot struct {
	ID               int64
	Timestamp        time.Time
	TotalValue       decimal.Decimal
	CashBalance      decimal.Decimal
	PositionsCount   int
	UnrealizedPnL    decimal.Decimal
	RealizedPnLToday decimal.Decimal
	RealizedPnLTotal decimal.Decimal
	DailyReturn      decimal.Decimal
	TotalReturn      decimal.Decimal
}

// PortfolioStatus is the live view: latest ledger row plus current exposure
// and unrealized P&L from quotes.
type PortfolioStatus struct {
	TotalValue        decimal.Decimal
	CashBalance       decimal.Decimal
	AvailableCash     decimal.Decimal
	PositionsCount    int
	PositionsExposure decimal.Decimal
	UnrealizedPnL     decimal.Decimal
	RealizedPnLToday  decimal.Decimal
	RealizedPnLTotal  decimal.Decimal
	DailyReturn       decimal.Decimal
	TotalReturn       decimal.Decimal
	LastUpdated       time.Time
}

// Quote is a price observation from the market-data adapter.
type Quote struct {
	Ticker string
	Price  decimal.Decimal
	Source string
	Stale  bool
	At     time.Time
}

// Execution is a realistically priced fill: market price adjusted for
// spread, slippage and market impact.
type Execution struct {
	MarketPrice    decimal.Decimal
	ExecutionPrice decimal.Decimal
	Spread         decimal.Decimal
	Slippage       decimal.Decimal
	MarketImpact   decimal.Decimal
	Volume         int64
}
