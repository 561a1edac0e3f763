package manager

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/newswave/newswave/internal/config"
	"github.com/newswave/newswave/internal/market"
	"github.com/newswave/newswave/internal/notify"
	"github.com/newswave/newswave/internal/portfolio"
	"github.com/newswave/newswave/risk"
	"github.com/newswave/newswave/storage"
	"github.com/newswave/newswave/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXPERIMENT MANAGER SERVICE - Signal intake, position monitor, snapshots
// ═══════════════════════════════════════════════════════════════════════════════
//
// Three concurrent activities share the ledger: the intake loop listening on
// signal notifications, the 30 s position monitor and the snapshot timer.
// Cash mutations are serialized in the store, so the loops never coordinate
// directly.
//
// ═══════════════════════════════════════════════════════════════════════════════

// monitorJoinTimeout bounds how long shutdown waits for the monitor.
const monitorJoinTimeout = 5 * time.Second

const sweepLimit = 50

type Service struct {
	cfg       *config.ManagerConfig
	db        *storage.Database
	portfolio *portfolio.Manager
	data      *market.Data
	hours     *market.Hours
	breaker   *risk.CircuitBreaker
	notifier  notify.Notifier

	stats struct {
		mu              sync.Mutex
		signalsSeen     int
		positionsOpened int
		positionsClosed int
		refusals        int
		start           time.Time
	}
}

// NewService wires the experiment manager.
func NewService(cfg *config.ManagerConfig, db *storage.Database, pm *portfolio.Manager, data *market.Data, hours *market.Hours, notifier notify.Notifier) *Service {
	s := &Service{
		cfg:       cfg,
		db:        db,
		portfolio: pm,
		data:      data,
		hours:     hours,
		breaker:   risk.NewCircuitBreaker(cfg.DailyLossLimitPercent),
		notifier:  notifier,
	}
	s.stats.start = time.Now()
	return s
}

// Run starts the monitor and snapshot loops and blocks on signal intake
// until the context is cancelled. Open positions stay active across
// restarts; the monitor simply picks them up again.
func (s *Service) Run(ctx context.Context) error {
	log.Info().
		Str("capital", s.cfg.InitialCapital.StringFixed(2)).
		Int("max_positions", s.cfg.MaxConcurrentPositions).
		Float64("daily_limit_pct", s.cfg.DailyLossLimitPercent).
		Msg("🧪 Experiment manager started")

	if err := s.portfolio.EnsureInitialized(ctx); err != nil {
		return fmt.Errorf("ledger init: %w", err)
	}

	listener, err := storage.NewListener(s.db.DSN(), storage.ChannelTradingSignals)
	if err != nil {
		return err
	}
	defer listener.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.monitorLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.snapshotLoop(ctx)
	}()

	s.sweepUnconsumed(ctx)

	hourly := time.NewTicker(time.Hour)
	defer hourly.Stop()

intake:
	for {
		select {
		case <-ctx.Done():
			break intake

		case <-hourly.C:
			s.logHourlyStats(ctx)

		case n, ok := <-listener.Notifications():
			if !ok {
				break intake
			}
			if n.Reconnected {
				log.Warn().Msg("Listener reconnected, sweeping for missed signals")
				s.sweepUnconsumed(ctx)
				continue
			}

			signalID, err := strconv.ParseInt(n.Payload, 10, 64)
			if err != nil {
				log.Warn().Str("payload", n.Payload).Msg("Ignoring malformed notification")
				continue
			}
			log.Info().Int64("signal_id", signalID).Msg("Received trading signal notification")
			s.processSignal(ctx, signalID)
		}
	}

	// Give the monitor a bounded window to finish its cycle.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(monitorJoinTimeout):
		log.Warn().Msg("Monitor did not stop in time")
	}

	s.logFinalStats(ctx)
	return nil
}

// ─── Signal intake ─────────────────────────────────────────────────────────────

func (s *Service) sweepUnconsumed(ctx context.Context) {
	ids, err := s.db.UnconsumedSignals(ctx, sweepLimit)
	if err != nil {
		log.Error().Err(err).Msg("Unconsumed signal sweep failed")
		return
	}
	if len(ids) > 0 {
		log.Info().Int("count", len(ids)).Msg("Processing unconsumed signals")
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		s.processSignal(ctx, id)
	}
}

func (s *Service) processSignal(ctx context.Context, signalID int64) {
	s.stats.mu.Lock()
	s.stats.signalsSeen++
	s.stats.mu.Unlock()

	view, err := s.db.SignalViewByID(ctx, signalID)
	if err != nil {
		log.Error().Err(err).Int64("signal_id", signalID).Msg("Failed to load signal")
		return
	}
	if view == nil {
		log.Warn().Int64("signal_id", signalID).Msg("Signal not found")
		return
	}
	if view.SignalType == types.SignalHold {
		log.Debug().Int64("signal_id", signalID).Msg("HOLD signal, nothing to do")
		return
	}

	log.Info().
		Str("ticker", view.Conditions.Ticker).
		Str("type", view.SignalType).
		Int("wave", view.Wave).
		Float64("confidence", view.Confidence).
		Msg("Processing signal")

	now := time.Now().UTC()
	if now.Before(view.Conditions.EntryStart) {
		log.Info().Time("entry_start", view.Conditions.EntryStart).Msg("Entry window not open yet")
		return
	}
	if now.After(view.Conditions.EntryEnd) {
		log.Info().Time("entry_end", view.Conditions.EntryEnd).Msg("Entry window already closed")
		return
	}

	status, err := s.portfolio.Status(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Portfolio status unavailable")
		return
	}

	size := risk.PositionSize(status, view.Confidence*100, 1.0, 1.0, risk.SizingParams{
		BasePositionPercent:   s.cfg.BasePositionPercent,
		ConfidenceFactorMin:   s.cfg.ConfidenceFactorMin,
		ConfidenceFactorMax:   s.cfg.ConfidenceFactorMax,
		VolatilityFactorMin:   s.cfg.VolatilityFactorMin,
		CorrelationFactorMin:  s.cfg.CorrelationFactorMin,
		MaxPositionPercent:    s.cfg.MaxPositionPercent,
		MinPositionSize:       s.cfg.MinPositionSize,
		MinCashReservePercent: s.cfg.MinCashReservePercent,
	})

	ok, reason := risk.CanEnter(status, size, risk.Limits{
		MaxConcurrentPositions: s.cfg.MaxConcurrentPositions,
		MaxPositionPercent:     s.cfg.MaxPositionPercent,
		MinPositionSize:        s.cfg.MinPositionSize,
		MinCashReservePercent:  s.cfg.MinCashReservePercent,
		DailyLossLimitPercent:  s.cfg.DailyLossLimitPercent,
	})
	if !ok {
		s.stats.mu.Lock()
		s.stats.refusals++
		s.stats.mu.Unlock()
		log.Warn().
			Int64("signal_id", signalID).
			Str("size", size.StringFixed(2)).
			Str("reason", reason).
			Msg("Cannot enter position")
		return
	}

	desiredHold := time.Duration(view.Conditions.MaxHoldHours) * time.Hour
	if desiredHold <= 0 {
		desiredHold = 6 * time.Hour
	}
	maxHoldUntil, holdNote, holdOK := s.hours.AdjustedMaxHold(now, desiredHold, s.cfg.MinHold)
	if !holdOK {
		log.Warn().Int64("signal_id", signalID).Str("reason", holdNote).Msg("Cannot enter position")
		return
	}
	if holdNote != "" {
		log.Info().Str("adjustment", holdNote).Msg("Hold window adjusted to market hours")
	}

	exec, err := s.data.RealisticExecution(ctx, view.Conditions.Ticker, view.SignalType, size)
	if err != nil {
		log.Error().Err(err).Str("ticker", view.Conditions.Ticker).Msg("Could not price execution")
		return
	}

	id, err := s.portfolio.Enter(ctx, view, size, exec, maxHoldUntil)
	if err == storage.ErrDuplicateSignal {
		log.Debug().Int64("signal_id", signalID).Msg("Signal already consumed")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("signal_id", signalID).Msg("Failed to open position")
		return
	}

	s.stats.mu.Lock()
	s.stats.positionsOpened++
	s.stats.mu.Unlock()

	s.notifier.Send(fmt.Sprintf("📈 Opened %s %s: $%s @ $%s (wave %d)",
		view.SignalType, view.Conditions.Ticker, size.StringFixed(2),
		exec.ExecutionPrice.StringFixed(2), view.Wave))
	log.Info().Int64("experiment", id).Msg("Position opened")
}

// ─── Position monitor ──────────────────────────────────────────────────────────

func (s *Service) monitorLoop(ctx context.Context) {
	log.Info().Dur("interval", s.cfg.PositionCheckInterval).Msg("Position monitor started")

	ticker := time.NewTicker(s.cfg.PositionCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.monitorCycle(ctx)
		}
	}
}

func (s *Service) monitorCycle(ctx context.Context) {
	now := time.Now().UTC()

	status, err := s.portfolio.Status(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Monitor: portfolio status unavailable")
		return
	}

	tripped, fresh := s.breaker.Evaluate(status.RealizedPnLToday, status.TotalValue, s.hours.EasternDate(now))
	if tripped {
		if fresh {
			log.Warn().Msg("Daily loss limit exceeded, closing all positions")
			s.notifier.Send("🚨 Daily loss limit hit: flattening portfolio")
			s.closeAll(ctx, types.ExitDailyLossLimit)
		}
		return
	}

	active, err := s.db.ActiveExperiments(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Monitor: failed to load active positions")
		return
	}

	for i := range active {
		e := &active[i]

		quote, err := s.data.CurrentPrice(ctx, e.Ticker, false)
		if err != nil {
			log.Warn().Str("ticker", e.Ticker).Msg("Monitor: no current price")
			continue
		}

		decision := risk.CheckExit(e, quote.Price, risk.ExitParams{
			TrailingActivationPercent: s.cfg.TrailingStopActivationPercent,
			TrailingDistancePercent:   s.cfg.TrailingStopDistancePercent,
		})

		switch {
		case decision.Close:
			s.closePosition(ctx, e, decision.Reason, &quote.Price)
		case decision.UpdateStop:
			if err := s.db.UpdateStopLoss(ctx, e.ID, decision.NewStop); err != nil {
				log.Error().Err(err).Int64("experiment", e.ID).Msg("Failed to update trailing stop")
				continue
			}
			log.Info().
				Str("ticker", e.Ticker).
				Str("new_stop", decision.NewStop.StringFixed(2)).
				Msg("Trailing stop updated")
		}
	}

	expired, err := s.db.ExpiredExperiments(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Monitor: failed to check expired positions")
		return
	}
	for i := range expired {
		e := &expired[i]
		log.Warn().Str("ticker", e.Ticker).Time("deadline", e.MaxHoldUntil).Msg("Hold deadline passed")
		s.closePosition(ctx, e, types.ExitMaxHoldTime, nil)
	}
}

func (s *Service) closePosition(ctx context.Context, e *types.Experiment, reason string, observed *decimal.Decimal) {
	closed, err := s.portfolio.Exit(ctx, e, reason, observed)
	if err != nil {
		log.Error().Err(err).Int64("experiment", e.ID).Msg("Failed to close position")
		return
	}
	if !closed {
		return
	}
	s.stats.mu.Lock()
	s.stats.positionsClosed++
	s.stats.mu.Unlock()
	s.notifier.Send(fmt.Sprintf("📉 Closed %s (%s)", e.Ticker, reason))
}

func (s *Service) closeAll(ctx context.Context, reason string) {
	active, err := s.db.ActiveExperiments(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load positions for flatten")
		return
	}
	log.Warn().Int("count", len(active)).Str("reason", reason).Msg("Closing all positions")
	for i := range active {
		s.closePosition(ctx, &active[i], reason, nil)
	}
}

// ─── Snapshots ─────────────────────────────────────────────────────────────────

func (s *Service) snapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PortfolioSnapshotInterval)
	defer ticker.Stop()

	lastDay := s.hours.EasternDate(time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if day := s.hours.EasternDate(time.Now()); day != lastDay {
				if err := s.db.ResetDailyPnL(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to reset daily P&L")
				} else {
					log.Info().Str("day", day).Msg("📅 New trading day, daily P&L reset")
					lastDay = day
				}
			}

			if err := s.portfolio.Snapshot(ctx); err != nil {
				log.Error().Err(err).Msg("Snapshot failed")
			}
		}
	}
}

// ─── Stats ─────────────────────────────────────────────────────────────────────

func (s *Service) logHourlyStats(ctx context.Context) {
	status, err := s.portfolio.Status(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Stats: portfolio status unavailable")
		return
	}

	cacheTotal, cacheFresh := s.data.CacheStats()

	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	log.Info().
		Str("total_value", status.TotalValue.StringFixed(2)).
		Str("total_return_pct", status.TotalReturn.StringFixed(2)).
		Str("cash", status.CashBalance.StringFixed(2)).
		Int("positions", status.PositionsCount).
		Str("realized_today", status.RealizedPnLToday.StringFixed(2)).
		Str("unrealized", status.UnrealizedPnL.StringFixed(2)).
		Int("signals_seen", s.stats.signalsSeen).
		Int("opened", s.stats.positionsOpened).
		Int("closed", s.stats.positionsClosed).
		Int("refusals", s.stats.refusals).
		Int("price_cache_fresh", cacheFresh).
		Int("price_cache_total", cacheTotal).
		Str("uptime", time.Since(s.stats.start).Round(time.Second).String()).
		Msg("📊 Portfolio statistics")
}

func (s *Service) logFinalStats(ctx context.Context) {
	status, err := s.portfolio.Status(ctx)
	if err == nil {
		log.Info().
			Str("total_value", status.TotalValue.StringFixed(2)).
			Str("total_return_pct", status.TotalReturn.StringFixed(2)).
			Msg("Final portfolio")
	}
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	log.Info().
		Int("opened", s.stats.positionsOpened).
		Int("closed", s.stats.positionsClosed).
		Msg("Experiment manager stopped")
}
