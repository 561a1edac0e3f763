package extractor

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/newswave/newswave/internal/config"
	"github.com/newswave/newswave/internal/market"
	"github.com/newswave/newswave/internal/wave"
	"github.com/newswave/newswave/storage"
	"github.com/newswave/newswave/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SIGNAL EXTRACTOR SERVICE - Significant news → wave context → trading signals
// ═══════════════════════════════════════════════════════════════════════════════

// pendingSweepLimit bounds the startup/reconnect backlog drain.
const pendingSweepLimit = 10

type Service struct {
	cfg       *config.ExtractorConfig
	db        *storage.Database
	analyzer  *Analyzer
	validator tickerValidator
	hours     *market.Hours

	stats struct {
		newsProcessed    int
		signalsGenerated int
		llmCalls         int
		errors           int
		waveDistribution map[int]int
		start            time.Time
	}
}

// NewService wires the extractor.
func NewService(cfg *config.ExtractorConfig, db *storage.Database, analyzer *Analyzer, validator tickerValidator, hours *market.Hours) *Service {
	s := &Service{cfg: cfg, db: db, analyzer: analyzer, validator: validator, hours: hours}
	s.stats.waveDistribution = make(map[int]int)
	s.stats.start = time.Now()
	return s
}

// Run drains pending news, then blocks on notifications until the context
// is cancelled. Redelivery is safe: processed news is skipped on load.
func (s *Service) Run(ctx context.Context) error {
	log.Info().
		Float64("min_move", s.cfg.MinExpectedMovePercent).
		Int("min_confidence", s.cfg.MinConfidence).
		Msg("🌊 Signal extractor started")

	listener, err := storage.NewListener(s.db.DSN(), storage.ChannelSignificantNews)
	if err != nil {
		return err
	}
	defer listener.Close()

	s.sweepPending(ctx)

	hourly := time.NewTicker(time.Hour)
	defer hourly.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Int("processed", s.stats.newsProcessed).
				Int("signals", s.stats.signalsGenerated).
				Msg("Signal extractor stopped")
			return nil

		case <-hourly.C:
			s.logHourlyStats()

		case n, ok := <-listener.Notifications():
			if !ok {
				return nil
			}
			if n.Reconnected {
				log.Warn().Msg("Listener reconnected, sweeping for missed news")
				s.sweepPending(ctx)
				continue
			}

			newsID, err := strconv.ParseInt(n.Payload, 10, 64)
			if err != nil {
				log.Warn().Str("payload", n.Payload).Msg("Ignoring malformed notification")
				continue
			}
			log.Info().Int64("news_id", newsID).Msg("Received significant news notification")
			s.processNews(ctx, newsID)
		}
	}
}

func (s *Service) sweepPending(ctx context.Context) {
	ids, err := s.db.PendingSignificant(ctx, pendingSweepLimit)
	if err != nil {
		log.Error().Err(err).Msg("Pending news sweep failed")
		return
	}
	if len(ids) > 0 {
		log.Info().Int("count", len(ids)).Msg("Processing pending news items")
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		s.processNews(ctx, id)
	}
}

func (s *Service) processNews(ctx context.Context, newsID int64) {
	started := time.Now()

	item, err := s.db.NewsByID(ctx, newsID)
	if err != nil {
		log.Error().Err(err).Int64("news_id", newsID).Msg("Failed to load news")
		s.stats.errors++
		return
	}
	if item == nil || !item.IsSignificant {
		log.Warn().Int64("news_id", newsID).Msg("News not found or not significant")
		return
	}
	if item.ProcessedByExtractor {
		log.Debug().Int64("news_id", newsID).Msg("News already processed")
		return
	}

	now := time.Now().UTC()
	ageMinutes := item.AgeMinutes(now)
	marketStatus := s.hours.StatusAt(now)

	log.Info().
		Str("headline", shorten(item.Headline, 50)).
		Int("age_minutes", ageMinutes).
		Str("market", marketStatus).
		Msg("Processing news")

	table := wave.StatusTable(ageMinutes)
	s.logWaveStatus(table)

	if delay := s.hours.Delay(marketStatus, now); delay.Delayed {
		log.Info().
			Str("reason", delay.Reason).
			Time("next_open", delay.NextOpen).
			Msg("Waves delayed, skipping news")
		s.markSkipped(ctx, newsID, delay.Reason)
		return
	}

	analysis := s.analyzer.AnalyzeWaves(ctx, item, ageMinutes, marketStatus, table)
	s.stats.llmCalls++

	log.Info().
		Int("wave", analysis.OptimalWave).
		Str("news_type", analysis.NewsType).
		Str("impact", analysis.Impact).
		Str("reasoning", shorten(analysis.Reasoning, 100)).
		Msg("Wave analysis complete")

	candidates := s.analyzer.GenerateSignals(ctx, item, analysis)
	s.stats.llmCalls++

	if len(candidates) == 0 {
		log.Warn().Msg("No signals generated")
		s.markSkipped(ctx, newsID, "No signals generated")
		return
	}

	valid := filterCandidates(ctx, candidates, s.cfg.MinExpectedMovePercent, s.cfg.MinConfidence, s.validator)
	if len(valid) == 0 {
		log.Warn().Msg("All signals filtered out")
		s.markSkipped(ctx, newsID, "All signals filtered")
		return
	}

	signals := s.buildSignals(item, analysis, valid, now)
	saved, err := s.db.SaveSignals(ctx, item.ID, signals)
	if err != nil {
		log.Error().Err(err).Int64("news_id", newsID).Msg("Failed to save signals")
		s.stats.errors++
		s.markSkipped(ctx, newsID, "Persistence error: "+err.Error())
		return
	}

	s.stats.newsProcessed++
	s.stats.signalsGenerated += saved
	s.stats.waveDistribution[analysis.OptimalWave] += saved

	log.Info().
		Int("signals", saved).
		Str("elapsed", time.Since(started).Round(100*time.Millisecond).String()).
		Msg("News processed")
}

func (s *Service) buildSignals(item *types.NewsItem, analysis WaveAnalysis, valid []ValidCandidate, now time.Time) []types.TradingSignal {
	entryStart, entryEnd := wave.EntryWindow(analysis.OptimalWave, item.PublishedAt)

	signals := make([]types.TradingSignal, 0, len(valid))
	for _, c := range valid {
		signals = append(signals, types.TradingSignal{
			NewsItemID:      item.ID,
			SignalType:      c.Action,
			Confidence:      float64(c.Confidence) / 100,
			Wave:            analysis.OptimalWave,
			WaveDescription: wave.Description(analysis.OptimalWave),
			Reasoning:       c.Reasoning,
			Conditions: types.MarketConditions{
				Ticker:              c.Ticker,
				ExpectedMovePercent: c.ExpectedMove,
				StopLossPercent:     s.cfg.DefaultStopLossPercent,
				TakeProfitPercent:   s.cfg.DefaultTakeProfitPercent,
				MaxHoldHours:        s.cfg.DefaultMaxHoldHours,
				EntryStart:          entryStart,
				EntryEnd:            entryEnd,
				TickerValidated:     c.TickerValidated,
				TickerExists:        c.TickerExists,
			},
		})
	}
	return signals
}

func (s *Service) markSkipped(ctx context.Context, newsID int64, reason string) {
	if err := s.db.MarkNewsProcessed(ctx, newsID, &reason); err != nil {
		log.Error().Err(err).Int64("news_id", newsID).Msg("Failed to mark news processed")
		s.stats.errors++
	}
}

func (s *Service) logWaveStatus(table []wave.Status) {
	for _, w := range table {
		e := log.Debug().
			Int("wave", w.Wave).
			Str("state", w.State).
			Int("start_min", w.StartMin).
			Int("end_min", w.EndMin)
		if w.State == wave.Ongoing {
			e = e.Int("time_left", w.TimeLeft)
		}
		e.Msg("Wave status")
	}
}

func (s *Service) logHourlyStats() {
	e := log.Info().
		Int("news_processed", s.stats.newsProcessed).
		Int("signals_generated", s.stats.signalsGenerated).
		Int("llm_calls", s.stats.llmCalls).
		Int("errors", s.stats.errors).
		Str("uptime", time.Since(s.stats.start).Round(time.Second).String())
	for w, count := range s.stats.waveDistribution {
		e = e.Int("wave_"+strconv.Itoa(w), count)
	}
	if v, ok := s.validator.(interface {
		CacheStats() (int, int, time.Duration)
	}); ok {
		valid, invalid, age := v.CacheStats()
		e = e.Int("ticker_cache_valid", valid).
			Int("ticker_cache_invalid", invalid).
			Str("ticker_cache_age", age.Round(time.Minute).String())
	}
	e.Msg("📊 Hourly stats")
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
