package news

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/newswave/newswave/internal/config"
	"github.com/newswave/newswave/internal/market"
	"github.com/newswave/newswave/storage"
	"github.com/newswave/newswave/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// NEWS ANALYZER SERVICE - Ingest → score → persist → notify
// ═══════════════════════════════════════════════════════════════════════════════

type Service struct {
	cfg    *config.AnalyzerConfig
	db     *storage.Database
	feed   *Feed
	scorer *Scorer
	hours  *market.Hours

	stats struct {
		checks      int
		processed   int
		significant int
		llmCalls    int
		errors      int
		start       time.Time
	}
}

// NewService wires the analyzer.
func NewService(cfg *config.AnalyzerConfig, db *storage.Database, feed *Feed, scorer *Scorer, hours *market.Hours) *Service {
	s := &Service{cfg: cfg, db: db, feed: feed, scorer: scorer, hours: hours}
	s.stats.start = time.Now()
	return s
}

// Run executes ingest cycles until the context is cancelled. While the
// market is closed the service only naps, it does not fetch.
func (s *Service) Run(ctx context.Context) {
	log.Info().
		Int("threshold", s.cfg.SignificanceThreshold).
		Dur("interval", s.cfg.CheckInterval).
		Msg("🗞️ News analyzer started")

	lastHourly := time.Now()

	for ctx.Err() == nil {
		if time.Since(lastHourly) >= time.Hour {
			s.logHourlyStats(ctx)
			lastHourly = time.Now()
		}

		status := s.hours.Status()
		if !s.hours.IsOpen(status) {
			nap := s.cfg.ClosedInterval
			if status == market.StatusWeekend {
				nap = s.cfg.WeekendInterval
			}
			log.Info().Str("market", status).Dur("sleep", nap).Msg("Market closed, sleeping")
			sleep(ctx, nap)
			continue
		}

		s.ingestCycle(ctx)
		sleep(ctx, s.cfg.CheckInterval)
	}

	log.Info().
		Int("processed", s.stats.processed).
		Int("significant", s.stats.significant).
		Msg("News analyzer stopped")
}

func (s *Service) ingestCycle(ctx context.Context) {
	s.stats.checks++

	items, err := s.feed.Latest(ctx)
	if err != nil {
		log.Error().Err(err).Msg("News fetch failed")
		s.stats.errors++
		return
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		s.processItem(ctx, item)
	}
}

func (s *Service) processItem(ctx context.Context, item FeedItem) {
	publishedAt := item.PublishedAt()
	cutoff := time.Now().UTC().Add(-time.Duration(s.cfg.SkipNewsOlderHours) * time.Hour)
	if publishedAt.Before(cutoff) {
		log.Debug().Str("headline", truncate(item.Headline, 50)).Msg("Skipping old news")
		return
	}

	exists, err := s.db.NewsExists(ctx, item.ExternalID())
	if err != nil {
		log.Error().Err(err).Msg("Duplicate check failed")
		s.stats.errors++
		return
	}
	if exists {
		log.Debug().Str("news_id", item.ExternalID()).Msg("Skipping duplicate")
		return
	}

	result := s.scorer.Score(ctx, item.Headline, item.Summary)
	s.stats.llmCalls++

	news := &types.NewsItem{
		NewsID:            item.ExternalID(),
		Headline:          item.Headline,
		Summary:           item.Summary,
		URL:               item.URL,
		PublishedAt:       publishedAt,
		SignificanceScore: result.Score,
		Reasoning:         result.Reasoning,
		IsSignificant:     result.Significant,
	}

	_, inserted, err := s.db.InsertNews(ctx, news)
	if err != nil {
		log.Error().Err(err).Str("news_id", news.NewsID).Msg("Failed to save news")
		s.stats.errors++
		return
	}
	if !inserted {
		return
	}

	s.stats.processed++
	if result.Significant {
		s.stats.significant++
		log.Info().
			Int("score", result.Score).
			Str("headline", truncate(item.Headline, 80)).
			Msg("📰 SIGNIFICANT news")
	} else {
		log.Debug().
			Int("score", result.Score).
			Str("headline", truncate(item.Headline, 50)).
			Msg("Not significant")
	}
}

func (s *Service) logHourlyStats(ctx context.Context) {
	dbStats, err := s.db.NewsStatsSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		log.Warn().Err(err).Msg("Stats query failed")
	}

	log.Info().
		Int("checks", s.stats.checks).
		Int("processed", dbStats.Total).
		Int("significant", dbStats.Significant).
		Int("llm_calls", s.stats.llmCalls).
		Int("errors", s.stats.errors).
		Str("uptime", time.Since(s.stats.start).Round(time.Second).String()).
		Msg("📊 Hourly stats")
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
