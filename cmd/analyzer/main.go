// News Analyzer - stage one of the pipeline.
//
// Fetches market news, grades each item for significance with an LLM,
// persists the result and notifies the signal extractor when something
// market-moving lands.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/newswave/newswave/internal/config"
	"github.com/newswave/newswave/internal/llm"
	"github.com/newswave/newswave/internal/market"
	"github.com/newswave/newswave/internal/news"
	"github.com/newswave/newswave/storage"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadAnalyzer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	instance := uuid.NewString()
	log.Logger = log.Logger.Hook(storage.NewLogHook(db, "news_analyzer", instance))

	hours, err := market.NewHours()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load market calendar")
	}

	feed := news.NewFeed(cfg.FinnhubAPIKey, cfg.MaxNewsPerCheck)
	scorer := news.NewScorer(llm.New(cfg.LLM), cfg.SignificanceThreshold)
	service := news.NewService(cfg, db, feed, scorer, hours)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("🛑 Shutting down...")
		cancel()
	}()

	service.Run(ctx)
}
