// Signal Extractor - stage two of the pipeline.
//
// Listens for significant news, projects it onto the wave model of market
// reaction, asks the LLM for the optimal wave and trade candidates, and
// persists validated signals for the experiment manager.
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
	"github.com/newswave/newswave/internal/extractor"
	"github.com/newswave/newswave/internal/llm"
	"github.com/newswave/newswave/internal/market"
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

	cfg, err := config.LoadExtractor()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	instance := uuid.NewString()
	log.Logger = log.Logger.Hook(storage.NewLogHook(db, "signal_extractor", instance))

	hours, err := market.NewHours()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load market calendar")
	}

	analyzer := extractor.NewAnalyzer(llm.New(cfg.LLM), cfg.MaxSignalsPerNews)
	validator := market.NewValidator(cfg.FinnhubAPIKey)
	service := extractor.NewService(cfg, db, analyzer, validator, hours)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("🛑 Shutting down...")
		cancel()
	}()

	if err := service.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Service failed")
	}
}
