// Experiment Manager - stage three of the pipeline.
//
// Consumes trading signals, opens paper positions against realistic
// execution costs, monitors stop/take-profit/trailing/expiry, enforces the
// daily-loss circuit breaker and keeps the portfolio ledger.
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
	"github.com/newswave/newswave/internal/manager"
	"github.com/newswave/newswave/internal/market"
	"github.com/newswave/newswave/internal/notify"
	"github.com/newswave/newswave/internal/portfolio"
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

	cfg, err := config.LoadManager()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	instance := uuid.NewString()
	log.Logger = log.Logger.Hook(storage.NewLogHook(db, "experiment_manager", instance))

	hours, err := market.NewHours()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load market calendar")
	}

	data := market.NewData(cfg.FinnhubAPIKey, cfg.AlphaVantageAPIKey)
	pm := portfolio.NewManager(cfg, db, data)
	notifier := notify.FromConfig(cfg.TelegramToken, cfg.TelegramChatID)
	service := manager.NewService(cfg, db, pm, data, hours, notifier)

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
