package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/whatsapp-summary-bot/internal/config"
	"github.com/whatsapp-summary-bot/internal/notify"
	"github.com/whatsapp-summary-bot/internal/provider"
	"github.com/whatsapp-summary-bot/internal/scheduler"
	"github.com/whatsapp-summary-bot/internal/storage"
	"github.com/whatsapp-summary-bot/internal/summary"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.Environment)
	logger.Info().
		Str("environment", cfg.Environment).
		Int("poll_interval", cfg.PollIntervalSeconds).
		Bool("llm_enabled", cfg.LLMEnabled()).
		Bool("telegram_enabled", cfg.TelegramEnabled()).
		Msg("Starting WhatsApp summary worker")

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage client
	logger.Info().Msg("Initializing Supabase client...")
	storageClient, err := storage.NewClient(
		cfg.SupabaseURL,
		cfg.SupabaseKey,
		cfg.SupabaseTimeout,
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create storage client")
	}

	// Ping Supabase to verify connection
	if err := storageClient.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Supabase")
	}
	logger.Info().Msg("Supabase connection successful")

	// Initialize WhatsApp provider client
	logger.Info().Msg("Initializing WhatsApp provider client...")
	providerClient := provider.NewClient(
		cfg.ProviderURL,
		cfg.ProviderAPIKey,
		cfg.ProviderSession,
		cfg.ProviderTimeout,
		cfg.ProviderTimestampUnit,
		logger,
	)

	// Initialize optional Gemini enhancer
	var enhancer summary.Enhancer
	if cfg.LLMEnabled() {
		logger.Info().Str("model", cfg.GeminiModel).Msg("Initializing Gemini enhancer...")
		geminiEnhancer := summary.NewGeminiEnhancer(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout, logger)
		defer func() {
			if err := geminiEnhancer.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close Gemini enhancer")
			}
		}()
		enhancer = geminiEnhancer
	}

	// Initialize summary generator
	generator := summary.NewGenerator(enhancer, logger)

	// Initialize optional Telegram digest notifier
	var notifier scheduler.Notifier
	if cfg.TelegramEnabled() {
		logger.Info().Msg("Initializing Telegram notifier...")
		telegramNotifier, err := notify.NewTelegramNotifier(
			cfg.TelegramToken,
			cfg.TelegramChatID,
			cfg.LogLevel == "debug",
			logger,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Telegram notifier")
		}
		notifier = telegramNotifier
	}

	// Initialize schedule runner
	runner := scheduler.NewRunner(
		storageClient,
		storageClient,
		providerClient,
		generator,
		notifier,
		scheduler.Config{
			PollInterval:     time.Duration(cfg.PollIntervalSeconds) * time.Second,
			BatchLimit:       cfg.BatchLimit,
			FetchLimit:       cfg.ProviderFetchLimit,
			MaxHistoryLength: cfg.MaxHistoryLength,
		},
		logger,
	)

	if err := runner.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start schedule runner")
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	logger.Info().Msg("Worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Received termination signal")

	// Graceful shutdown: stop polling, let the in-flight cycle finish
	logger.Info().Msg("Initiating graceful shutdown...")
	cancel()
	runner.Stop()

	logger.Info().Msg("Worker stopped")
}

// setupLogger configures and returns a zerolog logger
func setupLogger(level, environment string) zerolog.Logger {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	var logger zerolog.Logger
	if environment == "development" {
		// Pretty console output for development
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
	} else {
		// JSON output for production
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return logger
}
