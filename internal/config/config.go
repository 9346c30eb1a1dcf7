package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/whatsapp-summary-bot/internal/models"
)

// Load loads configuration from environment variables
// It first attempts to load from .env file, then reads environment variables
func Load() (*models.Config, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	config := &models.Config{
		// Supabase settings
		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseKey:     getEnv("SUPABASE_KEY", ""),
		SupabaseTimeout: getEnvInt("SUPABASE_TIMEOUT", 10),

		// WhatsApp provider settings
		ProviderURL:           getEnv("WHATSAPP_API_URL", ""),
		ProviderAPIKey:        getEnv("WHATSAPP_API_KEY", ""),
		ProviderSession:       getEnv("WHATSAPP_SESSION", "default"),
		ProviderTimeout:       getEnvInt("WHATSAPP_TIMEOUT", 30),
		ProviderFetchLimit:    getEnvInt("WHATSAPP_FETCH_LIMIT", 1000),
		ProviderTimestampUnit: models.TimestampUnit(getEnv("WHATSAPP_TIMESTAMP_UNIT", "")),

		// Scheduler settings
		PollIntervalSeconds: getEnvInt("SCHEDULER_POLL_INTERVAL", 60),
		BatchLimit:          getEnvInt("SCHEDULER_BATCH_LIMIT", 10),
		MaxHistoryLength:    getEnvInt("SCHEDULER_MAX_HISTORY", 50),

		// Gemini API settings (optional)
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", models.ModelFlash.String()),
		GeminiTimeout: getEnvInt("GEMINI_TIMEOUT", 30),

		// Telegram digest delivery (optional)
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: getEnvInt64("TELEGRAM_DIGEST_CHAT_ID", 0),

		// App settings
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "production"),
	}

	// Validate configuration
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate checks if all required configuration values are set
func validate(cfg *models.Config) error {
	if cfg.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseKey == "" {
		return fmt.Errorf("SUPABASE_KEY is required")
	}
	if cfg.ProviderURL == "" {
		return fmt.Errorf("WHATSAPP_API_URL is required")
	}

	// Validate positive values
	if cfg.SupabaseTimeout <= 0 {
		return fmt.Errorf("SUPABASE_TIMEOUT must be positive, got %d", cfg.SupabaseTimeout)
	}
	if cfg.ProviderTimeout <= 0 {
		return fmt.Errorf("WHATSAPP_TIMEOUT must be positive, got %d", cfg.ProviderTimeout)
	}
	if cfg.ProviderFetchLimit <= 0 {
		return fmt.Errorf("WHATSAPP_FETCH_LIMIT must be positive, got %d", cfg.ProviderFetchLimit)
	}
	if cfg.PollIntervalSeconds <= 0 {
		return fmt.Errorf("SCHEDULER_POLL_INTERVAL must be positive, got %d", cfg.PollIntervalSeconds)
	}
	if cfg.BatchLimit <= 0 {
		return fmt.Errorf("SCHEDULER_BATCH_LIMIT must be positive, got %d", cfg.BatchLimit)
	}
	if cfg.MaxHistoryLength <= 0 {
		return fmt.Errorf("SCHEDULER_MAX_HISTORY must be positive, got %d", cfg.MaxHistoryLength)
	}
	if cfg.GeminiAPIKey != "" && cfg.GeminiTimeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive, got %d", cfg.GeminiTimeout)
	}

	// Validate timestamp unit annotation
	switch cfg.ProviderTimestampUnit {
	case "", models.TimestampSeconds, models.TimestampMillis:
	default:
		return fmt.Errorf("WHATSAPP_TIMESTAMP_UNIT must be seconds or milliseconds, got %s", cfg.ProviderTimestampUnit)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %s", cfg.LogLevel)
	}

	return nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvInt64 retrieves environment variable as int64 or returns default value
func getEnvInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}
