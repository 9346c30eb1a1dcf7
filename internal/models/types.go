package models

// ModelType represents the type of LLM model
type ModelType string

const (
	// ModelFlash represents Gemini 2.0 Flash model
	// Used for fast, cheap summary enhancement
	// See current rate limits: https://ai.google.dev/pricing
	ModelFlash ModelType = "gemini-2.0-flash"
)

// String returns string representation of ModelType
func (m ModelType) String() string {
	return string(m)
}

// TimestampUnit annotates the unit of provider timestamps. When empty the
// client falls back to a magnitude heuristic (values above 10^12 are
// treated as milliseconds).
type TimestampUnit string

const (
	// TimestampSeconds means the provider sends epoch seconds
	TimestampSeconds TimestampUnit = "seconds"

	// TimestampMillis means the provider sends epoch milliseconds
	TimestampMillis TimestampUnit = "milliseconds"
)

// Config represents worker configuration
type Config struct {
	// Supabase settings
	SupabaseURL     string
	SupabaseKey     string
	SupabaseTimeout int

	// WhatsApp provider settings (WAHA-compatible HTTP API)
	ProviderURL           string
	ProviderAPIKey        string
	ProviderSession       string
	ProviderTimeout       int
	ProviderFetchLimit    int
	ProviderTimestampUnit TimestampUnit

	// Scheduler settings
	PollIntervalSeconds int
	BatchLimit          int
	MaxHistoryLength    int

	// Gemini API settings (optional summary enhancement)
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout int

	// Telegram digest delivery (optional)
	TelegramToken  string
	TelegramChatID int64

	// App settings
	LogLevel    string
	Environment string
}

// LLMEnabled reports whether Gemini summary enhancement is configured
func (c *Config) LLMEnabled() bool {
	return c.GeminiAPIKey != ""
}

// TelegramEnabled reports whether digest delivery is configured
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}
