// Package config provides configuration loading, validation, and management
// for the WhatsApp Groups Monitor. Values come from defaults, an optional
// config.yaml, and WGM_* environment variables.
package config

import (
	"strings"
	"time"
)

// Config defines the application configuration for all components of the
// monitor: logging, storage, the WhatsApp bridge, Gemini, the summary
// pipeline, and the webhook server. It is built once at startup and passed
// explicitly into every component constructor.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Summary  SummaryConfig  `mapstructure:"summary"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// LogConfig controls log verbosity and output format.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig holds SQLite settings. EncryptionKey is optional; when empty,
// message and summary text are stored in the clear.
type DatabaseConfig struct {
	Path          string `mapstructure:"path" validate:"required"`
	EncryptionKey string `mapstructure:"encryption_key"`
}

// WhatsAppConfig holds the bridge endpoint and credentials.
type WhatsAppConfig struct {
	APIURL  string        `mapstructure:"api_url" validate:"required,url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout" validate:"required,min=1s,max=5m"`
}

// GeminiConfig holds the summarization model settings.
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key" validate:"required"`
	Model       string        `mapstructure:"model" validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"min=1s,max=2m"`
}

// SummaryConfig holds the aggregation pipeline settings: the authorized
// recipient, the daily schedule, trigger keywords, and message thresholds.
type SummaryConfig struct {
	Recipient    string `mapstructure:"recipient" validate:"required"`
	ScheduleHour int    `mapstructure:"schedule_hour" validate:"min=0,max=23"`
	Timezone     string `mapstructure:"timezone" validate:"required"`
	Keywords     string `mapstructure:"keywords" validate:"required"`
	StatsKeyword string `mapstructure:"stats_keyword" validate:"required"`
	MinMessages  int    `mapstructure:"min_messages" validate:"min=1"`
	MaxMessages  int    `mapstructure:"max_messages" validate:"min=1"`
}

// WebhookConfig holds the inbound HTTP settings. Secret is an optional shared
// secret; when empty the webhook endpoint is open.
type WebhookConfig struct {
	Port   int    `mapstructure:"port" validate:"min=1,max=65535"`
	Secret string `mapstructure:"secret"`
}

// KeywordList returns the summary trigger keywords, lowercased and trimmed.
func (s SummaryConfig) KeywordList() []string {
	parts := strings.Split(s.Keywords, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		kw := strings.ToLower(strings.TrimSpace(p))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// Location resolves the configured timezone. Load validates it, so failures
// after startup indicate a programming error.
func (s SummaryConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}
