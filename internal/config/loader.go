package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from, in order of precedence:
// 1. WGM_* environment variables
// 2. the YAML file at configPath (optional)
// 3. built-in defaults
// The result is validated before being returned.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("WGM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// SetConfigFile bypasses the not-found error type, so fall back
			// to a plain existence check via the wrapped error string.
			if !strings.Contains(err.Error(), "no such file") {
				return nil, fmt.Errorf("failed to read config file %q: %w", configPath, err)
			}
		}
		slog.Info("configuration file not found, using defaults and environment", "path", configPath)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if _, err := cfg.Summary.Location(); err != nil {
		return nil, fmt.Errorf("invalid summary timezone %q: %w", cfg.Summary.Timezone, err)
	}

	slog.Info("configuration loaded",
		"log_level", cfg.Log.Level,
		"db_path", cfg.Database.Path,
		"gemini_model", cfg.Gemini.Model,
		"schedule_hour", cfg.Summary.ScheduleHour,
		"timezone", cfg.Summary.Timezone,
		"webhook_port", cfg.Webhook.Port)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	v.SetDefault("database.path", "whatsapp_monitor.db")
	v.SetDefault("database.encryption_key", "")

	v.SetDefault("whatsapp.api_url", "http://localhost:3000")
	v.SetDefault("whatsapp.api_key", "")
	v.SetDefault("whatsapp.timeout", "30s")

	// Registering the required keys with empty defaults keeps them visible
	// to AutomaticEnv during Unmarshal; validation enforces presence.
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "models/gemini-flash-latest")
	v.SetDefault("gemini.temperature", 1.0)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay", "5s")

	v.SetDefault("summary.recipient", "")
	v.SetDefault("summary.schedule_hour", 20)
	v.SetDefault("summary.timezone", "Asia/Jerusalem")
	v.SetDefault("summary.keywords", "sikum,סיכום,summary,summarize")
	v.SetDefault("summary.stats_keyword", "stats")
	v.SetDefault("summary.min_messages", 15)
	v.SetDefault("summary.max_messages", 1000)

	v.SetDefault("webhook.port", 8000)
	v.SetDefault("webhook.secret", "")
}
