package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/config"
)

// setRequiredEnv provides the values that have no usable defaults.
func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("WGM_GEMINI_API_KEY", "test-api-key")
	t.Setenv("WGM_SUMMARY_RECIPIENT", "972501234567")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	// Point at a file that does not exist; defaults plus env must suffice.
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Summary.ScheduleHour != 20 {
		t.Errorf("schedule hour = %d", cfg.Summary.ScheduleHour)
	}
	if cfg.Summary.Timezone != "Asia/Jerusalem" {
		t.Errorf("timezone = %q", cfg.Summary.Timezone)
	}
	if cfg.Summary.MinMessages != 15 || cfg.Summary.MaxMessages != 1000 {
		t.Errorf("thresholds = %d/%d", cfg.Summary.MinMessages, cfg.Summary.MaxMessages)
	}
	if cfg.Webhook.Port != 8000 {
		t.Errorf("webhook port = %d", cfg.Webhook.Port)
	}
	if cfg.Gemini.APIKey != "test-api-key" {
		t.Errorf("gemini api key not taken from environment: %q", cfg.Gemini.APIKey)
	}
	if cfg.Summary.Recipient != "972501234567" {
		t.Errorf("recipient not taken from environment: %q", cfg.Summary.Recipient)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WGM_SUMMARY_SCHEDULE_HOUR", "8")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "summary:\n  schedule_hour: 6\n  timezone: \"Europe/London\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Summary.ScheduleHour != 8 {
		t.Errorf("environment should override the file: hour = %d", cfg.Summary.ScheduleHour)
	}
	if cfg.Summary.Timezone != "Europe/London" {
		t.Errorf("file should override the default: timezone = %q", cfg.Summary.Timezone)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "missing gemini api key", key: "WGM_GEMINI_API_KEY", value: ""},
		{name: "missing recipient", key: "WGM_SUMMARY_RECIPIENT", value: ""},
		{name: "bad log level", key: "WGM_LOG_LEVEL", value: "verbose"},
		{name: "bad timezone", key: "WGM_SUMMARY_TIMEZONE", value: "Atlantis/Capital"},
		{name: "schedule hour out of range", key: "WGM_SUMMARY_SCHEDULE_HOUR", value: "24"},
		{name: "webhook port out of range", key: "WGM_WEBHOOK_PORT", value: "70000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.key, tc.value)

			if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestKeywordList(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		keywords string
		expected []string
	}{
		{
			name:     "defaults",
			keywords: "sikum,סיכום,summary,summarize",
			expected: []string{"sikum", "סיכום", "summary", "summarize"},
		},
		{
			name:     "whitespace and case",
			keywords: " Sikum , SUMMARY ",
			expected: []string{"sikum", "summary"},
		},
		{
			name:     "empty entries dropped",
			keywords: "summary,,  ,",
			expected: []string{"summary"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.SummaryConfig{Keywords: tc.keywords}
			got := cfg.KeywordList()
			if len(got) != len(tc.expected) {
				t.Fatalf("KeywordList() = %v, want %v", got, tc.expected)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Fatalf("KeywordList() = %v, want %v", got, tc.expected)
				}
			}
		})
	}
}
