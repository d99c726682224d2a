package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Sheet sync backends selectable via SHEET_BACKEND.
const (
	SheetBackendGoogle   = "google"
	SheetBackendWorkbook = "workbook"
	SheetBackendNone     = "none"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string

	// Slack configuration
	SlackBotToken      string
	SlackSigningSecret string
	SlackChannelID     string

	// Study group configuration
	MeetURL      string
	Timezone     string
	AnnounceCron string
	SummaryCron  string
	StartCron    string
	CatchUpEvery time.Duration

	// Attendance sheet sync
	SheetBackend             string
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	WorkbookPath             string

	// Day-state persistence (file unless REDIS_URL is set)
	StatePath string
	RedisURL  string

	// Optional message template overrides (YAML)
	MessagesPath string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3000"),
		Environment: getEnv("ENVIRONMENT", "development"),

		SlackBotToken:      getEnv("SLACK_BOT_TOKEN", ""),
		SlackSigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
		SlackChannelID:     getEnv("SLACK_CHANNEL_ID", ""),

		MeetURL:      getEnv("MEET_URL", ""),
		Timezone:     getEnv("TIMEZONE", "Asia/Tokyo"),
		AnnounceCron: getEnv("ANNOUNCE_CRON", "0 9 * * 1,3,5"),
		SummaryCron:  getEnv("SUMMARY_CRON", "0 15 * * 1,3,5"),
		StartCron:    getEnv("START_CRON", "0 17 * * 1,3,5"),
		CatchUpEvery: getDurationEnv("ANNOUNCE_CATCHUP_INTERVAL", 5*time.Minute),

		SheetBackend:             getEnv("SHEET_BACKEND", SheetBackendGoogle),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		WorkbookPath:             getEnv("WORKBOOK_PATH", "./attendance.xlsx"),

		StatePath: getEnv("STATE_PATH", "./state.json"),
		RedisURL:  getEnv("REDIS_URL", ""),

		MessagesPath: getEnv("MESSAGES_PATH", ""),
	}
}

// Validate reports every missing or malformed setting at once so a
// botched deployment shows the full list instead of failing one key at
// a time.
func (c *Config) Validate() error {
	type requiredKey struct {
		key   string
		value string
	}
	required := []requiredKey{
		{"SLACK_BOT_TOKEN", c.SlackBotToken},
		{"SLACK_SIGNING_SECRET", c.SlackSigningSecret},
		{"SLACK_CHANNEL_ID", c.SlackChannelID},
		{"MEET_URL", c.MeetURL},
	}
	if c.SheetBackend == SheetBackendGoogle {
		required = append(required,
			requiredKey{"GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID},
			requiredKey{"GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON},
		)
	}

	var missing []string
	for _, entry := range required {
		if entry.value == "" {
			missing = append(missing, entry.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	switch c.SheetBackend {
	case SheetBackendGoogle, SheetBackendWorkbook, SheetBackendNone:
	default:
		return fmt.Errorf("invalid SHEET_BACKEND %q: must be %s, %s or %s",
			c.SheetBackend, SheetBackendGoogle, SheetBackendWorkbook, SheetBackendNone)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
