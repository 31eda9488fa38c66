package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Storage backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendAzure  = "azure"
)

// Report schedules
const (
	ScheduleDaily  = "daily"
	ScheduleWeekly = "weekly"
	ScheduleOff    = "off"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Analytics configuration
	TimeZone  string
	NumTopics int

	// Remote classifier
	ClassifierURL         string
	ClassifierTimeout     time.Duration
	EnableRemoteSentiment bool
	EnableRemoteTopics    bool
	TopicLabelsFile       string

	// Storage configuration
	StorageBackend   string
	SQLitePath       string
	StorageAccount   string
	StorageContainer string
	SessionSlot      string
	ArchiveRetention time.Duration

	// Report delivery
	ReportSchedule     string
	TeamsWebhookURL    string
	NotificationEmails []string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		TimeZone:  getEnv("TIMEZONE", "UTC"),
		NumTopics: getIntEnv("NUM_TOPICS", 5),

		ClassifierURL:         getEnv("CLASSIFIER_URL", ""),
		ClassifierTimeout:     getDurationEnv("CLASSIFIER_TIMEOUT", 15*time.Second),
		EnableRemoteSentiment: getBoolEnv("ENABLE_REMOTE_SENTIMENT", false),
		EnableRemoteTopics:    getBoolEnv("ENABLE_REMOTE_TOPICS", false),
		TopicLabelsFile:       getEnv("TOPIC_LABELS_FILE", ""),

		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", BackendMemory)),
		SQLitePath:       getEnv("SQLITE_PATH", "brand-analytics.db"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "brand-analytics"),
		SessionSlot:      getEnv("SESSION_SLOT", "brandsData"),
		ArchiveRetention: getDurationEnv("ARCHIVE_RETENTION", 30*24*time.Hour),

		ReportSchedule:     strings.ToLower(getEnv("REPORT_SCHEDULE", ScheduleOff)),
		TeamsWebhookURL:    getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmails: getSliceEnv("NOTIFICATION_EMAIL", nil),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getIntEnv("SMTP_PORT", 587),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a known location: %w", c.TimeZone, err)
	}

	if c.NumTopics < 1 || c.NumTopics > 20 {
		return fmt.Errorf("NUM_TOPICS must be between 1 and 20")
	}

	if c.ClassifierTimeout < time.Second || c.ClassifierTimeout > 30*time.Second {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be between 1s and 30s")
	}

	if (c.EnableRemoteSentiment || c.EnableRemoteTopics) && c.ClassifierURL == "" {
		return fmt.Errorf("CLASSIFIER_URL is required when remote classification is enabled")
	}

	switch c.StorageBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite storage backend")
		}
	case BackendAzure:
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required for the azure storage backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be 'memory', 'sqlite' or 'azure'")
	}

	if c.SessionSlot == "" {
		return fmt.Errorf("SESSION_SLOT must not be empty")
	}

	if c.ArchiveRetention < 0 {
		return fmt.Errorf("ARCHIVE_RETENTION must not be negative")
	}

	switch c.ReportSchedule {
	case ScheduleDaily, ScheduleWeekly:
		if c.TeamsWebhookURL == "" && len(c.NotificationEmails) == 0 {
			return fmt.Errorf("at least one notification method must be configured (TEAMS_WEBHOOK_URL or NOTIFICATION_EMAIL) when REPORT_SCHEDULE is set")
		}
	case ScheduleOff:
	default:
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily', 'weekly' or 'off'")
	}

	if len(c.NotificationEmails) > 0 {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Location returns the configured time zone, UTC when it cannot be loaded
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("15s") or plain seconds ("15")
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return defaultValue
}
