package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	validBackends  = []string{"memory", "disk", "sqlite"}
	validProviders = []string{"gemini", "anthropic"}
)

type Config struct {
	// HTTP Server
	Port     string
	BindAddr string

	// Storage
	DataBackend  string
	DataDir      string
	SQLiteDBPath string

	// Presentation
	Timezone    string
	TrendDays   int
	LowIntakeML float64

	// Insight
	InsightProvider string
	InsightAPIKey   string
	InsightModel    string
	InsightBaseURL  string
	InsightTimeout  time.Duration
	InsightLanguage string

	// AMQP (optional; empty URL disables change events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Scheduler
	DigestSchedule string

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		BindAddr: getEnv("BIND_ADDR", "127.0.0.1"),

		DataBackend:  getEnv("DATA_BACKEND", "disk"),
		DataDir:      getEnv("DATA_DIR", defaultDataDir()),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", ""),

		Timezone:    getEnv("TIMEZONE", ""),
		TrendDays:   getEnvInt("TREND_DAYS", 7),
		LowIntakeML: getEnvFloat("LOW_INTAKE_ML", 1500),

		InsightProvider: strings.ToLower(getEnv("INSIGHT_PROVIDER", "gemini")),
		InsightModel:    getEnv("INSIGHT_MODEL", ""),
		InsightBaseURL:  getEnv("INSIGHT_BASE_URL", ""),
		InsightTimeout:  getEnvDuration("INSIGHT_TIMEOUT", 30*time.Second),
		InsightLanguage: getEnv("INSIGHT_LANGUAGE", "English"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "h2olog"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "h2olog_changes"),

		DigestSchedule: getEnv("DIGEST_SCHEDULE", "5 0 * * *"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	cfg.InsightAPIKey = firstEnv("INSIGHT_API_KEY", providerKeyEnv(cfg.InsightProvider), "API_KEY")
	if cfg.SQLiteDBPath == "" {
		cfg.SQLiteDBPath = filepath.Join(cfg.DataDir, "h2olog.db")
	}
	return cfg
}

func providerKeyEnv(provider string) string {
	if provider == "anthropic" {
		return "ANTHROPIC_API_KEY"
	}
	return "GEMINI_API_KEY"
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "h2olog")
	}
	return "data"
}

// Location resolves Timezone; empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}

// InsightConfigured reports whether an API key is present.
func (c *Config) InsightConfigured() bool {
	return c.InsightAPIKey != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	switch c.DataBackend {
	case "disk":
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using disk backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if c.TrendDays < 1 || c.TrendDays > 90 {
		errors = append(errors, fmt.Sprintf("invalid trend days %d: must be between 1 and 90", c.TrendDays))
	}
	if c.LowIntakeML <= 0 {
		errors = append(errors, fmt.Sprintf("invalid low intake threshold %v: must be positive", c.LowIntakeML))
	}

	if !slices.Contains(validProviders, c.InsightProvider) {
		errors = append(errors, fmt.Sprintf("invalid insight provider '%s': must be one of %v", c.InsightProvider, validProviders))
	}
	if c.InsightTimeout < time.Second || c.InsightTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid insight timeout %v: must be between 1s and 5m", c.InsightTimeout))
	}
	if c.InsightBaseURL != "" {
		if u, err := url.Parse(c.InsightBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid insight base URL '%s'", c.InsightBaseURL))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := cron.ParseStandard(c.DigestSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid digest schedule '%s': %v", c.DigestSchedule, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
