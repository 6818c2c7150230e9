// Package config loads process configuration from .env, the environment and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the server.
type Config struct {
	Environment string
	LogLevel    string

	// Addr is the HTTP listen address.
	Addr string

	// DataDir holds the SQLite database when DBDriver is sqlite3.
	DataDir     string
	DBDriver    string
	DatabaseURL string

	// StaticDir serves a frontend build at / when set.
	StaticDir string

	// EventsFile overrides the built-in event catalog when set.
	EventsFile string

	// Timezone is the single zone all schedules are evaluated in.
	Timezone string

	Reminder ReminderConfig
	Notify   NotifyConfig

	StatusTick  time.Duration
	CORSOrigins []string

	// HealthCheck runs a probe against Addr and exits.
	HealthCheck bool
}

// ReminderConfig controls the reminder scan.
type ReminderConfig struct {
	Cron             string
	LeadMinutes      int
	ToleranceMinutes int
	Concurrency      int
}

// NotifyConfig selects and configures the outbound message provider.
type NotifyConfig struct {
	Provider          string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
}

// Load builds the configuration. Values come from, in increasing precedence:
// defaults, a .env file (outside production), environment variables, flags.
func Load(args []string) (*Config, error) {
	env := getEnv("APP_ENV", "development")

	// In production we rely on the real environment only.
	if env != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: .env file couldn't be loaded: %v", err)
		}
		env = getEnv("APP_ENV", env)
	}

	cfg := &Config{
		Environment: env,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Addr:        getEnv("HTTP_ADDR", ":8099"),
		DataDir:     getEnv("DATA_DIR", "/data"),
		DBDriver:    getEnv("DB_DRIVER", "sqlite3"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		EventsFile:  os.Getenv("EVENTS_FILE"),
		StaticDir:   os.Getenv("STATIC_DIR"),
		Timezone:    os.Getenv("TIMEZONE"),
		Reminder: ReminderConfig{
			Cron:             getEnv("REMINDER_CRON", "@every 1m"),
			LeadMinutes:      getEnvInt("REMINDER_LEAD_MINUTES", 30),
			ToleranceMinutes: getEnvInt("REMINDER_TOLERANCE_MINUTES", 1),
			Concurrency:      getEnvInt("REMINDER_CONCURRENCY", 4),
		},
		Notify: NotifyConfig{
			Provider:          getEnv("NOTIFY_PROVIDER", ""),
			TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
			TwilioPhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
		},
		StatusTick:  getEnvDuration("STATUS_TICK", time.Second),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Data directory for SQLite database")
	fs.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "Directory for static frontend files")
	fs.StringVar(&cfg.EventsFile, "events", cfg.EventsFile, "YAML file with event definitions (built-in catalog if empty)")
	fs.BoolVar(&cfg.HealthCheck, "health-check", false, "Run health check and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Notify.Provider == "" {
		cfg.Notify.Provider = "twilio"
		if cfg.Environment == "development" {
			cfg.Notify.Provider = "log"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks for values the server cannot run with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.Reminder.LeadMinutes <= 0 {
		return fmt.Errorf("REMINDER_LEAD_MINUTES must be positive, got %d", c.Reminder.LeadMinutes)
	}
	if c.Reminder.ToleranceMinutes < 0 {
		return fmt.Errorf("REMINDER_TOLERANCE_MINUTES must not be negative, got %d", c.Reminder.ToleranceMinutes)
	}
	if c.Reminder.Concurrency <= 0 {
		c.Reminder.Concurrency = 1
	}
	// Cron schedules have one second resolution.
	if c.StatusTick < time.Second {
		return fmt.Errorf("STATUS_TICK too small: %s", c.StatusTick)
	}

	return nil
}

// Location resolves Timezone, falling back to the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DatabaseURL
	}
	return filepath.Join(c.DataDir, "aion-timer.db")
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv returns an environment variable value or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
