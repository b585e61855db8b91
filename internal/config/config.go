package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// Store backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`

	StoreBackend  string `envconfig:"STORE_BACKEND" default:"json"` // json|sqlite
	DataDir       string `envconfig:"DATA_DIR" default:"./data"`
	RemindersFile string `envconfig:"REMINDERS_FILE"` // default: $DATA_DIR/reminders.json
	TimezonesFile string `envconfig:"TIMEZONES_FILE"` // default: $DATA_DIR/timezones.json
	DBPath        string `envconfig:"DB_PATH"`        // default: $DATA_DIR/reminders.db

	DefaultTZ     string        `envconfig:"DEFAULT_TZ" default:"UTC"`
	MaxReminders  int           `envconfig:"MAX_REMINDERS_PER_USER" default:"25"`
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	ErrorBackoff  time.Duration `envconfig:"ERROR_BACKOFF" default:"5s"`
	WeekdayPolicy string        `envconfig:"WEEKDAY_POLICY" default:"noon"` // noon|next-week|today-if-future

	SendRate  float64 `envconfig:"SEND_RATE" default:"25"` // messages per second
	SendBurst int     `envconfig:"SEND_BURST" default:"5"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"` // healthz + metrics
}

// Load reads environment variables into Config, fills derived paths and validates.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	cfg.fillPaths()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) fillPaths() {
	if c.RemindersFile == "" {
		c.RemindersFile = filepath.Join(c.DataDir, "reminders.json")
	}
	if c.TimezonesFile == "" {
		c.TimezonesFile = filepath.Join(c.DataDir, "timezones.json")
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "reminders.db")
	}
}

// Validate checks values envconfig cannot.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return fmt.Errorf("BOT_TOKEN is empty")
	}
	switch c.StoreBackend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("STORE_BACKEND: unknown backend %q", c.StoreBackend)
	}
	if _, err := domain.ValidateTZ(c.DefaultTZ); err != nil {
		return fmt.Errorf("DEFAULT_TZ: %w", err)
	}
	if _, err := domain.ParseWeekdayPolicy(c.WeekdayPolicy); err != nil {
		return fmt.Errorf("WEEKDAY_POLICY: %w", err)
	}
	if c.MaxReminders < 1 {
		return fmt.Errorf("MAX_REMINDERS_PER_USER must be positive, got %d", c.MaxReminders)
	}
	if c.PollInterval <= 0 || c.ErrorBackoff <= 0 {
		return fmt.Errorf("POLL_INTERVAL and ERROR_BACKOFF must be positive")
	}
	if c.SendRate <= 0 || c.SendBurst < 1 {
		return fmt.Errorf("SEND_RATE and SEND_BURST must be positive")
	}
	return nil
}
