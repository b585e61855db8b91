package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATA_DIR", "/var/lib/remind")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendJSON, cfg.StoreBackend)
	assert.Equal(t, filepath.Join("/var/lib/remind", "reminders.json"), cfg.RemindersFile)
	assert.Equal(t, filepath.Join("/var/lib/remind", "timezones.json"), cfg.TimezonesFile)
	assert.Equal(t, filepath.Join("/var/lib/remind", "reminders.db"), cfg.DBPath)
	assert.Equal(t, "UTC", cfg.DefaultTZ)
	assert.Equal(t, 25, cfg.MaxReminders)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.ErrorBackoff)
	assert.Equal(t, "noon", cfg.WeekdayPolicy)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoad_RequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("DB_PATH", "/tmp/r.db")
	t.Setenv("MAX_REMINDERS_PER_USER", "3")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("WEEKDAY_POLICY", "today-if-future")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "/tmp/r.db", cfg.DBPath)
	assert.Equal(t, 3, cfg.MaxReminders)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
}

func TestValidate(t *testing.T) {
	valid := Config{
		BotToken:      "123:abc",
		StoreBackend:  BackendJSON,
		DefaultTZ:     "Europe/Moscow",
		WeekdayPolicy: "noon",
		MaxReminders:  1,
		PollInterval:  time.Second,
		ErrorBackoff:  time.Second,
		SendRate:      1,
		SendBurst:     1,
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"token":    func(c *Config) { c.BotToken = " " },
		"backend":  func(c *Config) { c.StoreBackend = "redis" },
		"timezone": func(c *Config) { c.DefaultTZ = "Nowhere/Land" },
		"policy":   func(c *Config) { c.WeekdayPolicy = "maybe" },
		"quota":    func(c *Config) { c.MaxReminders = 0 },
		"interval": func(c *Config) { c.PollInterval = 0 },
		"rate":     func(c *Config) { c.SendBurst = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
