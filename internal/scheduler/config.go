package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/frontdesk/internal/config"
)

// Config controls the fallback cadence and its guard rails.
type Config struct {
	Enabled    bool
	Cron       string
	JobTimeout time.Duration
	LockTTL    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		Cron:       "*/30 10-11 * * *",
		JobTimeout: 2 * time.Minute,
		LockTTL:    5 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled: cfg.Scheduler.Enabled,
		Cron:    cfg.Scheduler.Cron,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.Cron) == "" {
		c.Cron = defaults.Cron
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
