package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const targetTimeLayout = "15:04:05"

// AutoCheckout controls the daily auto checkout routine.
type AutoCheckout struct {
	Enabled             bool          `mapstructure:"enabled" json:"enabled"`
	Timezone            string        `mapstructure:"timezone" json:"timezone"`
	TargetTime          string        `mapstructure:"targetTime" json:"target_time"`
	GracePeriod         time.Duration `mapstructure:"gracePeriod" json:"grace_period"`
	FallbackWindow      time.Duration `mapstructure:"fallbackWindow" json:"fallback_window"`
	NotificationTimeout time.Duration `mapstructure:"notificationTimeout" json:"notification_timeout"`
	PromptCooldown      time.Duration `mapstructure:"promptCooldown" json:"prompt_cooldown"`
}

func DefaultAutoCheckout() AutoCheckout {
	return AutoCheckout{
		Enabled:             true,
		Timezone:            "Asia/Kolkata",
		TargetTime:          "10:00:00",
		GracePeriod:         30 * time.Minute,
		FallbackWindow:      60 * time.Minute,
		NotificationTimeout: 5 * time.Second,
		PromptCooldown:      30 * time.Second,
	}
}

// Location resolves the configured timezone.
func (a AutoCheckout) Location() (*time.Location, error) {
	return time.LoadLocation(strings.TrimSpace(a.Timezone))
}

// TargetOn returns the target instant on the given local calendar date (YYYY-MM-DD).
func (a AutoCheckout) TargetOn(date string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := time.Parse(targetTimeLayout, a.TargetTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, loc), nil
}

// AutoCheckoutHolder keeps the latest valid AutoCheckout settings.
type AutoCheckoutHolder struct {
	current atomic.Value // holds AutoCheckout
}

// NewAutoCheckoutHolderFrom returns a holder pinned to the given settings.
func NewAutoCheckoutHolderFrom(cfg AutoCheckout) (*AutoCheckoutHolder, error) {
	if err := validateAutoCheckout(cfg); err != nil {
		return nil, err
	}
	holder := &AutoCheckoutHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func NewAutoCheckoutHolder(cfg Config, log *zap.Logger) (*AutoCheckoutHolder, error) {
	log = log.Named("config.autocheckout")
	v := viper.New()

	v.SetConfigName("autocheckout")
	v.SetConfigType("yml")
	if cfg.AutoCheckoutConfigDir != "" {
		v.AddConfigPath(cfg.AutoCheckoutConfigDir)
	}
	v.AddConfigPath("/etc/frontdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FRONTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAutoCheckout()
	v.SetDefault("autocheckout.enabled", defaults.Enabled)
	v.SetDefault("autocheckout.timezone", defaults.Timezone)
	v.SetDefault("autocheckout.targetTime", defaults.TargetTime)
	v.SetDefault("autocheckout.gracePeriod", defaults.GracePeriod)
	v.SetDefault("autocheckout.fallbackWindow", defaults.FallbackWindow)
	v.SetDefault("autocheckout.notificationTimeout", defaults.NotificationTimeout)
	v.SetDefault("autocheckout.promptCooldown", defaults.PromptCooldown)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	settings, err := decodeAutoCheckout(v)
	if err != nil {
		return nil, err
	}
	holder, err := NewAutoCheckoutHolderFrom(settings)
	if err != nil {
		return nil, err
	}

	if !fileFound {
		log.Info("autocheckout config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeAutoCheckout(v)
		if err != nil {
			log.Warn("autocheckout config reload failed", zap.Error(err))
			return
		}
		if err := validateAutoCheckout(updated); err != nil {
			log.Warn("invalid autocheckout config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("autocheckout config reloaded",
			zap.String("file", e.Name),
			zap.Bool("enabled", updated.Enabled),
			zap.String("target_time", updated.TargetTime),
		)
	})

	return holder, nil
}

// decodeAutoCheckout merges defaults, file and env before decoding.
func decodeAutoCheckout(v *viper.Viper) (AutoCheckout, error) {
	var wrapper struct {
		AutoCheckout AutoCheckout `mapstructure:"autocheckout"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return AutoCheckout{}, err
	}
	return wrapper.AutoCheckout, nil
}

func (h *AutoCheckoutHolder) Get() AutoCheckout {
	return h.current.Load().(AutoCheckout)
}

func validateAutoCheckout(cfg AutoCheckout) error {
	if strings.TrimSpace(cfg.Timezone) == "" {
		return errors.New("autocheckout.timezone cannot be empty")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(cfg.Timezone)); err != nil {
		return fmt.Errorf("autocheckout.timezone: %w", err)
	}
	if _, err := time.Parse(targetTimeLayout, cfg.TargetTime); err != nil {
		return fmt.Errorf("autocheckout.targetTime must be HH:MM:SS: %w", err)
	}
	if cfg.GracePeriod < 0 {
		return errors.New("autocheckout.gracePeriod cannot be negative")
	}
	if cfg.FallbackWindow <= 0 {
		return errors.New("autocheckout.fallbackWindow must be positive")
	}
	if cfg.GracePeriod >= cfg.FallbackWindow {
		return errors.New("autocheckout.gracePeriod must be shorter than autocheckout.fallbackWindow")
	}
	if cfg.NotificationTimeout <= 0 {
		return errors.New("autocheckout.notificationTimeout must be positive")
	}
	if cfg.PromptCooldown < 0 {
		return errors.New("autocheckout.promptCooldown cannot be negative")
	}
	return nil
}
