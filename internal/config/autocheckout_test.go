package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestAutoCheckoutTargetOn(t *testing.T) {
	cfg := DefaultAutoCheckout()
	loc, err := cfg.Location()
	require.NoError(t, err)

	target, err := cfg.TargetOn("2026-10-19", loc)
	require.NoError(t, err)

	assert.Equal(t, 10, target.Hour())
	assert.Equal(t, 0, target.Minute())
	assert.Equal(t, "2026-10-19T04:30:00Z", target.UTC().Format(time.RFC3339))
}

func TestNewAutoCheckoutHolderFromRejectsInvalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AutoCheckout)
	}{
		{name: "empty_timezone", mutate: func(c *AutoCheckout) { c.Timezone = "" }},
		{name: "unknown_timezone", mutate: func(c *AutoCheckout) { c.Timezone = "Mars/Olympus" }},
		{name: "bad_target", mutate: func(c *AutoCheckout) { c.TargetTime = "10am" }},
		{name: "zero_window", mutate: func(c *AutoCheckout) { c.FallbackWindow = 0 }},
		{name: "grace_equals_window", mutate: func(c *AutoCheckout) { c.GracePeriod = c.FallbackWindow }},
		{name: "grace_exceeds_window", mutate: func(c *AutoCheckout) {
			c.GracePeriod = 90 * time.Minute
			c.FallbackWindow = 60 * time.Minute
		}},
		{name: "zero_notification_timeout", mutate: func(c *AutoCheckout) { c.NotificationTimeout = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultAutoCheckout()
			tc.mutate(&cfg)
			_, err := NewAutoCheckoutHolderFrom(cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewAutoCheckoutHolderDefaultsWithoutFile(t *testing.T) {
	holder, err := NewAutoCheckoutHolder(Config{AutoCheckoutConfigDir: t.TempDir()}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultAutoCheckout(), holder.Get())
}

func TestNewAutoCheckoutHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`autocheckout:
  enabled: false
  timezone: UTC
  targetTime: "11:30:00"
  gracePeriod: 15m
  fallbackWindow: 45m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "autocheckout.yml"), content, 0o600))

	holder, err := NewAutoCheckoutHolder(Config{AutoCheckoutConfigDir: dir}, zaptest.NewLogger(t))
	require.NoError(t, err)

	got := holder.Get()
	assert.False(t, got.Enabled)
	assert.Equal(t, "UTC", got.Timezone)
	assert.Equal(t, "11:30:00", got.TargetTime)
	assert.Equal(t, 15*time.Minute, got.GracePeriod)
	assert.Equal(t, 45*time.Minute, got.FallbackWindow)
	assert.Equal(t, 5*time.Second, got.NotificationTimeout)
}

func TestNewAutoCheckoutHolderRejectsGraceOutsideWindow(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`autocheckout:
  gracePeriod: 90m
  fallbackWindow: 60m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "autocheckout.yml"), content, 0o600))

	_, err := NewAutoCheckoutHolder(Config{AutoCheckoutConfigDir: dir}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gracePeriod")
}
