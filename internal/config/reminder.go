package config

import (
	"fmt"
	"time"
)

// ReminderConfig holds reminder dispatch configuration.
// Zero values select the service defaults.
type ReminderConfig struct {
	Concurrency   int           `env:"HSE_REMINDER_CONCURRENCY"`
	SendTimeout   time.Duration `env:"HSE_REMINDER_SEND_TIMEOUT"`
	RatePerSecond float64       `env:"HSE_REMINDER_RATE_PER_SEC"` // negative = unlimited
	RunLease      time.Duration `env:"HSE_REMINDER_RUN_LEASE"`

	// Timezone is an IANA name; "today" is evaluated in it. Defaults to UTC.
	Timezone string `env:"HSE_REMINDER_TIMEZONE"`

	// DisableDedup sends again when a batch is re-run on the same day.
	DisableDedup bool `env:"HSE_REMINDER_DISABLE_DEDUP"`

	DashboardURL string `env:"HSE_DASHBOARD_URL"`
}

// Location returns the configured time zone.
func (c *ReminderConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid HSE_REMINDER_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate validates the reminder configuration.
func (c *ReminderConfig) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("HSE_REMINDER_CONCURRENCY must be >= 0, got %d", c.Concurrency)
	}
	if c.SendTimeout < 0 {
		return fmt.Errorf("HSE_REMINDER_SEND_TIMEOUT must be >= 0, got %s", c.SendTimeout)
	}
	_, err := c.Location()
	return err
}
