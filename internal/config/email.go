package config

import (
	"fmt"
	"time"
)

// Email providers.
const (
	EmailProviderResend = "resend"
	EmailProviderLog    = "log"
)

// EmailConfig holds email gateway configuration.
type EmailConfig struct {
	// Provider is "resend" or "log". Empty selects resend when an API key
	// is set and the logging dry-run gateway otherwise.
	Provider string        `env:"HSE_EMAIL_PROVIDER"`
	APIKey   string        `env:"HSE_EMAIL_API_KEY"`
	From     string        `env:"HSE_EMAIL_FROM"`
	BaseURL  string        `env:"HSE_EMAIL_BASE_URL"` // zero = provider default
	Timeout  time.Duration `env:"HSE_EMAIL_TIMEOUT"`  // HTTP client timeout
}

// ProviderName resolves the effective provider.
func (c *EmailConfig) ProviderName() string {
	if c.Provider != "" {
		return c.Provider
	}
	if c.APIKey != "" {
		return EmailProviderResend
	}
	return EmailProviderLog
}

// Validate validates the email configuration.
func (c *EmailConfig) Validate() error {
	switch c.ProviderName() {
	case EmailProviderResend:
		if c.APIKey == "" {
			return fmt.Errorf("HSE_EMAIL_API_KEY is required for the resend provider")
		}
		if c.From == "" {
			return fmt.Errorf("HSE_EMAIL_FROM is required for the resend provider")
		}
		return nil
	case EmailProviderLog:
		return nil
	default:
		return fmt.Errorf("unsupported HSE_EMAIL_PROVIDER: %q", c.Provider)
	}
}
