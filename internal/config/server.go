package config

import (
	"fmt"
	"time"

	"github.com/rezkam/hsewatch/internal/env"
)

// ServerConfig holds all configuration for the server binary.
type ServerConfig struct {
	Database        DatabaseConfig
	HTTP            HTTPConfig
	Cron            CronConfig
	Email           EmailConfig
	Reminder        ReminderConfig
	Report          ReportConfig
	Observability   ObservabilityConfig
	ShutdownTimeout time.Duration `env:"HSE_SHUTDOWN_TIMEOUT"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Host              string        `env:"HSE_HTTP_HOST"`
	Port              string        `env:"HSE_HTTP_PORT"`
	ReadTimeout       time.Duration `env:"HSE_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"HSE_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"HSE_HTTP_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `env:"HSE_HTTP_READ_HEADER_TIMEOUT"`
	MaxHeaderBytes    int           `env:"HSE_HTTP_MAX_HEADER_BYTES"`
	MaxBodyBytes      int64         `env:"HSE_HTTP_MAX_BODY_BYTES"`

	// TriggerTimeout bounds a batch started through the HTTP trigger. The
	// trigger response may take this long regardless of WriteTimeout.
	TriggerTimeout time.Duration `env:"HSE_HTTP_TRIGGER_TIMEOUT"`

	// TLS configuration for HTTPS
	TLSEnabled  bool   `env:"HSE_TLS_ENABLED"`
	TLSCertFile string `env:"HSE_TLS_CERT_FILE"`
	TLSKeyFile  string `env:"HSE_TLS_KEY_FILE"`
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	if c.TLSEnabled && (c.TLSCertFile == "" || c.TLSKeyFile == "") {
		return fmt.Errorf("HSE_TLS_CERT_FILE and HSE_TLS_KEY_FILE are required when HSE_TLS_ENABLED is true")
	}
	return nil
}

// CronConfig holds the trigger endpoint authentication.
type CronConfig struct {
	// Secret is the bearer token external schedulers must present.
	// Empty leaves the trigger endpoints open.
	Secret string `env:"HSE_CRON_SECRET"`
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	OTelEnabled bool   `env:"HSE_OTEL_ENABLED"`
	ServiceName string `env:"OTEL_SERVICE_NAME"`
}

// LoadServerConfig loads and validates server configuration from environment.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	return cfg, nil
}
