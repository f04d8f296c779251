package config

import (
	"fmt"
	"time"

	"github.com/rezkam/hsewatch/internal/env"
)

// WorkerConfig holds all configuration for the worker binary.
type WorkerConfig struct {
	Database      DatabaseConfig
	Email         EmailConfig
	Reminder      ReminderConfig
	Report        ReportConfig
	Observability ObservabilityConfig

	// Schedule is a cron expression evaluated in the reminder time zone.
	Schedule         string        `env:"HSE_WORKER_SCHEDULE"`
	RunOnStart       bool          `env:"HSE_WORKER_RUN_ON_START"`
	OperationTimeout time.Duration `env:"HSE_WORKER_OPERATION_TIMEOUT"`
}

// LoadWorkerConfig loads and validates worker configuration from environment.
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}

	return cfg, nil
}
