package config

import (
	"fmt"

	"github.com/rezkam/hsewatch/internal/env"
)

// SeedConfig holds configuration for the seed tool.
type SeedConfig struct {
	Database DatabaseConfig
}

// LoadSeedConfig loads and validates seed tool configuration from environment.
func LoadSeedConfig() (*SeedConfig, error) {
	cfg := &SeedConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load seed config: %w", err)
	}

	return cfg, nil
}
