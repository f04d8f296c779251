package config

import "fmt"

// Report storage backends.
const (
	ReportStorageNone = "none"
	ReportStorageFS   = "fs"
	ReportStorageGCS  = "gcs"
)

// ReportConfig selects where run reports are archived.
type ReportConfig struct {
	Storage string `env:"HSE_REPORT_STORAGE"` // none (default), fs, gcs
	Dir     string `env:"HSE_REPORT_DIR"`
	Bucket  string `env:"HSE_REPORT_BUCKET"`
}

// StorageName returns the configured backend, defaulting to none.
func (c *ReportConfig) StorageName() string {
	if c.Storage == "" {
		return ReportStorageNone
	}
	return c.Storage
}

// Validate validates the report configuration.
func (c *ReportConfig) Validate() error {
	switch c.StorageName() {
	case ReportStorageNone:
		return nil
	case ReportStorageFS:
		if c.Dir == "" {
			return fmt.Errorf("HSE_REPORT_DIR is required when HSE_REPORT_STORAGE is 'fs'")
		}
		return nil
	case ReportStorageGCS:
		if c.Bucket == "" {
			return fmt.Errorf("HSE_REPORT_BUCKET is required when HSE_REPORT_STORAGE is 'gcs'")
		}
		return nil
	default:
		return fmt.Errorf("unknown HSE_REPORT_STORAGE: %s", c.Storage)
	}
}
