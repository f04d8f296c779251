// Package bootstrap builds the reminder stack from configuration. Both
// binaries share it so the server and the worker run identical wiring.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/rezkam/hsewatch/internal/application/notification"
	"github.com/rezkam/hsewatch/internal/config"
	"github.com/rezkam/hsewatch/internal/domain"
	"github.com/rezkam/hsewatch/internal/infrastructure/archive"
	"github.com/rezkam/hsewatch/internal/infrastructure/email"
	"github.com/rezkam/hsewatch/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/hsewatch/internal/infrastructure/persistence/sqlite"
)

// Store is what the reminder stack needs from persistence.
type Store interface {
	notification.CandidateSource
	notification.LogRepository
	notification.RunLocker

	CreateProgram(ctx context.Context, p domain.Program) error
	CreateTask(ctx context.Context, t domain.Task) error
	CreateProgramProgress(ctx context.Context, pp domain.ProgramProgress) error
	SeedProgram(ctx context.Context, p domain.Program, progress []domain.ProgramProgress, tasks []domain.Task) error

	Ping(ctx context.Context) error
	io.Closer
}

// Archive stores and reads run reports.
type Archive interface {
	notification.RunReporter
	GetRunReport(ctx context.Context, day, runID string) (domain.RunReport, error)
	ListRunReports(ctx context.Context, day string) ([]domain.RunReport, error)
}

var (
	_ Store   = (*postgres.Store)(nil)
	_ Store   = (*sqlite.Store)(nil)
	_ Archive = (*archive.FSArchive)(nil)
	_ Archive = (*archive.GCSArchive)(nil)
)

// OpenStore connects to the configured database.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.DriverName() {
	case config.DriverPostgres:
		store, err := postgres.NewStoreWithConfig(ctx, postgres.DBConfig{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTime) * time.Second,
			AutoMigrate:     cfg.AutoMigrate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		slog.InfoContext(ctx, "storage initialized", "driver", "postgres", "dsn", MaskPassword(cfg.DSN))
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, sqlite.Config{
			Path:        cfg.DSN,
			AutoMigrate: cfg.AutoMigrate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		slog.InfoContext(ctx, "storage initialized", "driver", "sqlite", "path", cfg.DSN)
		return store, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedDriver, cfg.Driver)
	}
}

// NewEmailGateway returns the configured provider.
func NewEmailGateway(ctx context.Context, cfg config.EmailConfig) (notification.EmailGateway, error) {
	switch cfg.ProviderName() {
	case config.EmailProviderResend:
		return email.NewResendGateway(email.ResendConfig{
			APIKey:  cfg.APIKey,
			From:    cfg.From,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}), nil
	case config.EmailProviderLog:
		slog.WarnContext(ctx, "email provider is 'log': reminders are logged, not sent")
		return email.LogGateway{}, nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}

// OpenArchive returns the configured report archive, or nil when reports
// are not stored. The returned close function is never nil.
func OpenArchive(ctx context.Context, cfg config.ReportConfig) (Archive, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StorageName() {
	case config.ReportStorageNone:
		return nil, noop, nil
	case config.ReportStorageFS:
		a, err := archive.NewFSArchive(cfg.Dir)
		if err != nil {
			return nil, noop, err
		}
		return a, noop, nil
	case config.ReportStorageGCS:
		a, err := archive.NewGCSArchive(ctx, cfg.Bucket)
		if err != nil {
			return nil, noop, err
		}
		return a, a.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown report storage %q", cfg.Storage)
	}
}

// NewReminderService builds the notification service. reports and mp may
// be nil; mp then falls back to the global meter provider.
func NewReminderService(store Store, gateway notification.EmailGateway, reports Archive, mp metric.MeterProvider, cfg config.ReminderConfig) (*notification.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := []notification.Option{notification.WithRunLocker(store)}
	if mp != nil {
		opts = append(opts, notification.WithMeterProvider(mp))
	}
	if reports != nil {
		opts = append(opts, notification.WithRunReporter(reports))
	}

	return notification.NewService(store, store, gateway, notification.Config{
		Concurrency:   cfg.Concurrency,
		SendTimeout:   cfg.SendTimeout,
		RatePerSecond: cfg.RatePerSecond,
		DisableDedup:  cfg.DisableDedup,
		Location:      loc,
		RunLease:      cfg.RunLease,
		DashboardURL:  cfg.DashboardURL,
	}, opts...), nil
}

// MaskPassword masks the password in a connection string for logging.
func MaskPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		return "[REDACTED]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxxx")
		}
	}
	return u.String()
}

// CloseAll closes every closer in order and joins the errors.
func CloseAll(closers ...func() error) error {
	var errs []error
	for _, c := range closers {
		if c != nil {
			errs = append(errs, c())
		}
	}
	return errors.Join(errs...)
}
