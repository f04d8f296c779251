package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/hsewatch/internal/config"
	"github.com/rezkam/hsewatch/internal/domain"
	"github.com/rezkam/hsewatch/internal/infrastructure/email"
)

func TestOpenStore_SQLite(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(ctx, config.DatabaseConfig{
		Driver:      config.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "hse.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(ctx))
}

func TestOpenStore_UnsupportedDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.ErrorIs(t, err, config.ErrUnsupportedDriver)
}

func TestNewEmailGateway(t *testing.T) {
	ctx := context.Background()

	gw, err := NewEmailGateway(ctx, config.EmailConfig{})
	require.NoError(t, err)
	assert.IsType(t, email.LogGateway{}, gw)

	gw, err = NewEmailGateway(ctx, config.EmailConfig{APIKey: "re_x", From: "hse@example.com"})
	require.NoError(t, err)
	assert.IsType(t, &email.ResendGateway{}, gw)

	_, err = NewEmailGateway(ctx, config.EmailConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestOpenArchive(t *testing.T) {
	ctx := context.Background()

	a, closeFn, err := OpenArchive(ctx, config.ReportConfig{})
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.NoError(t, closeFn())

	a, closeFn, err = OpenArchive(ctx, config.ReportConfig{Storage: config.ReportStorageFS, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.NotNil(t, a)
	assert.NoError(t, closeFn())

	_, _, err = OpenArchive(ctx, config.ReportConfig{Storage: "s3"})
	assert.Error(t, err)
}

func TestNewReminderService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(ctx, config.DatabaseConfig{
		Driver:      config.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "hse.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	defer store.Close()

	reports, _, err := OpenArchive(ctx, config.ReportConfig{Storage: config.ReportStorageFS, Dir: t.TempDir()})
	require.NoError(t, err)

	due := time.Now().UTC().AddDate(0, 0, 7)
	require.NoError(t, store.CreateTask(ctx, domain.Task{
		ID: uuid.NewString(), Title: "Eyewash station check", DueDate: &due,
		Frequency: "Monthly", AssigneeEmail: "officer@example.com",
	}))

	svc, err := NewReminderService(store, email.LogGateway{}, reports, nil, config.ReminderConfig{RatePerSecond: -1})
	require.NoError(t, err)

	result, err := svc.RunDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchResult{Total: 1, Sent: 1}, result)

	today := svc.Today().Format(time.DateOnly)
	archived, err := reports.ListRunReports(ctx, today)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, result, archived[0].Result)
}

func TestNewReminderService_InvalidTimezone(t *testing.T) {
	_, err := NewReminderService(nil, email.LogGateway{}, nil, nil, config.ReminderConfig{Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}

func TestMaskPassword(t *testing.T) {
	assert.Equal(t, "postgres://hse:xxxxxx@db:5432/hse", MaskPassword("postgres://hse:secret@db:5432/hse"))
	assert.Equal(t, "postgres://db:5432/hse", MaskPassword("postgres://db:5432/hse"))
	assert.Equal(t, "[REDACTED]", MaskPassword("postgres://%zz"))
}
