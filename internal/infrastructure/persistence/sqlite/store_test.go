package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/hsewatch/internal/infrastructure/persistence/compliance"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), Config{
		Path:        filepath.Join(t.TempDir(), "reminders.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	return store
}

func TestStoreCompliance(t *testing.T) {
	compliance.RunReminderStoreComplianceTest(t, func(t *testing.T) (compliance.Store, func()) {
		store := openTestStore(t)
		return store, func() { _ = store.Close() }
	})
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{Path: "  "})
	assert.Error(t, err)
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "reminders.db")

	first, err := Open(ctx, Config{Path: path, AutoMigrate: true})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(ctx, Config{Path: path, AutoMigrate: true})
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, second.Ping(ctx))
}

func TestOpen_InMemory(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, Config{Path: ":memory:", AutoMigrate: true})
	require.NoError(t, err)
	defer store.Close()

	var tables int
	require.NoError(t, store.DB().QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('tasks', 'notification_logs', 'run_leases')`,
	).Scan(&tables))
	assert.Equal(t, 3, tables)
}
