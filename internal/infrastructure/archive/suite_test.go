package archive

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/hsewatch/internal/domain"
)

type reportArchive interface {
	SaveRunReport(ctx context.Context, report domain.RunReport) error
	GetRunReport(ctx context.Context, day, runID string) (domain.RunReport, error)
	ListRunReports(ctx context.Context, day string) ([]domain.RunReport, error)
}

func sampleReport(day string, started time.Time) domain.RunReport {
	return domain.RunReport{
		RunID:      uuid.Must(uuid.NewV7()).String(),
		Trigger:    "daily",
		Today:      day,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Candidates: 3,
		Result:     domain.BatchResult{Total: 2, Sent: 1, Failed: 1},
		Outcomes: []domain.DispatchOutcome{
			{ItemType: domain.ItemTypeTask, ItemName: "Fire drill", RecipientEmail: "a@example.com", DaysUntilDue: 7, Status: domain.NotificationSent},
			{ItemType: domain.ItemTypeOTPProgram, ItemName: "Audiometry", RecipientEmail: "b@example.com", DaysUntilDue: 14, Status: domain.NotificationFailed, Error: "gateway 503"},
		},
	}
}

// runArchiveTests is the contract every report archive must satisfy.
func runArchiveTests(t *testing.T, setup func(t *testing.T) (reportArchive, func())) {
	t.Run("SaveAndGet", func(t *testing.T) {
		a, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		report := sampleReport("2025-06-01", time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC))
		require.NoError(t, a.SaveRunReport(ctx, report))

		got, err := a.GetRunReport(ctx, report.Today, report.RunID)
		require.NoError(t, err)
		assert.Equal(t, report.RunID, got.RunID)
		assert.Equal(t, report.Result, got.Result)
		assert.True(t, report.StartedAt.Equal(got.StartedAt))
		assert.Equal(t, report.Outcomes, got.Outcomes)
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		a, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		report := sampleReport("2025-06-01", time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC))
		require.NoError(t, a.SaveRunReport(ctx, report))

		report.Result = domain.BatchResult{Total: 2, Sent: 2}
		require.NoError(t, a.SaveRunReport(ctx, report))

		got, err := a.GetRunReport(ctx, report.Today, report.RunID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Result.Sent)
	})

	t.Run("GetUnknownReport", func(t *testing.T) {
		a, teardown := setup(t)
		defer teardown()

		_, err := a.GetRunReport(context.Background(), "2025-06-01", uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ListByDay", func(t *testing.T) {
		a, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		base := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)
		later := sampleReport("2025-06-02", base.Add(time.Hour))
		earlier := sampleReport("2025-06-02", base)
		otherDay := sampleReport("2025-06-03", base.AddDate(0, 0, 1))
		for _, r := range []domain.RunReport{later, earlier, otherDay} {
			require.NoError(t, a.SaveRunReport(ctx, r))
		}

		reports, err := a.ListRunReports(ctx, "2025-06-02")
		require.NoError(t, err)
		require.Len(t, reports, 2)
		assert.Equal(t, earlier.RunID, reports[0].RunID)
		assert.Equal(t, later.RunID, reports[1].RunID)

		empty, err := a.ListRunReports(ctx, "2025-01-01")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("RejectsMalformedKeys", func(t *testing.T) {
		a, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		bad := sampleReport("06/01/2025", time.Now())
		assert.Error(t, a.SaveRunReport(ctx, bad))

		_, err := a.ListRunReports(ctx, "yesterday")
		assert.Error(t, err)

		_, err = a.GetRunReport(ctx, "2025-06-01", "../secrets")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
