// Package compliance holds the contract tests every reminder store must pass.
package compliance

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/hsewatch/internal/application/notification"
	"github.com/rezkam/hsewatch/internal/domain"
)

// Store is the full surface a reminder store exposes.
type Store interface {
	notification.CandidateSource
	notification.LogRepository
	notification.RunLocker

	CreateProgram(ctx context.Context, p domain.Program) error
	CreateTask(ctx context.Context, t domain.Task) error
	CreateProgramProgress(ctx context.Context, pp domain.ProgramProgress) error
	SeedProgram(ctx context.Context, p domain.Program, progress []domain.ProgramProgress, tasks []domain.Task) error
}

var today = time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC)

func day(offset int) *time.Time {
	d := today.AddDate(0, 0, offset)
	return &d
}

func ptr[T any](v T) *T {
	return &v
}

// newLog builds an attempt whose item id is derived from the name; tests
// that need two items with one name set ItemID themselves.
func newLog(itemName, email string, notifyDate time.Time) *domain.NotificationLog {
	return &domain.NotificationLog{
		ID:             uuid.NewString(),
		ItemType:       domain.ItemTypeTask,
		ItemID:         "task-" + itemName,
		ItemName:       itemName,
		RecipientEmail: email,
		RecipientName:  "Officer",
		DaysUntilDue:   7,
		NotifyDate:     notifyDate,
		CreatedAt:      time.Now().UTC(),
	}
}

// RunReminderStoreComplianceTest runs a standard set of tests against a Store.
// setup returns a fresh (clean) Store and a teardown function.
func RunReminderStoreComplianceTest(t *testing.T, setup func(t *testing.T) (Store, func())) {
	t.Run("ListReminderCandidates", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		program := domain.Program{
			ID:       uuid.NewString(),
			Name:     "Hearing Conservation",
			Type:     domain.ProgramTypeOTP,
			Location: domain.LocationTags{Base: "Balikpapan", Region: "East"},
		}
		inWindow := domain.ProgramProgress{
			ID: uuid.NewString(), ProgramID: program.ID, ActivityName: "Audiometry",
			DueDate: day(7), Frequency: "Annual", PICEmail: " pic@example.com ", PICName: "Pat",
		}
		completed := domain.ProgramProgress{
			ID: uuid.NewString(), ProgramID: program.ID, ActivityName: "Noise survey",
			DueDate: day(3), Frequency: "Monthly", PICEmail: "pic@example.com", Status: domain.StatusCompleted,
		}
		tooFar := domain.ProgramProgress{
			ID: uuid.NewString(), ProgramID: program.ID, ActivityName: "Refresher",
			DueDate: day(45), Frequency: "Annual", PICEmail: "pic@example.com",
		}
		linkedTask := domain.Task{
			ID: uuid.NewString(), ProgramID: &program.ID, Title: "Book audiologist",
			DueDate: day(14), Frequency: "Monthly", AssigneeEmail: "task@example.com", AssigneeName: "Tay",
		}
		require.NoError(t, store.SeedProgram(ctx, program,
			[]domain.ProgramProgress{inWindow, completed, tooFar},
			[]domain.Task{linkedTask}))

		standalone := domain.Task{
			ID: uuid.NewString(), Title: "Fire extinguisher check", DueDate: day(30),
			Frequency: "Quarterly", Location: domain.LocationTags{Region: "West"},
		}
		overdue := domain.Task{
			ID: uuid.NewString(), Title: "Overdue", DueDate: day(-1),
			Frequency: "Monthly", AssigneeEmail: "late@example.com",
		}
		undated := domain.Task{ID: uuid.NewString(), Title: "No date", AssigneeEmail: "x@example.com"}
		for _, task := range []domain.Task{standalone, overdue, undated} {
			require.NoError(t, store.CreateTask(ctx, task))
		}

		matrix := domain.Program{ID: uuid.NewString(), Name: "Matrix 2030", Type: domain.ProgramTypeMatrix}
		require.NoError(t, store.CreateProgram(ctx, matrix))
		matrixEntry := domain.ProgramProgress{
			ID: uuid.NewString(), ProgramID: matrix.ID, ActivityName: "Gap review",
			DueDate: day(0), Frequency: "Semester", PICEmail: "m@example.com",
		}
		require.NoError(t, store.CreateProgramProgress(ctx, matrixEntry))

		candidates, err := store.ListReminderCandidates(ctx, today, today.AddDate(0, 0, 30))
		require.NoError(t, err)

		byID := make(map[string]domain.ReminderCandidate)
		for _, c := range candidates {
			byID[c.ItemID] = c
		}
		assert.Len(t, candidates, 4)
		assert.NotContains(t, byID, completed.ID)
		assert.NotContains(t, byID, tooFar.ID)
		assert.NotContains(t, byID, overdue.ID)
		assert.NotContains(t, byID, undated.ID)

		progress := byID[inWindow.ID]
		assert.Equal(t, domain.ItemTypeOTPProgram, progress.ItemType)
		assert.Equal(t, "Audiometry", progress.ItemName)
		assert.Equal(t, "pic@example.com", progress.RecipientEmail)
		assert.Equal(t, "Pat", progress.RecipientName)
		assert.Equal(t, "Annual", progress.FrequencyLabel)
		assert.Equal(t, today.AddDate(0, 0, 7), progress.DueDate.UTC())
		require.NotNil(t, progress.ParentProgramName)
		assert.Equal(t, "Hearing Conservation", *progress.ParentProgramName)
		require.NotNil(t, progress.Location)
		assert.Equal(t, "Balikpapan", progress.Location.Base)

		task := byID[linkedTask.ID]
		assert.Equal(t, domain.ItemTypeTask, task.ItemType)
		require.NotNil(t, task.ParentProgramName)
		require.NotNil(t, task.Location)
		assert.Equal(t, "East", task.Location.Region, "tasks inherit the program location")

		alone := byID[standalone.ID]
		assert.Empty(t, alone.RecipientEmail, "rows without an assignee are still returned")
		assert.Nil(t, alone.ParentProgramName)
		require.NotNil(t, alone.Location)
		assert.Equal(t, "West", alone.Location.Region)

		assert.Equal(t, domain.ItemTypeMatrixProgram, byID[matrixEntry.ID].ItemType)

		// Ordered by due date.
		assert.True(t, slices.IsSortedFunc(candidates, func(a, b domain.ReminderCandidate) int {
			return a.DueDate.Compare(b.DueDate)
		}))
	})

	t.Run("CreateTaskUnknownProgram", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()

		err := store.CreateTask(context.Background(), domain.Task{
			ID: uuid.NewString(), ProgramID: ptr(uuid.NewString()), Title: "Orphan", DueDate: day(3),
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ReserveRejectsSecondLiveReservation", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		first := newLog("Fire drill", "officer@example.com", today)
		require.NoError(t, store.ReserveNotification(ctx, first))
		assert.Equal(t, domain.NotificationSending, first.Status)

		err := store.ReserveNotification(ctx, newLog("Fire drill", "Officer@Example.com", today))
		assert.ErrorIs(t, err, domain.ErrDuplicateNotification)

		require.NoError(t, store.CompleteNotification(ctx, first.ID, domain.NotificationSent, ptr("msg-1"), nil))

		err = store.ReserveNotification(ctx, newLog("Fire drill", "officer@example.com", today))
		assert.ErrorIs(t, err, domain.ErrDuplicateNotification)

		// Another day, item or recipient is a different key.
		require.NoError(t, store.ReserveNotification(ctx, newLog("Fire drill", "officer@example.com", today.AddDate(0, 0, 1))))
		require.NoError(t, store.ReserveNotification(ctx, newLog("Spill kit", "officer@example.com", today)))
		require.NoError(t, store.ReserveNotification(ctx, newLog("Fire drill", "deputy@example.com", today)))
	})

	t.Run("ReserveKeysOnItemIDNotName", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		north := newLog("Monthly Safety Meeting", "pic@example.com", today)
		north.ItemType = domain.ItemTypeOTPProgram
		north.ItemID = uuid.NewString()
		require.NoError(t, store.ReserveNotification(ctx, north))

		south := newLog("Monthly Safety Meeting", "pic@example.com", today)
		south.ItemType = domain.ItemTypeOTPProgram
		south.ItemID = uuid.NewString()
		require.NoError(t, store.ReserveNotification(ctx, south))

		again := newLog("Monthly Safety Meeting", "PIC@example.com", today)
		again.ItemType = domain.ItemTypeOTPProgram
		again.ItemID = south.ItemID
		assert.ErrorIs(t, store.ReserveNotification(ctx, again), domain.ErrDuplicateNotification)
	})

	t.Run("FailedAttemptFreesReservation", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		first := newLog("Fire drill", "officer@example.com", today)
		require.NoError(t, store.ReserveNotification(ctx, first))
		require.NoError(t, store.CompleteNotification(ctx, first.ID, domain.NotificationFailed, nil, ptr("gateway 503")))

		require.NoError(t, store.ReserveNotification(ctx, newLog("Fire drill", "officer@example.com", today)))
	})

	t.Run("AppendedLogsDoNotTakePartInDedup", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		for range 2 {
			l := newLog("Fire drill", "officer@example.com", today)
			l.Status = domain.NotificationSent
			require.NoError(t, store.AppendNotificationLog(ctx, l))
		}

		require.NoError(t, store.ReserveNotification(ctx, newLog("Fire drill", "officer@example.com", today)))

		logs, err := store.ListNotificationLogs(ctx, today)
		require.NoError(t, err)
		assert.Len(t, logs, 3)
	})

	t.Run("AppendRejectsUnknownStatus", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()

		l := newLog("Fire drill", "officer@example.com", today)
		l.Status = "queued"
		assert.ErrorIs(t, store.AppendNotificationLog(context.Background(), l), domain.ErrInvalidNotificationStatus)
	})

	t.Run("CompleteNotification", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		err := store.CompleteNotification(ctx, uuid.NewString(), domain.NotificationSent, nil, nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		l := newLog("Fire drill", "officer@example.com", today)
		require.NoError(t, store.ReserveNotification(ctx, l))

		err = store.CompleteNotification(ctx, l.ID, domain.NotificationSending, nil, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidNotificationStatus)
	})

	t.Run("ListNotificationLogs", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		sent := newLog("Fire drill", "officer@example.com", today)
		sent.CreatedAt = time.Now().UTC().Add(-time.Minute)
		require.NoError(t, store.ReserveNotification(ctx, sent))
		require.NoError(t, store.CompleteNotification(ctx, sent.ID, domain.NotificationSent, ptr("msg-42"), nil))

		failed := newLog("Spill kit", "officer@example.com", today)
		failed.Status = domain.NotificationFailed
		failed.ErrorMessage = ptr("mailbox full")
		require.NoError(t, store.AppendNotificationLog(ctx, failed))

		other := newLog("Fire drill", "officer@example.com", today.AddDate(0, 0, -1))
		other.Status = domain.NotificationSent
		require.NoError(t, store.AppendNotificationLog(ctx, other))

		logs, err := store.ListNotificationLogs(ctx, today)
		require.NoError(t, err)
		require.Len(t, logs, 2)

		assert.Equal(t, sent.ID, logs[0].ID)
		assert.Equal(t, "task-Fire drill", logs[0].ItemID)
		assert.Equal(t, domain.NotificationSent, logs[0].Status)
		require.NotNil(t, logs[0].MessageID)
		assert.Equal(t, "msg-42", *logs[0].MessageID)
		assert.Nil(t, logs[0].ErrorMessage)
		assert.Equal(t, 7, logs[0].DaysUntilDue)
		assert.Equal(t, "2030-03-10", logs[0].NotifyDate.Format(time.DateOnly))

		assert.Equal(t, failed.ID, logs[1].ID)
		assert.Equal(t, domain.NotificationFailed, logs[1].Status)
		require.NotNil(t, logs[1].ErrorMessage)
		assert.Equal(t, "mailbox full", *logs[1].ErrorMessage)
	})

	t.Run("RunLease", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		release, acquired, err := store.TryAcquireRunLease(ctx, "daily", "holder-a", time.Minute)
		require.NoError(t, err)
		require.True(t, acquired)

		_, acquired, err = store.TryAcquireRunLease(ctx, "daily", "holder-b", time.Minute)
		require.NoError(t, err)
		assert.False(t, acquired, "live lease must not be taken over")

		// Other run types are independent.
		releaseOther, acquired, err := store.TryAcquireRunLease(ctx, "weekly", "holder-b", time.Minute)
		require.NoError(t, err)
		assert.True(t, acquired)
		releaseOther()

		release()

		releaseB, acquired, err := store.TryAcquireRunLease(ctx, "daily", "holder-b", time.Minute)
		require.NoError(t, err)
		assert.True(t, acquired)
		releaseB()
	})

	t.Run("ExtendRunLease", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		release, acquired, err := store.TryAcquireRunLease(ctx, "daily", "holder-a", -time.Second)
		require.NoError(t, err)
		require.True(t, acquired)

		err = store.ExtendRunLease(ctx, "daily", "holder-b", time.Minute)
		assert.ErrorIs(t, err, domain.ErrRunLeaseLost, "only the holder may extend")

		require.NoError(t, store.ExtendRunLease(ctx, "daily", "holder-a", time.Minute))

		_, acquired, err = store.TryAcquireRunLease(ctx, "daily", "holder-b", time.Minute)
		require.NoError(t, err)
		assert.False(t, acquired, "an extended lease is live again")

		release()
		err = store.ExtendRunLease(ctx, "daily", "holder-a", time.Minute)
		assert.ErrorIs(t, err, domain.ErrRunLeaseLost)
	})

	t.Run("ExpiredLeaseIsTakenOver", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		_, acquired, err := store.TryAcquireRunLease(ctx, "daily", "crashed", -time.Second)
		require.NoError(t, err)
		require.True(t, acquired)

		release, acquired, err := store.TryAcquireRunLease(ctx, "daily", "fresh", time.Minute)
		require.NoError(t, err)
		assert.True(t, acquired)
		release()
	})

	t.Run("DailyRunSendsOncePerDay", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		require.NoError(t, store.CreateTask(ctx, domain.Task{
			ID: uuid.NewString(), Title: "Fire drill", DueDate: day(14),
			Frequency: "Monthly", AssigneeEmail: "officer@example.com",
		}))

		gateway := &countingGateway{}
		svc := notification.NewService(store, store, gateway,
			notification.Config{RatePerSecond: -1},
			notification.WithRunLocker(store),
			notification.WithClock(func() time.Time { return today.Add(8 * time.Hour) }))

		first, err := svc.RunDaily(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.BatchResult{Total: 1, Sent: 1}, first)

		second, err := svc.RunDaily(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.BatchResult{Total: 1, Skipped: 1}, second)

		assert.Equal(t, 1, gateway.count())

		logs, err := store.ListNotificationLogs(ctx, today)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, domain.NotificationSent, logs[0].Status)
		assert.Equal(t, 14, logs[0].DaysUntilDue)
	})

	t.Run("SameNamedActivitiesAreRemindedSeparately", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		var progressIDs []string
		for i, base := range []string{"Balikpapan", "Duri"} {
			program := domain.Program{
				ID: uuid.NewString(), Name: "OTP " + base, Type: domain.ProgramTypeOTP,
				Location: domain.LocationTags{Base: base},
			}
			entry := domain.ProgramProgress{
				ID: uuid.NewString(), ProgramID: program.ID, ActivityName: "Monthly Safety Meeting",
				DueDate: day(7 * (i + 1)), Frequency: "Monthly", PICEmail: "pic@example.com",
			}
			require.NoError(t, store.SeedProgram(ctx, program, []domain.ProgramProgress{entry}, nil))
			progressIDs = append(progressIDs, entry.ID)
		}

		gateway := &countingGateway{}
		svc := notification.NewService(store, store, gateway,
			notification.Config{RatePerSecond: -1},
			notification.WithClock(func() time.Time { return today.Add(8 * time.Hour) }))

		result, err := svc.RunDaily(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.BatchResult{Total: 2, Sent: 2}, result)
		assert.Equal(t, 2, gateway.count())

		logs, err := store.ListNotificationLogs(ctx, today)
		require.NoError(t, err)
		var logged []string
		for _, l := range logs {
			logged = append(logged, l.ItemID)
		}
		assert.ElementsMatch(t, progressIDs, logged)
	})
}
