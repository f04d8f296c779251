package notification

import (
	"context"
	"time"

	"github.com/rezkam/hsewatch/internal/domain"
)

// CandidateSource reads the records that may need a reminder.
type CandidateSource interface {
	// ListReminderCandidates returns open tasks and program-progress entries
	// whose due date falls within [from, until], both inclusive calendar days.
	// Rows with no assignee email are returned as-is; the engine filters them.
	ListReminderCandidates(ctx context.Context, from, until time.Time) ([]domain.ReminderCandidate, error)
}

// LogRepository stores one record per send attempt.
type LogRepository interface {
	// ReserveNotification inserts log in the "sending" state.
	// Returns domain.ErrDuplicateNotification when another reservation for the
	// same dedup key is "sending" or "sent". Failed attempts never block a
	// reservation.
	ReserveNotification(ctx context.Context, log *domain.NotificationLog) error

	// CompleteNotification moves a reserved record to its final status.
	// messageID and errMsg are nil when not applicable.
	// Returns domain.ErrNotFound if no record has the given ID.
	CompleteNotification(ctx context.Context, id string, status domain.NotificationStatus, messageID, errMsg *string) error

	// AppendNotificationLog inserts a finished record without any dedup check.
	// Appended records are not reservations and never block one.
	AppendNotificationLog(ctx context.Context, log *domain.NotificationLog) error

	// ListNotificationLogs returns the records of one notify date, oldest first.
	ListNotificationLogs(ctx context.Context, day time.Time) ([]*domain.NotificationLog, error)
}

// EmailGateway delivers a rendered email.
type EmailGateway interface {
	// Send returns the provider's message id on success.
	Send(ctx context.Context, email domain.Email) (messageID string, err error)
}

// RunLocker keeps two reminder runs from overlapping.
type RunLocker interface {
	// TryAcquireRunLease attempts to take the lease for runType.
	// Returns acquired=false (and no error) when another holder owns a live lease.
	// The caller must call release when acquired is true.
	TryAcquireRunLease(ctx context.Context, runType, holderID string, lease time.Duration) (release func(), acquired bool, err error)

	// ExtendRunLease pushes the expiry of a held lease to now+lease.
	// Returns domain.ErrRunLeaseLost when holderID no longer owns it.
	ExtendRunLease(ctx context.Context, runType, holderID string, lease time.Duration) error
}

// RunReporter archives the summary of a finished run.
type RunReporter interface {
	SaveRunReport(ctx context.Context, report domain.RunReport) error
}
