package notification

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rezkam/hsewatch/internal/domain"
)

// memoryLogs is an in-memory LogRepository that enforces the same dedup
// rule as the SQL stores: only reserved records take part in it.
type memoryLogs struct {
	mu       sync.Mutex
	entries  []*domain.NotificationLog
	reserved map[string]bool

	reserveErr error
}

func (m *memoryLogs) ReserveNotification(_ context.Context, log *domain.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reserveErr != nil {
		return m.reserveErr
	}

	key := log.DedupKey()
	for _, e := range m.entries {
		if m.reserved[e.ID] && e.DedupKey() == key && e.Status != domain.NotificationFailed {
			return domain.ErrDuplicateNotification
		}
	}

	if m.reserved == nil {
		m.reserved = make(map[string]bool)
	}
	stored := *log
	stored.Status = domain.NotificationSending
	m.entries = append(m.entries, &stored)
	m.reserved[stored.ID] = true
	return nil
}

func (m *memoryLogs) CompleteNotification(_ context.Context, id string, status domain.NotificationStatus, messageID, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.ID == id {
			e.Status = status
			e.MessageID = messageID
			e.ErrorMessage = errMsg
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memoryLogs) AppendNotificationLog(_ context.Context, log *domain.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *log
	m.entries = append(m.entries, &stored)
	return nil
}

func (m *memoryLogs) ListNotificationLogs(_ context.Context, day time.Time) ([]*domain.NotificationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := day.Format(time.DateOnly)
	var out []*domain.NotificationLog
	for _, e := range m.entries {
		if e.NotifyDate.Format(time.DateOnly) == want {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memoryLogs) withStatus(status domain.NotificationStatus) []*domain.NotificationLog {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.NotificationLog
	for _, e := range m.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

type fakeGateway struct {
	SendFn func(ctx context.Context, email domain.Email) (string, error)

	mu     sync.Mutex
	emails []domain.Email
	calls  atomic.Int32
}

func (g *fakeGateway) Send(ctx context.Context, email domain.Email) (string, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.emails = append(g.emails, email)
	g.mu.Unlock()

	if g.SendFn != nil {
		return g.SendFn(ctx, email)
	}
	return "msg-" + email.To, nil
}

func (g *fakeGateway) sent() []domain.Email {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.emails)
}

type fakeSource struct {
	ListFn func(ctx context.Context, from, until time.Time) ([]domain.ReminderCandidate, error)

	mu        sync.Mutex
	calls     int
	lastFrom  time.Time
	lastUntil time.Time
}

func (f *fakeSource) ListReminderCandidates(ctx context.Context, from, until time.Time) ([]domain.ReminderCandidate, error) {
	f.mu.Lock()
	f.calls++
	f.lastFrom = from
	f.lastUntil = until
	f.mu.Unlock()
	return f.ListFn(ctx, from, until)
}

func staticSource(candidates ...domain.ReminderCandidate) *fakeSource {
	return &fakeSource{
		ListFn: func(context.Context, time.Time, time.Time) ([]domain.ReminderCandidate, error) {
			return candidates, nil
		},
	}
}

type fakeLocker struct {
	acquired  bool
	err       error
	extendErr error
	released  atomic.Bool
	extended  atomic.Int32
	lateCalls atomic.Int32
	holder    string
}

func (l *fakeLocker) TryAcquireRunLease(_ context.Context, _, holderID string, _ time.Duration) (func(), bool, error) {
	if l.err != nil || !l.acquired {
		return nil, false, l.err
	}
	l.holder = holderID
	return func() { l.released.Store(true) }, true, nil
}

func (l *fakeLocker) ExtendRunLease(context.Context, string, string, time.Duration) error {
	if l.released.Load() {
		l.lateCalls.Add(1)
	}
	l.extended.Add(1)
	return l.extendErr
}

type fakeReporter struct {
	reports []domain.RunReport
	err     error
}

func (r *fakeReporter) SaveRunReport(_ context.Context, report domain.RunReport) error {
	r.reports = append(r.reports, report)
	return r.err
}
