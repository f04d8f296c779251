// Package notification runs the daily reminder batch: it reads candidates,
// selects the ones due for a reminder today and sends them.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/rezkam/hsewatch/internal/domain"
	"github.com/rezkam/hsewatch/internal/reminder"
)

// Default configuration values.
const (
	DefaultConcurrency   = 4
	DefaultSendTimeout   = 10 * time.Second
	DefaultRatePerSecond = 2.0
	DefaultRunLease      = 10 * time.Minute
)

// DailyRunType names the lease held while a daily batch runs.
const DailyRunType = "daily-reminders"

// Run triggers recorded in reports and metrics.
const (
	TriggerDaily = "daily"
	TriggerTest  = "test"
)

// Synthetic candidate used by test mode.
const (
	TestItemName      = "Test Safety Inspection"
	TestItemID        = "test-safety-inspection"
	TestFrequency     = "Monthly"
	TestDaysUntilDue  = 7
	testRecipientName = "HSE Tester"
)

// Config holds configuration for the Service.
// Zero values select the defaults above.
type Config struct {
	// Concurrency caps how many sends are in flight at once.
	Concurrency int

	// SendTimeout bounds a single gateway call.
	SendTimeout time.Duration

	// RatePerSecond limits gateway calls across the batch.
	// Negative disables the limiter.
	RatePerSecond float64

	// DisableDedup turns off the "already sent today" check and logs every
	// attempt with a plain append. Re-running the batch then resends.
	DisableDedup bool

	// Location is the time zone "today" is evaluated in. Defaults to UTC.
	Location *time.Location

	// RunLease is how long a daily run holds the run lease between renewals.
	RunLease time.Duration

	// LeaseRenewInterval is how often a running batch extends its lease.
	// Defaults to a third of RunLease.
	LeaseRenewInterval time.Duration

	// DashboardURL is linked from every email when set.
	DashboardURL string
}

// TestRequest asks for a single synthetic reminder to be sent.
type TestRequest struct {
	Email string
	Name  string
}

// Service dispatches reminder emails.
type Service struct {
	source   CandidateSource
	logs     LogRepository
	gateway  EmailGateway
	locker   RunLocker
	reporter RunReporter
	config   Config
	now      func() time.Time
	limiter  *rate.Limiter
	metrics  *metrics
	meter    metric.MeterProvider
}

// Option is a functional option for configuring Service.
type Option func(*Service)

// WithRunLocker enables the overlapping-run guard of RunDaily.
func WithRunLocker(locker RunLocker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithRunReporter archives a report after every run.
func WithRunReporter(reporter RunReporter) Option {
	return func(s *Service) {
		s.reporter = reporter
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMeterProvider records metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) {
		s.meter = mp
	}
}

// NewService creates a reminder service.
// Applies defaults for zero or invalid config values.
func NewService(source CandidateSource, logs LogRepository, gateway EmailGateway, config Config, opts ...Option) *Service {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = DefaultSendTimeout
	}
	if config.RatePerSecond == 0 {
		config.RatePerSecond = DefaultRatePerSecond
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.RunLease <= 0 {
		config.RunLease = DefaultRunLease
	}
	if config.LeaseRenewInterval <= 0 || config.LeaseRenewInterval >= config.RunLease {
		config.LeaseRenewInterval = config.RunLease / 3
	}

	s := &Service{
		source:  source,
		logs:    logs,
		gateway: gateway,
		config:  config,
		now:     time.Now,
		meter:   otel.GetMeterProvider(),
	}

	for _, opt := range opts {
		opt(s)
	}

	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}
	s.limiter = rate.NewLimiter(limit, config.Concurrency)

	m, err := newMetrics(s.meter.Meter(meterName))
	if err != nil {
		slog.Warn("failed to create reminder metrics", "error", err)
	}
	s.metrics = m

	return s
}

// Today returns the current calendar day in the configured location.
func (s *Service) Today() time.Time {
	return s.now().In(s.config.Location)
}

// RunDaily evaluates every open record and sends today's reminders.
//
// Returns domain.ErrRunInProgress when another run holds the lease, and the
// store error when candidates cannot be read. Failures of individual sends
// are reported in the result, never as an error.
func (s *Service) RunDaily(ctx context.Context) (domain.BatchResult, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("failed to generate run id: %w", err)
	}

	if s.locker != nil {
		release, acquired, err := s.locker.TryAcquireRunLease(ctx, DailyRunType, runID.String(), s.config.RunLease)
		if err != nil {
			return domain.BatchResult{}, fmt.Errorf("failed to acquire run lease: %w", err)
		}
		if !acquired {
			slog.WarnContext(ctx, "reminder run skipped, another run holds the lease")
			return domain.BatchResult{}, domain.ErrRunInProgress
		}

		renewCtx, stopRenew := context.WithCancel(ctx)
		var renewWG sync.WaitGroup
		renewWG.Go(func() {
			s.renewLease(renewCtx, runID.String())
		})
		defer func() {
			stopRenew()
			renewWG.Wait()
			release()
		}()
	}

	started := s.now()
	today := s.Today()
	from := calendarDate(today)
	until := from.AddDate(0, 0, reminder.HorizonDays)

	candidates, err := s.source.ListReminderCandidates(ctx, from, until)
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("failed to list reminder candidates: %w", err)
	}

	decisions := reminder.SelectEligibleCandidates(candidates, today)
	eligible := reminder.Eligible(decisions)

	slog.InfoContext(ctx, "reminder candidates evaluated",
		"run_id", runID.String(),
		"today", from.Format(time.DateOnly),
		"candidates", len(candidates),
		"eligible", len(eligible),
		"skipped_by_reason", reminder.CountSkipped(decisions))

	result, outcomes := s.dispatch(ctx, today, eligible, !s.config.DisableDedup)
	s.finish(ctx, runID.String(), TriggerDaily, today, started, len(candidates), result, outcomes)

	return result, nil
}

// renewLease extends the daily lease until ctx is cancelled, so a batch that
// outlives RunLease is not taken over by a second run.
func (s *Service) renewLease(ctx context.Context, holderID string) {
	ticker := time.NewTicker(s.config.LeaseRenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.locker.ExtendRunLease(ctx, DailyRunType, holderID, s.config.RunLease)
			if errors.Is(err, domain.ErrRunLeaseLost) {
				slog.WarnContext(ctx, "run lease lost to another holder",
					"run_id", holderID)
				return
			}
			if err != nil && ctx.Err() == nil {
				slog.WarnContext(ctx, "failed to extend run lease", "run_id", holderID, "error", err)
			}
		}
	}
}

// RunTest sends one reminder for a synthetic task due in seven days.
// The store is not read and the dedup check is bypassed, so the test can be
// repeated on the same day.
func (s *Service) RunTest(ctx context.Context, req TestRequest) (domain.BatchResult, error) {
	email := strings.TrimSpace(req.Email)
	if !domain.ValidRecipient(email) {
		return domain.BatchResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidRecipient, req.Email)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = testRecipientName
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("failed to generate run id: %w", err)
	}

	started := s.now()
	today := s.Today()

	candidate := domain.ReminderCandidate{
		ItemID:         TestItemID,
		ItemName:       TestItemName,
		RecipientEmail: email,
		RecipientName:  name,
		DueDate:        calendarDate(today).AddDate(0, 0, TestDaysUntilDue),
		FrequencyLabel: TestFrequency,
		ItemType:       domain.ItemTypeTask,
	}

	eligible := reminder.Eligible(reminder.SelectEligibleCandidates([]domain.ReminderCandidate{candidate}, today))

	result, outcomes := s.dispatch(ctx, today, eligible, false)
	s.finish(ctx, runID.String(), TriggerTest, today, started, 1, result, outcomes)

	return result, nil
}

// Dispatch sends the given eligible decisions for today.
// Ineligible decisions are ignored.
func (s *Service) Dispatch(ctx context.Context, decisions []domain.ReminderDecision) domain.BatchResult {
	result, _ := s.dispatch(ctx, s.Today(), reminder.Eligible(decisions), !s.config.DisableDedup)
	return result
}

func (s *Service) finish(ctx context.Context, runID, trigger string, today, started time.Time, candidates int, result domain.BatchResult, outcomes []domain.DispatchOutcome) {
	finished := s.now()

	slog.InfoContext(ctx, "reminder run finished",
		"run_id", runID,
		"trigger", trigger,
		"total", result.Total,
		"sent", result.Sent,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", finished.Sub(started))

	s.metrics.record(ctx, trigger, result, finished.Sub(started))

	if s.reporter == nil {
		return
	}

	report := domain.RunReport{
		RunID:      runID,
		Trigger:    trigger,
		Today:      today.Format(time.DateOnly),
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Candidates: candidates,
		Result:     result,
		Outcomes:   outcomes,
	}
	if err := s.reporter.SaveRunReport(ctx, report); err != nil {
		slog.WarnContext(ctx, "failed to save run report", "run_id", runID, "error", err)
	}
}

// calendarDate returns t's calendar day as midnight UTC, the form stores
// compare DATE columns against.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
