// Package scheduler triggers the daily reminder run in-process for
// deployments that have no external cron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rezkam/hsewatch/internal/domain"
)

// DefaultSchedule runs once a day at 07:00 in the scheduler location.
const DefaultSchedule = "0 7 * * *"

// Runner executes one reminder batch.
type Runner interface {
	RunDaily(ctx context.Context) (domain.BatchResult, error)
}

// Scheduler invokes Runner.RunDaily on a cron schedule.
type Scheduler struct {
	runner           Runner
	expr             string
	location         *time.Location
	runOnStart       bool
	operationTimeout time.Duration
	parser           cron.Parser
	schedule         cron.Schedule
	wg               sync.WaitGroup
}

// Option is a functional option for configuring Scheduler.
type Option func(*Scheduler)

// WithSchedule sets the cron expression. Five fields, an optional leading
// seconds field, or a descriptor such as "@daily".
func WithSchedule(expr string) Option {
	return func(s *Scheduler) {
		if expr != "" {
			s.expr = expr
		}
	}
}

// WithLocation sets the time zone the schedule is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithRunOnStart runs a batch immediately when Start is called.
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) {
		s.runOnStart = enabled
	}
}

// WithOperationTimeout bounds a single run.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.operationTimeout = d
		}
	}
}

// New creates a Scheduler. Returns an error if the schedule does not parse.
func New(runner Runner, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		runner:           runner,
		expr:             DefaultSchedule,
		location:         time.UTC,
		operationTimeout: 10 * time.Minute,
		parser:           cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}

	for _, opt := range opts {
		opt(s)
	}

	schedule, err := s.parser.Parse(s.expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", s.expr, err)
	}
	s.schedule = schedule

	return s, nil
}

// Next returns the first run time after t, in the scheduler location.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Start runs the scheduler until ctx is cancelled.
// On shutdown it stops triggering new runs and waits for in-flight ones.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	// In-flight runs finish on shutdown; only their own timeout stops them.
	runCtx := context.WithoutCancel(ctx)

	if _, err := c.AddFunc(s.expr, func() {
		s.wg.Add(1)
		defer s.wg.Done()
		_ = s.RunOnce(runCtx)
	}); err != nil {
		return fmt.Errorf("failed to register schedule: %w", err)
	}

	if s.runOnStart {
		s.wg.Go(func() {
			_ = s.RunOnce(runCtx)
		})
	}

	c.Start()
	slog.InfoContext(ctx, "Reminder scheduler started",
		"schedule", s.expr,
		"location", s.location.String(),
		"next_run", s.Next(time.Now()))

	<-ctx.Done()

	slog.InfoContext(ctx, "Shutdown requested, waiting for in-flight reminder runs...")
	<-c.Stop().Done()
	s.wg.Wait()
	slog.InfoContext(ctx, "Reminder scheduler stopped gracefully")

	return nil
}

// RunOnce executes a single reminder batch bounded by the operation timeout.
// A run skipped because another instance holds the lease is not an error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	result, err := s.runner.RunDaily(opCtx)
	if errors.Is(err, domain.ErrRunInProgress) {
		slog.InfoContext(opCtx, "Reminder run skipped, another instance is running")
		return nil
	}
	if err != nil {
		slog.ErrorContext(opCtx, "Reminder run failed", "error", err)
		return err
	}

	slog.InfoContext(opCtx, "Scheduled reminder run completed",
		"total", result.Total,
		"sent", result.Sent,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return nil
}
