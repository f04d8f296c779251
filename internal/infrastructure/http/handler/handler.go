// Package handler adapts HTTP trigger requests to the reminder service.
package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/hsewatch/internal/application/notification"
	"github.com/rezkam/hsewatch/internal/domain"
)

// ReminderService runs reminder batches.
type ReminderService interface {
	RunDaily(ctx context.Context) (domain.BatchResult, error)
	RunTest(ctx context.Context, req notification.TestRequest) (domain.BatchResult, error)
}

// ReportReader reads archived run reports.
type ReportReader interface {
	GetRunReport(ctx context.Context, day, runID string) (domain.RunReport, error)
	ListRunReports(ctx context.Context, day string) ([]domain.RunReport, error)
}

// DefaultRunTimeout bounds a batch started by an HTTP trigger.
const DefaultRunTimeout = 30 * time.Minute

// ReminderHandler serves the cron trigger and report endpoints.
type ReminderHandler struct {
	service    ReminderService
	reports    ReportReader
	runTimeout time.Duration
}

// Option is a functional option for configuring ReminderHandler.
type Option func(*ReminderHandler)

// WithRunTimeout bounds how long a triggered batch may run. The response
// write deadline is moved past it so the caller always gets the summary.
func WithRunTimeout(d time.Duration) Option {
	return func(h *ReminderHandler) {
		if d > 0 {
			h.runTimeout = d
		}
	}
}

// NewReminderHandler creates the handler. reports may be nil, in which case
// the report endpoints are not mounted.
func NewReminderHandler(service ReminderService, reports ReportReader, opts ...Option) *ReminderHandler {
	h := &ReminderHandler{service: service, reports: reports, runTimeout: DefaultRunTimeout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers the handler's routes on r (mounted under /api).
func (h *ReminderHandler) Routes(r chi.Router) {
	r.Get("/cron/reminders", h.RunReminders)
	r.Post("/cron/reminders", h.RunReminders)
	r.Post("/cron/reminders/test", h.TestReminder)

	if h.reports != nil {
		r.Get("/reports/{day}", h.ListReports)
		r.Get("/reports/{day}/{runID}", h.GetReport)
	}
}
