package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rezkam/hsewatch/internal/domain"
)

const meterName = "github.com/rezkam/hsewatch/internal/application/notification"

type metrics struct {
	sent     metric.Int64Counter
	failed   metric.Int64Counter
	skipped  metric.Int64Counter
	duration metric.Float64Histogram
}

// newMetrics creates the dispatch instruments.
// The API returns usable no-op instruments alongside any error.
func newMetrics(meter metric.Meter) (*metrics, error) {
	var errs []error
	m := &metrics{}
	var err error

	m.sent, err = meter.Int64Counter("hse.reminders.sent",
		metric.WithDescription("Reminder emails accepted by the gateway"),
		metric.WithUnit("{email}"))
	if err != nil {
		errs = append(errs, fmt.Errorf("sent counter: %w", err))
	}

	m.failed, err = meter.Int64Counter("hse.reminders.failed",
		metric.WithDescription("Reminder send attempts that failed"),
		metric.WithUnit("{email}"))
	if err != nil {
		errs = append(errs, fmt.Errorf("failed counter: %w", err))
	}

	m.skipped, err = meter.Int64Counter("hse.reminders.skipped",
		metric.WithDescription("Eligible reminders suppressed because they were already sent today"),
		metric.WithUnit("{email}"))
	if err != nil {
		errs = append(errs, fmt.Errorf("skipped counter: %w", err))
	}

	m.duration, err = meter.Float64Histogram("hse.reminders.batch.duration",
		metric.WithDescription("Duration of a reminder dispatch batch"),
		metric.WithUnit("s"))
	if err != nil {
		errs = append(errs, fmt.Errorf("batch duration histogram: %w", err))
	}

	return m, errors.Join(errs...)
}

func (m *metrics) record(ctx context.Context, trigger string, result domain.BatchResult, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("trigger", trigger))

	m.sent.Add(ctx, int64(result.Sent), attrs)
	m.failed.Add(ctx, int64(result.Failed), attrs)
	m.skipped.Add(ctx, int64(result.Skipped), attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
