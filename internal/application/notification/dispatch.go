package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rezkam/hsewatch/internal/domain"
)

// dispatch sends every eligible decision with bounded concurrency.
// A failure for one decision is recorded in its outcome and never stops the others.
func (s *Service) dispatch(ctx context.Context, today time.Time, eligible []domain.ReminderDecision, dedup bool) (domain.BatchResult, []domain.DispatchOutcome) {
	outcomes := make([]domain.DispatchOutcome, len(eligible))

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)

	for i, decision := range eligible {
		g.Go(func() error {
			outcomes[i] = s.dispatchOne(ctx, today, decision, dedup)
			return nil
		})
	}
	_ = g.Wait()

	result := domain.BatchResult{Total: len(eligible)}
	for _, o := range outcomes {
		switch {
		case o.Skipped:
			result.Skipped++
		case o.Status == domain.NotificationSent:
			result.Sent++
		default:
			result.Failed++
		}
	}

	return result, outcomes
}

func (s *Service) dispatchOne(ctx context.Context, today time.Time, decision domain.ReminderDecision, dedup bool) domain.DispatchOutcome {
	c := decision.Candidate
	outcome := domain.DispatchOutcome{
		ItemType:       c.ItemType,
		ItemName:       c.ItemName,
		RecipientEmail: c.RecipientEmail,
		DaysUntilDue:   decision.DaysUntilDue,
	}

	// Log writes must land even when the batch context is cancelled,
	// otherwise a reservation would stay in "sending".
	logCtx := context.WithoutCancel(ctx)

	id, err := uuid.NewV7()
	if err != nil {
		return failed(ctx, outcome, fmt.Errorf("failed to generate log id: %w", err))
	}

	entry := &domain.NotificationLog{
		ID:             id.String(),
		ItemType:       c.ItemType,
		ItemID:         c.ItemID,
		ItemName:       c.ItemName,
		RecipientEmail: c.RecipientEmail,
		RecipientName:  c.RecipientName,
		DaysUntilDue:   decision.DaysUntilDue,
		NotifyDate:     calendarDate(today),
		CreatedAt:      s.now().UTC(),
	}

	if dedup {
		entry.Status = domain.NotificationSending
		err := s.logs.ReserveNotification(logCtx, entry)
		if errors.Is(err, domain.ErrDuplicateNotification) {
			slog.InfoContext(ctx, "reminder already sent today, skipping",
				"item_type", c.ItemType,
				"item_id", c.ItemID,
				"item_name", c.ItemName,
				"recipient", c.RecipientEmail)
			outcome.Skipped = true
			return outcome
		}
		if err != nil {
			return failed(ctx, outcome, fmt.Errorf("failed to reserve notification: %w", err))
		}
	}

	messageID, sendErr := s.send(ctx, decision)

	status := domain.NotificationSent
	var errMsg, msgID *string
	if sendErr != nil {
		status = domain.NotificationFailed
		m := sendErr.Error()
		errMsg = &m
	} else if messageID != "" {
		msgID = &messageID
	}

	var logErr error
	if dedup {
		logErr = s.logs.CompleteNotification(logCtx, entry.ID, status, msgID, errMsg)
	} else {
		entry.Status = status
		entry.MessageID = msgID
		entry.ErrorMessage = errMsg
		logErr = s.logs.AppendNotificationLog(logCtx, entry)
	}
	if logErr != nil {
		// The send outcome stands; only the record is missing.
		slog.ErrorContext(ctx, "failed to record notification",
			"log_id", entry.ID,
			"status", status,
			"error", logErr)
	}

	if sendErr != nil {
		return failed(ctx, outcome, sendErr)
	}

	slog.InfoContext(ctx, "reminder sent",
		"item_type", c.ItemType,
		"item_name", c.ItemName,
		"recipient", c.RecipientEmail,
		"days_until_due", decision.DaysUntilDue,
		"message_id", messageID)

	outcome.Status = domain.NotificationSent
	return outcome
}

// send renders the email and hands it to the gateway under the rate limit
// and the per-call timeout.
func (s *Service) send(ctx context.Context, decision domain.ReminderDecision) (string, error) {
	email, err := RenderEmail(decision, s.config.DashboardURL)
	if err != nil {
		return "", err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
	defer cancel()

	messageID, err := s.gateway.Send(sendCtx, email)
	if err != nil {
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("send timed out after %s: %w", s.config.SendTimeout, err)
		}
		return "", fmt.Errorf("send failed: %w", err)
	}

	return messageID, nil
}

func failed(ctx context.Context, outcome domain.DispatchOutcome, err error) domain.DispatchOutcome {
	slog.WarnContext(ctx, "reminder failed",
		"item_type", outcome.ItemType,
		"item_name", outcome.ItemName,
		"recipient", outcome.RecipientEmail,
		"error", err)

	outcome.Status = domain.NotificationFailed
	outcome.Error = err.Error()
	return outcome
}
