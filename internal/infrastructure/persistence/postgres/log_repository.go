package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rezkam/hsewatch/internal/domain"
)

const uniqueViolation = "23505"

const insertNotificationLogQuery = `
INSERT INTO notification_logs (
    id, item_type, item_id, item_name, recipient_email, recipient_name, days_until_due,
    status, error_message, message_id, notify_date, reserved, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

// ReserveNotification inserts a "sending" record that takes part in dedup.
// The partial unique index rejects a second live reservation for the same key.
func (s *Store) ReserveNotification(ctx context.Context, log *domain.NotificationLog) error {
	err := s.insertNotificationLog(ctx, log, domain.NotificationSending, true)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %w", domain.ErrDuplicateNotification, err)
		}
		return fmt.Errorf("failed to reserve notification: %w", err)
	}
	log.Status = domain.NotificationSending
	return nil
}

// CompleteNotification records the final status of a reserved attempt.
func (s *Store) CompleteNotification(ctx context.Context, id string, status domain.NotificationStatus, messageID, errMsg *string) error {
	if !status.IsFinal() {
		return fmt.Errorf("%w: %s is not a final status", domain.ErrInvalidNotificationStatus, status)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE notification_logs
		 SET status = $2, message_id = $3, error_message = $4, updated_at = $5
		 WHERE id = $1`,
		id, string(status), messageID, errMsg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to complete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification log %s", domain.ErrNotFound, id)
	}
	return nil
}

// AppendNotificationLog inserts a finished record outside the dedup index.
func (s *Store) AppendNotificationLog(ctx context.Context, log *domain.NotificationLog) error {
	if _, err := domain.NewNotificationStatus(string(log.Status)); err != nil {
		return err
	}
	if err := s.insertNotificationLog(ctx, log, log.Status, false); err != nil {
		return fmt.Errorf("failed to append notification log: %w", err)
	}
	return nil
}

// ListNotificationLogs returns the records of one notify date, oldest first.
func (s *Store) ListNotificationLogs(ctx context.Context, day time.Time) ([]*domain.NotificationLog, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id::text, item_type, item_id, item_name, recipient_email, recipient_name, days_until_due,
		        status, error_message, message_id, notify_date, created_at
		 FROM notification_logs
		 WHERE notify_date = $1
		 ORDER BY created_at, id`,
		dateOnly(day))
	if err != nil {
		return nil, fmt.Errorf("failed to query notification logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.NotificationLog
	for rows.Next() {
		var (
			l        domain.NotificationLog
			itemType string
			status   string
		)
		if err := rows.Scan(&l.ID, &itemType, &l.ItemID, &l.ItemName, &l.RecipientEmail, &l.RecipientName,
			&l.DaysUntilDue, &status, &l.ErrorMessage, &l.MessageID, &l.NotifyDate, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification log: %w", err)
		}
		if l.ItemType, err = domain.NewItemType(itemType); err != nil {
			return nil, err
		}
		if l.Status, err = domain.NewNotificationStatus(status); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification logs: %w", err)
	}

	return logs, nil
}

func (s *Store) insertNotificationLog(ctx context.Context, log *domain.NotificationLog, status domain.NotificationStatus, reserved bool) error {
	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, insertNotificationLogQuery,
		log.ID,
		string(log.ItemType),
		log.ItemID,
		log.ItemName,
		log.RecipientEmail,
		log.RecipientName,
		log.DaysUntilDue,
		string(status),
		log.ErrorMessage,
		log.MessageID,
		dateOnly(log.NotifyDate),
		reserved,
		createdAt,
	)
	return err
}
