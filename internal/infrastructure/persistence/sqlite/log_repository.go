package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rezkam/hsewatch/internal/domain"
)

const insertNotificationLogQuery = `
INSERT INTO notification_logs (
    id, item_type, item_id, item_name, recipient_email, recipient_name, days_until_due,
    status, error_message, message_id, notify_date, reserved, created_at, updated_at
) VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12, ?13, ?13)`

// ReserveNotification inserts a "sending" record that takes part in dedup.
func (s *Store) ReserveNotification(ctx context.Context, log *domain.NotificationLog) error {
	err := s.insertNotificationLog(ctx, log, domain.NotificationSending, true)
	if err != nil {
		if isUniqueViolation(err) {
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

	res, err := s.db.ExecContext(ctx,
		`UPDATE notification_logs
		 SET status = ?, message_id = ?, error_message = ?, updated_at = ?
		 WHERE id = ?`,
		string(status), messageID, errMsg, formatTimestamp(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to complete notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete notification: %w", err)
	}
	if n == 0 {
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
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_type, item_id, item_name, recipient_email, recipient_name, days_until_due,
		        status, error_message, message_id, notify_date, created_at
		 FROM notification_logs
		 WHERE notify_date = ?
		 ORDER BY created_at, id`,
		formatDate(day))
	if err != nil {
		return nil, fmt.Errorf("failed to query notification logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.NotificationLog
	for rows.Next() {
		var (
			l                       domain.NotificationLog
			itemType, status        string
			notifyDate, createdAt   string
			errorMessage, messageID sql.NullString
		)
		if err := rows.Scan(&l.ID, &itemType, &l.ItemID, &l.ItemName, &l.RecipientEmail, &l.RecipientName,
			&l.DaysUntilDue, &status, &errorMessage, &messageID, &notifyDate, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification log: %w", err)
		}
		if l.ItemType, err = domain.NewItemType(itemType); err != nil {
			return nil, err
		}
		if l.Status, err = domain.NewNotificationStatus(status); err != nil {
			return nil, err
		}
		if l.NotifyDate, err = parseDate(notifyDate); err != nil {
			return nil, fmt.Errorf("invalid notify date %q: %w", notifyDate, err)
		}
		if l.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
		}
		l.ErrorMessage = ptrString(errorMessage)
		l.MessageID = ptrString(messageID)
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
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, insertNotificationLogQuery,
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
		formatDate(log.NotifyDate),
		reserved,
		formatTimestamp(createdAt),
	)
	return err
}
