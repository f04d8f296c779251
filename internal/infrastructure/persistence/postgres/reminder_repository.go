package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rezkam/hsewatch/internal/domain"
)

// listReminderCandidatesQuery merges open tasks and open program-progress
// entries due within the window. Tasks inherit base/region from their program
// when they have none of their own.
const listReminderCandidatesQuery = `
SELECT t.id::text,
       t.title,
       COALESCE(TRIM(t.assignee_email), ''),
       COALESCE(t.assignee_name, ''),
       t.due_date,
       t.frequency,
       'task' AS item_type,
       p.name,
       COALESCE(t.base, p.base),
       COALESCE(t.region, p.region)
FROM tasks t
LEFT JOIN programs p ON p.id = t.program_id
WHERE t.due_date BETWEEN $1 AND $2
  AND t.status <> 'completed'
UNION ALL
SELECT pp.id::text,
       pp.activity_name,
       COALESCE(TRIM(pp.pic_email), ''),
       COALESCE(pp.pic_name, ''),
       pp.due_date,
       pp.frequency,
       CASE p.program_type WHEN 'matrix' THEN 'matrix-program' ELSE 'otp-program' END,
       p.name,
       p.base,
       p.region
FROM program_progress pp
JOIN programs p ON p.id = pp.program_id
WHERE pp.due_date BETWEEN $1 AND $2
  AND pp.status <> 'completed'
ORDER BY 5, 2`

// ListReminderCandidates returns open tasks and program-progress entries due
// within [from, until].
func (s *Store) ListReminderCandidates(ctx context.Context, from, until time.Time) ([]domain.ReminderCandidate, error) {
	rows, err := s.db.Query(ctx, listReminderCandidatesQuery, dateOnly(from), dateOnly(until))
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.ReminderCandidate
	for rows.Next() {
		var (
			c            domain.ReminderCandidate
			itemType     string
			parentName   *string
			base, region *string
		)
		if err := rows.Scan(&c.ItemID, &c.ItemName, &c.RecipientEmail, &c.RecipientName,
			&c.DueDate, &c.FrequencyLabel, &itemType, &parentName, &base, &region); err != nil {
			return nil, fmt.Errorf("failed to scan reminder candidate: %w", err)
		}

		c.ItemType, err = domain.NewItemType(itemType)
		if err != nil {
			return nil, err
		}
		c.ParentProgramName = parentName
		c.Location = locationTags(base, region)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminder candidates: %w", err)
	}

	return candidates, nil
}

// CreateProgram inserts a program.
func (s *Store) CreateProgram(ctx context.Context, p domain.Program) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO programs (id, name, program_type, base, region) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, string(p.Type), nullString(p.Location.Base), nullString(p.Location.Region))
	if err != nil {
		return fmt.Errorf("failed to insert program: %w", err)
	}
	return nil
}

// CreateTask inserts a task.
// Returns domain.ErrNotFound if the referenced program does not exist.
func (s *Store) CreateTask(ctx context.Context, t domain.Task) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO tasks (id, program_id, title, due_date, frequency, assignee_email, assignee_name, status, base, region)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.ProgramID, t.Title, nullDate(t.DueDate), t.Frequency,
		nullString(t.AssigneeEmail), nullString(t.AssigneeName), statusOrPending(t.Status),
		nullString(t.Location.Base), nullString(t.Location.Region))
	if err != nil {
		return wrapInsertError("task", err)
	}
	return nil
}

// CreateProgramProgress inserts a program-progress entry.
// Returns domain.ErrNotFound if the program does not exist.
func (s *Store) CreateProgramProgress(ctx context.Context, pp domain.ProgramProgress) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO program_progress (id, program_id, activity_name, due_date, frequency, pic_email, pic_name, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pp.ID, pp.ProgramID, pp.ActivityName, nullDate(pp.DueDate), pp.Frequency,
		nullString(pp.PICEmail), nullString(pp.PICName), statusOrPending(pp.Status))
	if err != nil {
		return wrapInsertError("program progress", err)
	}
	return nil
}

// SeedProgram inserts a program with its progress entries and tasks atomically.
func (s *Store) SeedProgram(ctx context.Context, p domain.Program, progress []domain.ProgramProgress, tasks []domain.Task) error {
	return s.executeInTransaction(ctx, "SeedProgram", func(tx *Store) error {
		if err := tx.CreateProgram(ctx, p); err != nil {
			return err
		}
		for _, pp := range progress {
			if err := tx.CreateProgramProgress(ctx, pp); err != nil {
				return err
			}
		}
		for _, t := range tasks {
			if err := tx.CreateTask(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func wrapInsertError(what string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
		return fmt.Errorf("%w: program referenced by %s: %w", domain.ErrNotFound, what, err)
	}
	return fmt.Errorf("failed to insert %s: %w", what, err)
}

func locationTags(base, region *string) *domain.LocationTags {
	tags := domain.LocationTags{}
	if base != nil {
		tags.Base = *base
	}
	if region != nil {
		tags.Region = *region
	}
	if tags.IsZero() {
		return nil
	}
	return &tags
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := dateOnly(*t)
	return &d
}

// dateOnly keeps the calendar date of t as midnight UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func statusOrPending(status string) string {
	if status == "" {
		return domain.StatusPending
	}
	return status
}

