package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rezkam/hsewatch/internal/domain"
)

const listReminderCandidatesQuery = `
SELECT t.id,
       t.title,
       COALESCE(TRIM(t.assignee_email), ''),
       COALESCE(t.assignee_name, ''),
       t.due_date,
       t.frequency,
       'task',
       p.name,
       COALESCE(t.base, p.base),
       COALESCE(t.region, p.region)
FROM tasks t
LEFT JOIN programs p ON p.id = t.program_id
WHERE t.due_date BETWEEN ?1 AND ?2
  AND t.status <> 'completed'
UNION ALL
SELECT pp.id,
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
WHERE pp.due_date BETWEEN ?1 AND ?2
  AND pp.status <> 'completed'
ORDER BY 5, 2`

// ListReminderCandidates returns open tasks and program-progress entries due
// within [from, until].
func (s *Store) ListReminderCandidates(ctx context.Context, from, until time.Time) ([]domain.ReminderCandidate, error) {
	rows, err := s.db.QueryContext(ctx, listReminderCandidatesQuery, formatDate(from), formatDate(until))
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.ReminderCandidate
	for rows.Next() {
		var (
			c                        domain.ReminderCandidate
			dueDate, itemType        string
			parentName, base, region sql.NullString
		)
		if err := rows.Scan(&c.ItemID, &c.ItemName, &c.RecipientEmail, &c.RecipientName,
			&dueDate, &c.FrequencyLabel, &itemType, &parentName, &base, &region); err != nil {
			return nil, fmt.Errorf("failed to scan reminder candidate: %w", err)
		}

		if c.DueDate, err = parseDate(dueDate); err != nil {
			return nil, fmt.Errorf("invalid due date %q for %s: %w", dueDate, c.ItemID, err)
		}
		if c.ItemType, err = domain.NewItemType(itemType); err != nil {
			return nil, err
		}
		c.ParentProgramName = ptrString(parentName)
		if base.String != "" || region.String != "" {
			c.Location = &domain.LocationTags{Base: base.String, Region: region.String}
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminder candidates: %w", err)
	}

	return candidates, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateProgram inserts a program.
func (s *Store) CreateProgram(ctx context.Context, p domain.Program) error {
	return createProgram(ctx, s.db, p)
}

// CreateTask inserts a task.
// Returns domain.ErrNotFound if the referenced program does not exist.
func (s *Store) CreateTask(ctx context.Context, t domain.Task) error {
	return createTask(ctx, s.db, t)
}

// CreateProgramProgress inserts a program-progress entry.
// Returns domain.ErrNotFound if the program does not exist.
func (s *Store) CreateProgramProgress(ctx context.Context, pp domain.ProgramProgress) error {
	return createProgramProgress(ctx, s.db, pp)
}

// SeedProgram inserts a program with its progress entries and tasks atomically.
func (s *Store) SeedProgram(ctx context.Context, p domain.Program, progress []domain.ProgramProgress, tasks []domain.Task) error {
	return s.executeInTransaction(ctx, "SeedProgram", func(tx *sql.Tx) error {
		if err := createProgram(ctx, tx, p); err != nil {
			return err
		}
		for _, pp := range progress {
			if err := createProgramProgress(ctx, tx, pp); err != nil {
				return err
			}
		}
		for _, t := range tasks {
			if err := createTask(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func createProgram(ctx context.Context, db execer, p domain.Program) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO programs (id, name, program_type, base, region) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Type), nullString(p.Location.Base), nullString(p.Location.Region))
	if err != nil {
		return fmt.Errorf("failed to insert program: %w", err)
	}
	return nil
}

func createTask(ctx context.Context, db execer, t domain.Task) error {
	var programID sql.NullString
	if t.ProgramID != nil {
		programID = sql.NullString{String: *t.ProgramID, Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO tasks (id, program_id, title, due_date, frequency, assignee_email, assignee_name, status, base, region)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, programID, t.Title, nullDate(t.DueDate), t.Frequency,
		nullString(t.AssigneeEmail), nullString(t.AssigneeName), statusOrPending(t.Status),
		nullString(t.Location.Base), nullString(t.Location.Region))
	if err != nil {
		return wrapInsertError("task", err)
	}
	return nil
}

func createProgramProgress(ctx context.Context, db execer, pp domain.ProgramProgress) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO program_progress (id, program_id, activity_name, due_date, frequency, pic_email, pic_name, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pp.ID, pp.ProgramID, pp.ActivityName, nullDate(pp.DueDate), pp.Frequency,
		nullString(pp.PICEmail), nullString(pp.PICName), statusOrPending(pp.Status))
	if err != nil {
		return wrapInsertError("program progress", err)
	}
	return nil
}

func wrapInsertError(what string, err error) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: program referenced by %s: %w", domain.ErrNotFound, what, err)
	}
	return fmt.Errorf("failed to insert %s: %w", what, err)
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func statusOrPending(status string) string {
	if status == "" {
		return domain.StatusPending
	}
	return status
}
