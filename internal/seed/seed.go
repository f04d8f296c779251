// Package seed loads programs and tasks from a JSON file into a store.
// It backs local development and demos, where no upstream system feeds
// the reminder tables.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/hsewatch/internal/domain"
)

// Writer is the store surface the loader needs.
type Writer interface {
	CreateTask(ctx context.Context, t domain.Task) error
	SeedProgram(ctx context.Context, p domain.Program, progress []domain.ProgramProgress, tasks []domain.Task) error
}

// File is the JSON document accepted by Parse.
type File struct {
	Programs []ProgramEntry `json:"programs"`
	Tasks    []TaskEntry    `json:"tasks"`
}

// ProgramEntry is one program with its progress entries and linked tasks.
type ProgramEntry struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"` // otp or matrix
	Base     string          `json:"base"`
	Region   string          `json:"region"`
	Progress []ProgressEntry `json:"progress"`
	Tasks    []TaskEntry     `json:"tasks"`
}

// ProgressEntry is one scheduled program activity.
type ProgressEntry struct {
	ID        string `json:"id"`
	Activity  string `json:"activity"`
	DueDate   string `json:"due_date"` // YYYY-MM-DD
	Frequency string `json:"frequency"`
	PICEmail  string `json:"pic_email"`
	PICName   string `json:"pic_name"`
	Status    string `json:"status"`
}

// TaskEntry is one task.
type TaskEntry struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	DueDate       string `json:"due_date"` // YYYY-MM-DD
	Frequency     string `json:"frequency"`
	AssigneeEmail string `json:"assignee_email"`
	AssigneeName  string `json:"assignee_name"`
	Status        string `json:"status"`
	Base          string `json:"base"`
	Region        string `json:"region"`
}

// Summary counts what Apply wrote.
type Summary struct {
	Programs int
	Progress int
	Tasks    int
}

// Parse decodes and validates a seed file. Unknown fields are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	var errs []error
	for i, p := range f.Programs {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("programs[%d]: name is required", i))
		}
		if _, err := programType(p.Type); err != nil {
			errs = append(errs, fmt.Errorf("programs[%d]: %w", i, err))
		}
		for j, pp := range p.Progress {
			if strings.TrimSpace(pp.Activity) == "" {
				errs = append(errs, fmt.Errorf("programs[%d].progress[%d]: activity is required", i, j))
			}
			if _, err := parseDate(pp.DueDate); err != nil {
				errs = append(errs, fmt.Errorf("programs[%d].progress[%d]: %w", i, j, err))
			}
		}
		for j, t := range p.Tasks {
			if err := t.validate(); err != nil {
				errs = append(errs, fmt.Errorf("programs[%d].tasks[%d]: %w", i, j, err))
			}
		}
	}
	for i, t := range f.Tasks {
		if err := t.validate(); err != nil {
			errs = append(errs, fmt.Errorf("tasks[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (t TaskEntry) validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("title is required")
	}
	_, err := parseDate(t.DueDate)
	return err
}

// Apply writes the file. Each program is seeded atomically with its
// progress entries and tasks; standalone tasks follow.
func Apply(ctx context.Context, w Writer, f *File) (Summary, error) {
	var sum Summary

	for _, p := range f.Programs {
		typ, err := programType(p.Type)
		if err != nil {
			return sum, err
		}
		program := domain.Program{
			ID:       idOrNew(p.ID),
			Name:     p.Name,
			Type:     typ,
			Location: domain.LocationTags{Base: p.Base, Region: p.Region},
		}

		progress := make([]domain.ProgramProgress, 0, len(p.Progress))
		for _, pp := range p.Progress {
			due, _ := parseDate(pp.DueDate)
			progress = append(progress, domain.ProgramProgress{
				ID:           idOrNew(pp.ID),
				ProgramID:    program.ID,
				ActivityName: pp.Activity,
				DueDate:      due,
				Frequency:    pp.Frequency,
				PICEmail:     pp.PICEmail,
				PICName:      pp.PICName,
				Status:       pp.Status,
			})
		}

		tasks := make([]domain.Task, 0, len(p.Tasks))
		for _, t := range p.Tasks {
			task := t.toDomain()
			task.ProgramID = &program.ID
			tasks = append(tasks, task)
		}

		if err := w.SeedProgram(ctx, program, progress, tasks); err != nil {
			return sum, fmt.Errorf("failed to seed program %q: %w", p.Name, err)
		}
		sum.Programs++
		sum.Progress += len(progress)
		sum.Tasks += len(tasks)
	}

	for _, t := range f.Tasks {
		if err := w.CreateTask(ctx, t.toDomain()); err != nil {
			return sum, fmt.Errorf("failed to create task %q: %w", t.Title, err)
		}
		sum.Tasks++
	}

	return sum, nil
}

func (t TaskEntry) toDomain() domain.Task {
	due, _ := parseDate(t.DueDate)
	return domain.Task{
		ID:            idOrNew(t.ID),
		Title:         t.Title,
		DueDate:       due,
		Frequency:     t.Frequency,
		AssigneeEmail: t.AssigneeEmail,
		AssigneeName:  t.AssigneeName,
		Status:        t.Status,
		Location:      domain.LocationTags{Base: t.Base, Region: t.Region},
	}
}

func programType(s string) (domain.ProgramType, error) {
	switch domain.ProgramType(strings.ToLower(strings.TrimSpace(s))) {
	case domain.ProgramTypeOTP:
		return domain.ProgramTypeOTP, nil
	case domain.ProgramTypeMatrix:
		return domain.ProgramTypeMatrix, nil
	default:
		return "", fmt.Errorf("unknown program type %q (want otp or matrix)", s)
	}
}

// parseDate returns nil for an empty date.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("invalid due_date %q: want YYYY-MM-DD", s)
	}
	return &d, nil
}

func idOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.Must(uuid.NewV7()).String()
}
