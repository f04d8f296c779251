package domain

import "time"

// ProgramType distinguishes the two program families.
type ProgramType string

const (
	ProgramTypeOTP    ProgramType = "otp"
	ProgramTypeMatrix ProgramType = "matrix"
)

// ItemType returns the reminder item type of the program's progress entries.
func (p ProgramType) ItemType() ItemType {
	if p == ProgramTypeMatrix {
		return ItemTypeMatrixProgram
	}
	return ItemTypeOTPProgram
}

// Task status values. Completed tasks never produce reminders.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Program is an OTP or matrix program that owns progress entries and tasks.
type Program struct {
	ID       string
	Name     string
	Type     ProgramType
	Location LocationTags
}

// Task is a standalone or program-linked compliance task.
type Task struct {
	ID            string
	ProgramID     *string
	Title         string
	DueDate       *time.Time
	Frequency     string
	AssigneeEmail string
	AssigneeName  string
	Status        string
	Location      LocationTags
}

// ProgramProgress is one scheduled activity of a program.
type ProgramProgress struct {
	ID           string
	ProgramID    string
	ActivityName string
	DueDate      *time.Time
	Frequency    string
	PICEmail     string
	PICName      string
	Status       string
}
