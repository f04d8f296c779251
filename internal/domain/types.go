package domain

import "time"

// DispatchOutcome records what happened to one eligible decision.
type DispatchOutcome struct {
	ItemType       ItemType           `json:"item_type"`
	ItemName       string             `json:"item_name"`
	RecipientEmail string             `json:"recipient_email"`
	DaysUntilDue   int                `json:"days_until_due"`
	Status         NotificationStatus `json:"status,omitempty"`
	Skipped        bool               `json:"skipped,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// RunReport is the archived summary of one reminder run.
//
// Common uses:
//   - Cron monitoring: compare Result.Failed across days
//   - Audit: which recipients were notified for a given Today
type RunReport struct {
	RunID      string            `json:"run_id"`
	Trigger    string            `json:"trigger"` // "daily" or "test"
	Today      string            `json:"today"`   // YYYY-MM-DD in the reminder time zone
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Candidates int               `json:"candidates"`
	Result     BatchResult       `json:"result"`
	Outcomes   []DispatchOutcome `json:"outcomes"`
}
