package domain

import (
	"strings"
	"time"
)

// LocationTags carries the site a record belongs to. Display only.
type LocationTags struct {
	Base   string
	Region string
}

// IsZero reports whether no location was recorded.
func (l LocationTags) IsZero() bool {
	return l.Base == "" && l.Region == ""
}

// ReminderCandidate is one due-date-bearing record that may need a reminder.
// Candidates are rebuilt from the latest rows on every run and never stored.
type ReminderCandidate struct {
	ItemID         string
	ItemName       string
	RecipientEmail string
	RecipientName  string

	// DueDate is a calendar date. Any time-of-day component is ignored.
	DueDate time.Time

	// FrequencyLabel is the free-text recurrence label from the source row,
	// e.g. "Monthly", "Semi-Annual". Normalized by the reminder engine.
	FrequencyLabel string

	ItemType ItemType

	// ParentProgramName is only set for tasks that belong to a program.
	ParentProgramName *string

	Location *LocationTags
}

// ReminderDecision is the outcome of evaluating one candidate on one day.
// Computed per run, never persisted.
type ReminderDecision struct {
	Candidate    ReminderCandidate
	DaysUntilDue int
	Bucket       FrequencyBucket
	Eligible     bool

	// TriggerOffset is the matched offset (30, 14, 7 or 3); 0 means none.
	TriggerOffset int

	SkipReason SkipReason
}

// NotificationLog is one append-only record of a send attempt.
type NotificationLog struct {
	ID             string
	ItemType       ItemType
	ItemID         string
	ItemName       string
	RecipientEmail string
	RecipientName  string
	DaysUntilDue   int
	Status         NotificationStatus
	ErrorMessage   *string
	MessageID      *string

	// NotifyDate is the calendar day the reminder was evaluated for.
	NotifyDate time.Time
	CreatedAt  time.Time
}

// DedupKey returns the identity used to suppress a second reminder
// for the same candidate on the same day.
func (l *NotificationLog) DedupKey() DedupKey {
	return NewDedupKey(l.ItemType, l.ItemID, l.RecipientEmail, l.NotifyDate)
}

// DedupKey identifies one candidate on one calendar day. Items are told
// apart by id, so two records sharing a name and recipient both get reminded.
type DedupKey struct {
	ItemType       ItemType
	ItemID         string
	RecipientEmail string
	NotifyDate     string // YYYY-MM-DD
}

// NewDedupKey builds a key with a normalized recipient and date.
func NewDedupKey(itemType ItemType, itemID, recipientEmail string, day time.Time) DedupKey {
	return DedupKey{
		ItemType:       itemType,
		ItemID:         itemID,
		RecipientEmail: strings.ToLower(strings.TrimSpace(recipientEmail)),
		NotifyDate:     day.Format(time.DateOnly),
	}
}

// Email is a rendered message handed to the email gateway.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// BatchResult summarizes one dispatch run.
type BatchResult struct {
	Total   int `json:"total"` // eligible decisions handed to dispatch
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"` // already notified today
	Failed  int `json:"failed"`
}

// Add merges another result into r.
func (r *BatchResult) Add(other BatchResult) {
	r.Total += other.Total
	r.Sent += other.Sent
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}
