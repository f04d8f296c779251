package domain

// ItemType identifies which kind of record a reminder is about.
// Value object - immutable string enum.
type ItemType string

const (
	ItemTypeTask          ItemType = "task"
	ItemTypeOTPProgram    ItemType = "otp-program"
	ItemTypeMatrixProgram ItemType = "matrix-program"
)

// Frequency is the recurrence category of a task or program.
// Value object - immutable string enum.
type Frequency string

const (
	FrequencyMonthly    Frequency = "monthly"
	FrequencyAnnual     Frequency = "annual"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemesterly Frequency = "semesterly"
	FrequencyOther      Frequency = "other"
)

// FrequencyBucket groups frequencies that share the same reminder offsets.
// Value object - immutable string enum.
type FrequencyBucket string

const (
	// BucketMonthly reminds 14, 7 and 3 days before the due date.
	BucketMonthly FrequencyBucket = "monthly"
	// BucketExtended reminds 30, 14, 7 and 3 days before the due date.
	BucketExtended FrequencyBucket = "extended"
)

// SkipReason explains why a candidate did not produce a reminder.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipOutsideHorizon   SkipReason = "outside_horizon"
	SkipNotTriggerDay    SkipReason = "not_trigger_day"
	SkipInvalidRecipient SkipReason = "invalid_recipient"
	SkipMissingDueDate   SkipReason = "missing_due_date"
)

// NotificationStatus is the state of one send attempt in the notification log.
// Value object - immutable string enum.
type NotificationStatus string

const (
	// NotificationSending marks a reserved attempt whose send has not finished.
	NotificationSending NotificationStatus = "sending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)
