package reminder

import (
	"slices"
	"strings"

	"github.com/rezkam/hsewatch/internal/domain"
)

// Trigger offsets in days before the due date, largest first.
var (
	monthlyOffsets  = []int{14, 7, 3}
	extendedOffsets = []int{30, 14, 7, 3}
)

// extendedMarkers are the label fragments that select the extended bucket.
var extendedMarkers = []string{"annual", "yearly", "quarterly", "semester", "semi"}

// ClassifyFrequency maps a free-text frequency label to its offset bucket.
//
// Matching is a case-insensitive substring test. "month" wins over every
// other marker, so "Semi-Monthly" is monthly. Unrecognized or empty labels
// fall back to the monthly bucket.
func ClassifyFrequency(rawLabel string) domain.FrequencyBucket {
	label := strings.ToLower(rawLabel)

	if strings.Contains(label, "month") {
		return domain.BucketMonthly
	}

	for _, marker := range extendedMarkers {
		if strings.Contains(label, marker) {
			return domain.BucketExtended
		}
	}

	return domain.BucketMonthly
}

// ParseFrequency normalizes a free-text label into the closed Frequency enum.
// It agrees with ClassifyFrequency: every non-monthly result other than
// FrequencyOther lands in the extended bucket.
func ParseFrequency(rawLabel string) domain.Frequency {
	label := strings.ToLower(rawLabel)

	switch {
	case strings.Contains(label, "month"):
		return domain.FrequencyMonthly
	case strings.Contains(label, "quarterly"):
		return domain.FrequencyQuarterly
	case strings.Contains(label, "semester"), strings.Contains(label, "semi"):
		return domain.FrequencySemesterly
	case strings.Contains(label, "annual"), strings.Contains(label, "yearly"):
		return domain.FrequencyAnnual
	default:
		return domain.FrequencyOther
	}
}

// BucketFor returns the offset bucket of a normalized frequency.
func BucketFor(f domain.Frequency) domain.FrequencyBucket {
	switch f {
	case domain.FrequencyAnnual, domain.FrequencyQuarterly, domain.FrequencySemesterly:
		return domain.BucketExtended
	default:
		return domain.BucketMonthly
	}
}

// Offsets returns the trigger offsets of a bucket. The slice is a copy.
func Offsets(bucket domain.FrequencyBucket) []int {
	if bucket == domain.BucketExtended {
		return slices.Clone(extendedOffsets)
	}
	return slices.Clone(monthlyOffsets)
}

// IsReminderDay reports whether daysUntilDue is exactly one of the bucket's offsets.
// There is no tolerance: a missed day is never caught up, and overdue
// (negative) values never match.
func IsReminderDay(daysUntilDue int, bucket domain.FrequencyBucket) bool {
	if daysUntilDue < 0 {
		return false
	}
	offsets := monthlyOffsets
	if bucket == domain.BucketExtended {
		offsets = extendedOffsets
	}
	return slices.Contains(offsets, daysUntilDue)
}
