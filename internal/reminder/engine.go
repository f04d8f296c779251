// Package reminder decides which due-date records get a reminder on a given day.
// Everything here is pure: no clocks, no storage, no network.
package reminder

import (
	"math"
	"time"

	"github.com/rezkam/hsewatch/internal/domain"
)

// HorizonDays is the furthest ahead a reminder is ever sent.
const HorizonDays = 30

const day = 24 * time.Hour

// DaysUntilDue returns the whole number of calendar days from today to dueDate.
//
// Both values are reduced to their calendar date (in their own location)
// before subtracting, so the time of day never changes the result.
// Negative results mean the item is overdue.
func DaysUntilDue(today, dueDate time.Time) int {
	from := midnight(today)
	to := midnight(dueDate)
	return int(math.Ceil(float64(to.Sub(from)) / float64(day)))
}

// midnight returns t's calendar date at 00:00 UTC.
// Using UTC for the result keeps every day exactly 24h long.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Evaluate classifies a single candidate for the given day.
func Evaluate(candidate domain.ReminderCandidate, today time.Time) domain.ReminderDecision {
	decision := domain.ReminderDecision{Candidate: candidate}

	if candidate.DueDate.IsZero() {
		decision.SkipReason = domain.SkipMissingDueDate
		return decision
	}

	decision.DaysUntilDue = DaysUntilDue(today, candidate.DueDate)
	decision.Bucket = ClassifyFrequency(candidate.FrequencyLabel)

	if decision.DaysUntilDue < 0 || decision.DaysUntilDue > HorizonDays {
		decision.SkipReason = domain.SkipOutsideHorizon
		return decision
	}

	if !IsReminderDay(decision.DaysUntilDue, decision.Bucket) {
		decision.SkipReason = domain.SkipNotTriggerDay
		return decision
	}

	if !domain.ValidRecipient(candidate.RecipientEmail) {
		decision.SkipReason = domain.SkipInvalidRecipient
		return decision
	}

	decision.Eligible = true
	decision.TriggerOffset = decision.DaysUntilDue
	return decision
}

// SelectEligibleCandidates evaluates every candidate independently.
// The result has one decision per candidate, in input order; use Eligible
// to keep only the ones that should be dispatched.
func SelectEligibleCandidates(candidates []domain.ReminderCandidate, today time.Time) []domain.ReminderDecision {
	decisions := make([]domain.ReminderDecision, 0, len(candidates))
	for _, c := range candidates {
		decisions = append(decisions, Evaluate(c, today))
	}
	return decisions
}

// Eligible returns the decisions marked eligible.
func Eligible(decisions []domain.ReminderDecision) []domain.ReminderDecision {
	out := make([]domain.ReminderDecision, 0, len(decisions))
	for _, d := range decisions {
		if d.Eligible {
			out = append(out, d)
		}
	}
	return out
}

// CountSkipped tallies ineligible decisions by reason.
func CountSkipped(decisions []domain.ReminderDecision) map[domain.SkipReason]int {
	counts := make(map[domain.SkipReason]int)
	for _, d := range decisions {
		if !d.Eligible {
			counts[d.SkipReason]++
		}
	}
	return counts
}
