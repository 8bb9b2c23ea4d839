package reconcile

import "time"

// Eligibility is the permission state for a new submission attempt.
type Eligibility string

const (
	// EligibilityAllowed accepts a new attempt.
	EligibilityAllowed Eligibility = "ALLOWED"
	// EligibilityDeadlinePassed rejects writes after the due date.
	EligibilityDeadlinePassed Eligibility = "DEADLINE_PASSED"
	// EligibilityAttemptsExhausted rejects writes once every attempt is used.
	EligibilityAttemptsExhausted Eligibility = "ATTEMPTS_EXHAUSTED"
)

// Allowed reports whether a write may proceed.
func (e Eligibility) Allowed() bool {
	return e == EligibilityAllowed
}

// EvaluateEligibility decides whether a student may submit. The deadline check
// wins over the attempts check.
func EvaluateEligibility(assignment Assignment, submission *Submission, now time.Time) Eligibility {
	if now.After(assignment.DueDate) {
		return EligibilityDeadlinePassed
	}
	if submission != nil && submission.ObtainedAttempts >= assignment.Attempts {
		return EligibilityAttemptsExhausted
	}
	return EligibilityAllowed
}

// RemainingAttempts returns how many attempts are left, never negative.
func RemainingAttempts(assignment Assignment, submission *Submission) int {
	used := 0
	if submission != nil {
		used = submission.ObtainedAttempts
	}
	remaining := assignment.Attempts - used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DaysLate counts started 24 hour periods between due and at.
func DaysLate(due, at time.Time) int {
	if !at.After(due) {
		return 0
	}
	late := at.Sub(due)
	days := int(late / (24 * time.Hour))
	if late%(24*time.Hour) != 0 {
		days++
	}
	return days
}
