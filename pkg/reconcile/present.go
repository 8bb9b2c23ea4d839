package reconcile

import "fmt"

// Badge summarizes grading progress of a submission.
type Badge string

const (
	BadgeNone                 Badge = ""
	BadgeAwaitingEvaluation   Badge = "AWAITING_EVALUATION"
	BadgeFeedbackPendingMarks Badge = "FEEDBACK_PENDING_MARKS"
	BadgeGraded               Badge = "GRADED"
)

// Presentation is the view model handed to whatever UI renders an assignment.
type Presentation struct {
	Badge            Badge    `json:"badge"`
	ShowSubmitButton bool     `json:"show_submit_button"`
	ButtonLabel      string   `json:"button_label,omitempty"`
	Alerts           []string `json:"alerts"`
	PenaltyLines     []string `json:"penalty_lines"`
}

// BadgeFor derives the grading badge. Marks take precedence over feedback.
func BadgeFor(submission *Submission) Badge {
	switch {
	case submission == nil:
		return BadgeNone
	case submission.ObtainedMarks != nil:
		return BadgeGraded
	case submission.Feedback != nil && *submission.Feedback != "":
		return BadgeFeedbackPendingMarks
	default:
		return BadgeAwaitingEvaluation
	}
}

// Present maps reconciliation outputs onto the view model. A nil decision means
// penalties could not be loaded.
func Present(assignment Assignment, submission *Submission, eligibility Eligibility, decision *PenaltyDecision) Presentation {
	view := Presentation{
		Badge:        BadgeFor(submission),
		Alerts:       []string{},
		PenaltyLines: []string{},
	}

	switch eligibility {
	case EligibilityAllowed:
		view.ShowSubmitButton = true
		if submission == nil {
			view.ButtonLabel = "Submit"
		} else {
			view.ButtonLabel = "Update submission"
			remaining := RemainingAttempts(assignment, submission)
			view.Alerts = append(view.Alerts, fmt.Sprintf("%d of %d attempts remaining", remaining, assignment.Attempts))
		}
	case EligibilityDeadlinePassed:
		view.Alerts = append(view.Alerts, "Submission closed: the deadline has passed")
	case EligibilityAttemptsExhausted:
		view.Alerts = append(view.Alerts, "Submission closed: no attempts remaining")
	}

	if decision == nil {
		view.Alerts = append(view.Alerts, "Penalty information is currently unavailable")
		return view
	}

	for _, item := range decision.Items {
		view.PenaltyLines = append(view.PenaltyLines, fmt.Sprintf("-%.2f%% %s", item.Percentage, item.Justification))
	}

	return view
}

// WithoutSubmissionState hides the submit action for a view whose current
// submission could not be read.
func (p Presentation) WithoutSubmissionState() Presentation {
	p.ShowSubmitButton = false
	p.ButtonLabel = ""
	p.Alerts = append(p.Alerts, "Submission status is currently unavailable")
	return p
}
