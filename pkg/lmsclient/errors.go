package lmsclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

// Kind classifies a client failure.
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindValidation Kind = "VALIDATION_FAILED"
	KindIneligible Kind = "INELIGIBLE"
	KindTransport  Kind = "TRANSPORT_FAILURE"
	KindAuth       Kind = "AUTH_FAILURE"
)

var (
	// ErrNotFound matches errors for resources that do not exist.
	ErrNotFound = errors.New("lmsclient: not found")
	// ErrValidation matches local validation failures and schema mismatches.
	ErrValidation = errors.New("lmsclient: validation failed")
	// ErrIneligible matches writes refused because submission is closed.
	ErrIneligible = errors.New("lmsclient: submission closed")
	// ErrTransport matches network failures and backend 5xx responses.
	ErrTransport = errors.New("lmsclient: transport failure")
	// ErrAuth matches rejected or expired credentials.
	ErrAuth = errors.New("lmsclient: authentication failed")
)

// Error is returned by every Client method.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Code   string
	// Eligibility is set for KindIneligible.
	Eligibility reconcile.Eligibility
	Err         error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("lmsclient %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	case KindIneligible:
		return ErrIneligible
	case KindAuth:
		return ErrAuth
	default:
		return ErrTransport
	}
}

// KindOf returns the kind of err, or an empty Kind when err is not a client error.
func KindOf(err error) Kind {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr.Kind
	}
	return ""
}

// kindForStatus classifies a failed response. A conflict is only an
// eligibility refusal when the backend names the closed-submission reason.
func kindForStatus(status int, code string) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusConflict && eligibilityForCode(code) != "":
		return KindIneligible
	case status == http.StatusTooManyRequests, status >= 500:
		return KindTransport
	case status >= 400:
		return KindValidation
	default:
		return KindTransport
	}
}

// eligibilityForCode maps the backend's closed-submission codes.
func eligibilityForCode(code string) reconcile.Eligibility {
	switch code {
	case "deadline_passed":
		return reconcile.EligibilityDeadlinePassed
	case "attempts_exhausted":
		return reconcile.EligibilityAttemptsExhausted
	default:
		return ""
	}
}
