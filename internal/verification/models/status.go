package models

import (
	"strings"

	dErrors "trustgate/pkg/domain-errors"
)

// Status is the lifecycle state of a Document.
//
// Transitions: PENDING → VERIFIED, PENDING → REJECTED. Both targets are
// terminal; the only way back to PENDING is a new submission.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusVerified Status = "VERIFIED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// CanTransitionTo reports whether the state machine allows s → target.
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusPending && target.IsTerminal()
}

func (s Status) String() string {
	return string(s)
}

// Decision is a reviewer's verdict. It is always a terminal Status.
type Decision string

const (
	DecisionVerified Decision = Decision(StatusVerified)
	DecisionRejected Decision = Decision(StatusRejected)
)

// ParseDecision validates external input as a review decision.
func ParseDecision(s string) (Decision, error) {
	d := Decision(strings.ToUpper(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "decision must be VERIFIED or REJECTED")
	}
	return d, nil
}

func (d Decision) IsValid() bool {
	return d == DecisionVerified || d == DecisionRejected
}

// Status returns the terminal status the decision moves a document to.
func (d Decision) Status() Status {
	return Status(d)
}
