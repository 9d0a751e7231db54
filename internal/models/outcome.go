package models

import (
	srvErrors "github.com/kubev2v/testrail-reporter/pkg/errors"
)

// Outcome is the result of one test attempt as reported by the execution engine.
type Outcome string

const (
	OutcomePassed   Outcome = "passed"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimedOut Outcome = "timedOut"
	OutcomeSkipped  Outcome = "skipped"
)

// ParseOutcome accepts Playwright statuses and go test actions.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "passed", "pass":
		return OutcomePassed, nil
	case "failed", "fail":
		return OutcomeFailed, nil
	case "timedOut":
		return OutcomeTimedOut, nil
	case "skipped", "skip":
		return OutcomeSkipped, nil
	default:
		return "", srvErrors.NewMappingError(s)
	}
}

// Status is a TestRail result status id.
type Status int

const (
	StatusPassed   Status = 1
	StatusBlocked  Status = 2
	StatusUntested Status = 3
	StatusRetest   Status = 4
	StatusFailed   Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusBlocked:
		return "blocked"
	case StatusUntested:
		return "untested"
	case StatusRetest:
		return "retest"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MapOutcome maps an outcome to its TestRail status. Failed and timed out
// attempts share the failed status.
func MapOutcome(o Outcome) (Status, error) {
	switch o {
	case OutcomePassed:
		return StatusPassed, nil
	case OutcomeFailed, OutcomeTimedOut:
		return StatusFailed, nil
	case OutcomeSkipped:
		return StatusUntested, nil
	default:
		return 0, srvErrors.NewMappingError(string(o))
	}
}

// RunStatus is the overall status of the execution reported at run end.
type RunStatus string

const (
	RunStatusPassed      RunStatus = "passed"
	RunStatusFailed      RunStatus = "failed"
	RunStatusTimedOut    RunStatus = "timedout"
	RunStatusInterrupted RunStatus = "interrupted"
)
