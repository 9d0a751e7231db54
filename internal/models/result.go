package models

// CaseResult is the status of one TestRail case produced by one test attempt.
type CaseResult struct {
	CaseID   int64
	StatusID Status
	Comment  string
}
