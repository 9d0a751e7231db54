package models

import "time"

// Annotation is a metadata entry attached to a test.
type Annotation struct {
	Type        string
	Description string
}

// TestCase identifies an automated test.
type TestCase struct {
	Title       string
	TitlePath   []string
	Annotations []Annotation
	// Label is the execution configuration (browser or project) the test ran under.
	Label string
}

// TestResult is one attempt of a test.
type TestResult struct {
	Outcome  Outcome
	Duration time.Duration
	Retry    int
}
