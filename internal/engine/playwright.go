package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kubev2v/testrail-reporter/internal/models"
)

// Playwright JSON report, limited to the fields the reporter reads.
type pwReport struct {
	Config pwConfig  `json:"config"`
	Suites []pwSuite `json:"suites"`
}

type pwConfig struct {
	Projects []pwProject `json:"projects"`
}

type pwProject struct {
	Name string `json:"name"`
}

type pwSuite struct {
	Title  string    `json:"title"`
	Specs  []pwSpec  `json:"specs"`
	Suites []pwSuite `json:"suites"`
}

type pwSpec struct {
	Title string   `json:"title"`
	Tests []pwTest `json:"tests"`
}

type pwTest struct {
	ProjectName string         `json:"projectName"`
	Annotations []pwAnnotation `json:"annotations"`
	Results     []pwResult     `json:"results"`
	// Status is expected, unexpected, flaky or skipped.
	Status string `json:"status"`
}

type pwAnnotation struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type pwResult struct {
	Status   string  `json:"status"`
	Duration float64 `json:"duration"`
	Retry    int     `json:"retry"`
}

type pwCase struct {
	tc      models.TestCase
	results []pwResult
	failed  bool
}

// Playwright replays a Playwright JSON report into a Listener.
type Playwright struct {
	workers int
}

// NewPlaywright returns a replayer delivering up to workers tests concurrently.
func NewPlaywright(workers int) *Playwright {
	if workers < 1 {
		workers = 1
	}
	return &Playwright{workers: workers}
}

// Replay decodes the report read from r and drives l through the whole run.
// The attempts of one test are delivered in order; OnEnd is only issued once
// every test has been delivered.
func (p *Playwright) Replay(ctx context.Context, r io.Reader, l Listener) (models.RunStatus, error) {
	log := zap.S().Named("playwright")

	var report pwReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return models.RunStatusInterrupted, fmt.Errorf("decoding playwright report: %w", err)
	}

	labels := make([]string, 0, len(report.Config.Projects))
	seen := make(map[string]bool)
	for _, project := range report.Config.Projects {
		if project.Name != "" && !seen[project.Name] {
			seen[project.Name] = true
			labels = append(labels, project.Name)
		}
	}

	var cases []pwCase
	for _, s := range report.Suites {
		cases = collect(cases, s, nil)
	}
	log.Debugw("decoded playwright report", "projects", labels, "tests", len(cases))

	if err := l.OnBegin(ctx, labels, len(cases)); err != nil {
		return models.RunStatusInterrupted, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, c := range cases {
		g.Go(func() error {
			for _, res := range c.results {
				if err := gctx.Err(); err != nil {
					return err
				}
				l.OnTestEnd(c.tc, models.TestResult{
					Outcome:  models.Outcome(res.Status),
					Duration: time.Duration(res.Duration * float64(time.Millisecond)),
					Retry:    res.Retry,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.RunStatusInterrupted, err
	}

	status := models.RunStatusPassed
	for _, c := range cases {
		if c.failed {
			status = models.RunStatusFailed
			break
		}
	}

	return status, l.OnEnd(ctx, status)
}

// collect flattens the tests of s and its nested suites. The file level suite
// title is part of the title path like any describe block.
func collect(cases []pwCase, s pwSuite, path []string) []pwCase {
	if s.Title != "" {
		path = append(append([]string(nil), path...), s.Title)
	}
	for _, spec := range s.Specs {
		titlePath := append(append([]string(nil), path...), spec.Title)
		for _, t := range spec.Tests {
			tc := models.TestCase{
				Title:     spec.Title,
				TitlePath: titlePath,
				Label:     t.ProjectName,
			}
			for _, a := range t.Annotations {
				tc.Annotations = append(tc.Annotations, models.Annotation{Type: a.Type, Description: a.Description})
			}
			cases = append(cases, pwCase{tc: tc, results: t.Results, failed: testFailed(t)})
		}
	}
	for _, child := range s.Suites {
		cases = collect(cases, child, path)
	}
	return cases
}

func testFailed(t pwTest) bool {
	if t.Status != "" {
		return t.Status == "unexpected"
	}
	if len(t.Results) == 0 {
		return false
	}
	switch models.Outcome(t.Results[len(t.Results)-1].Status) {
	case models.OutcomeFailed, models.OutcomeTimedOut:
		return true
	}
	return false
}
