package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kubev2v/testrail-reporter/internal/models"
)

// goTestEvent is one line of go test -json output.
type goTestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
}

type goTestEnd struct {
	tc  models.TestCase
	res models.TestResult
}

// GoTest replays a go test -json stream into a Listener. Every test runs
// under the same configuration label.
type GoTest struct {
	label string
	// Malformed counts the lines of the last replay that were not JSON events.
	Malformed int
}

func NewGoTest(label string) *GoTest {
	return &GoTest{label: label}
}

// Replay reads the whole stream, then issues OnBegin, one OnTestEnd per
// terminal test action in stream order and OnEnd. A test repeated with
// -count is reported as retries of the same test.
func (g *GoTest) Replay(ctx context.Context, r io.Reader, l Listener) (models.RunStatus, error) {
	log := zap.S().Named("gotest")

	ends, failed, err := g.parse(r)
	if err != nil {
		return models.RunStatusInterrupted, err
	}
	if g.Malformed > 0 {
		log.Warnw("skipped malformed lines in go test output", "lines", g.Malformed)
	}

	var labels []string
	if g.label != "" {
		labels = []string{g.label}
	}
	if err := l.OnBegin(ctx, labels, len(ends)); err != nil {
		return models.RunStatusInterrupted, err
	}

	for _, e := range ends {
		if err := ctx.Err(); err != nil {
			return models.RunStatusInterrupted, err
		}
		l.OnTestEnd(e.tc, e.res)
	}

	status := models.RunStatusPassed
	if failed {
		status = models.RunStatusFailed
	}
	return status, l.OnEnd(ctx, status)
}

func (g *GoTest) parse(r io.Reader) ([]goTestEnd, bool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	g.Malformed = 0
	attempts := make(map[string]int)
	var ends []goTestEnd
	failed := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event goTestEvent
		if err := json.Unmarshal(line, &event); err != nil {
			g.Malformed++
			continue
		}

		outcome, err := models.ParseOutcome(event.Action)
		if err != nil {
			// run, output, pause and friends
			continue
		}
		if outcome == models.OutcomeFailed {
			failed = true
		}
		if event.Test == "" {
			continue
		}

		key := event.Package + "." + event.Test
		ends = append(ends, goTestEnd{
			tc: g.testCase(event),
			res: models.TestResult{
				Outcome:  outcome,
				Duration: time.Duration(event.Elapsed * float64(time.Second)),
				Retry:    attempts[key],
			},
		})
		attempts[key]++
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("scanning test output: %w", err)
	}
	return ends, failed, nil
}

// testCase turns "TestLogin/works_=>_101" into the title "works => 101".
// go test replaces spaces of subtest names with underscores.
func (g *GoTest) testCase(event goTestEvent) models.TestCase {
	segments := strings.Split(event.Test, "/")
	path := make([]string, 0, len(segments)+1)
	if event.Package != "" {
		path = append(path, event.Package)
	}
	for _, s := range segments {
		path = append(path, strings.ReplaceAll(s, "_", " "))
	}
	return models.TestCase{
		Title:     path[len(path)-1],
		TitlePath: path,
		Label:     g.label,
	}
}
