package engine

import (
	"context"

	"github.com/kubev2v/testrail-reporter/internal/models"
)

// Listener observes the lifecycle of a test execution.
// It is implemented by *services.Reporter.
type Listener interface {
	OnBegin(ctx context.Context, labels []string, totalTests int) error
	// OnTestEnd may be called concurrently for different tests.
	OnTestEnd(tc models.TestCase, res models.TestResult)
	OnEnd(ctx context.Context, status models.RunStatus) error
}
