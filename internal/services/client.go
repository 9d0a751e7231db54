package services

import (
	"context"

	"github.com/kubev2v/testrail-reporter/internal/models"
)

// TrackingClient is the subset of the TestRail API used by the reporter.
// It is implemented by *testrail.Client.
type TrackingClient interface {
	GetProject(ctx context.Context, projectID int64) (*models.Project, error)
	GetSuites(ctx context.Context, projectID int64) ([]models.Suite, error)
	GetConfigs(ctx context.Context, projectID int64) ([]models.ConfigGroup, error)
	AddPlan(ctx context.Context, projectID int64, req models.PlanRequest) (*models.Plan, error)
	GetPlan(ctx context.Context, planID int64) (*models.Plan, error)
	ClosePlan(ctx context.Context, planID int64) error
	AddRun(ctx context.Context, projectID int64, req models.RunRequest) (*models.Run, error)
	CloseRun(ctx context.Context, runID int64) error
	AddResultsForCases(ctx context.Context, runID int64, results []models.CaseResult) error
}
