package test

import (
	"context"
	"fmt"
	"sync"

	"github.com/kubev2v/testrail-reporter/internal/models"
	"github.com/kubev2v/testrail-reporter/internal/services"
	srvErrors "github.com/kubev2v/testrail-reporter/pkg/errors"
)

// Submission is one add_results_for_cases call seen by MockTrackingClient.
type Submission struct {
	RunID   int64
	Results []models.CaseResult
}

// MockTrackingClient implements services.TrackingClient in memory for testing.
// Errors set on the struct are returned by the matching call.
type MockTrackingClient struct {
	Project      models.Project
	Suites       []models.Suite
	ConfigGroups []models.ConfigGroup
	Plans        map[int64]*models.Plan

	GetProjectErr  error
	GetSuitesErr   error
	GetConfigsErr  error
	AddPlanErr     error
	GetPlanErr     error
	ClosePlanErr   error
	AddRunErr      error
	CloseRunErr    error
	AddResultsErrs map[int64]error

	mu           sync.Mutex
	nextID       int64
	Calls        []string
	PlanRequests []models.PlanRequest
	RunRequests  []models.RunRequest
	Submissions  []Submission
	ClosedPlans  []int64
	ClosedRuns   []int64
}

// NewMockTrackingClient returns a client with project 59, a "Regression suite"
// suite and a "Web Browsers" config group holding Chrome, Edge and Firefox.
func NewMockTrackingClient() *MockTrackingClient {
	return &MockTrackingClient{
		Project: models.Project{ID: 59, Name: "E2E", SuiteMode: models.SuiteModeMultiple},
		Suites: []models.Suite{
			{ID: 657, Name: "Smoke suite"},
			{ID: 900, Name: "Regression suite"},
		},
		ConfigGroups: []models.ConfigGroup{
			{ID: 1, Name: "Operating Systems", Configs: []models.Config{{ID: 11, Name: "Linux"}}},
			{ID: 2, Name: "Web Browsers", Configs: []models.Config{
				{ID: 21, Name: "Chrome"},
				{ID: 22, Name: "Edge"},
				{ID: 23, Name: "Firefox"},
			}},
		},
		Plans:          make(map[int64]*models.Plan),
		AddResultsErrs: make(map[int64]error),
		nextID:         1000,
	}
}

// WithPlan stores a plan with one run per label, run ids in label order
// starting at firstRunID.
func (m *MockTrackingClient) WithPlan(planID, firstRunID int64, labels ...string) *MockTrackingClient {
	plan := &models.Plan{ID: planID, Name: "Existing plan"}
	entry := models.PlanEntry{ID: "entry-1", SuiteID: 900}
	for i, label := range labels {
		entry.Runs = append(entry.Runs, models.Run{
			ID:         firstRunID + int64(i),
			PlanID:     planID,
			SuiteID:    900,
			Config:     label,
			IncludeAll: true,
		})
	}
	plan.Entries = []models.PlanEntry{entry}
	m.Plans[planID] = plan
	return m
}

func (m *MockTrackingClient) record(call string) {
	m.Calls = append(m.Calls, call)
}

func (m *MockTrackingClient) id() int64 {
	m.nextID++
	return m.nextID
}

// CallCount returns how many times the named call was made.
func (m *MockTrackingClient) CallCount(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *MockTrackingClient) GetProject(ctx context.Context, projectID int64) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("get_project")
	if m.GetProjectErr != nil {
		return nil, m.GetProjectErr
	}
	p := m.Project
	return &p, nil
}

func (m *MockTrackingClient) GetSuites(ctx context.Context, projectID int64) ([]models.Suite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("get_suites")
	if m.GetSuitesErr != nil {
		return nil, m.GetSuitesErr
	}
	return append([]models.Suite(nil), m.Suites...), nil
}

func (m *MockTrackingClient) GetConfigs(ctx context.Context, projectID int64) ([]models.ConfigGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("get_configs")
	if m.GetConfigsErr != nil {
		return nil, m.GetConfigsErr
	}
	return append([]models.ConfigGroup(nil), m.ConfigGroups...), nil
}

// AddPlan creates a plan whose runs carry the name of their configuration, as
// TestRail does.
func (m *MockTrackingClient) AddPlan(ctx context.Context, projectID int64, req models.PlanRequest) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("add_plan")
	m.PlanRequests = append(m.PlanRequests, req)
	if m.AddPlanErr != nil {
		return nil, m.AddPlanErr
	}

	plan := &models.Plan{ID: m.id(), Name: req.Name, Description: req.Description}
	for _, e := range req.Entries {
		entry := models.PlanEntry{ID: "entry", SuiteID: e.SuiteID, Name: e.Name}
		for _, r := range e.Runs {
			run := models.Run{
				ID:         m.id(),
				PlanID:     plan.ID,
				SuiteID:    e.SuiteID,
				ConfigIDs:  r.ConfigIDs,
				IncludeAll: r.IncludeAll,
				CaseIDs:    r.CaseIDs,
				Config:     m.configName(r.ConfigIDs),
			}
			entry.Runs = append(entry.Runs, run)
		}
		plan.Entries = append(plan.Entries, entry)
	}
	m.Plans[plan.ID] = plan
	return plan, nil
}

func (m *MockTrackingClient) configName(ids []int64) string {
	var name string
	for _, id := range ids {
		for _, g := range m.ConfigGroups {
			for _, c := range g.Configs {
				if c.ID == id {
					if name != "" {
						name += ", "
					}
					name += c.Name
				}
			}
		}
	}
	return name
}

func (m *MockTrackingClient) GetPlan(ctx context.Context, planID int64) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("get_plan")
	if m.GetPlanErr != nil {
		return nil, m.GetPlanErr
	}
	plan, ok := m.Plans[planID]
	if !ok {
		return nil, srvErrors.NewResourceNotFoundError("get_plan", fmt.Sprintf("plan %d not found", planID))
	}
	p := *plan
	return &p, nil
}

func (m *MockTrackingClient) ClosePlan(ctx context.Context, planID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("close_plan")
	if m.ClosePlanErr != nil {
		return m.ClosePlanErr
	}
	m.ClosedPlans = append(m.ClosedPlans, planID)
	return nil
}

func (m *MockTrackingClient) AddRun(ctx context.Context, projectID int64, req models.RunRequest) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("add_run")
	m.RunRequests = append(m.RunRequests, req)
	if m.AddRunErr != nil {
		return nil, m.AddRunErr
	}
	return &models.Run{
		ID:         m.id(),
		SuiteID:    req.SuiteID,
		Name:       req.Name,
		IncludeAll: req.IncludeAll,
		CaseIDs:    req.CaseIDs,
	}, nil
}

func (m *MockTrackingClient) CloseRun(ctx context.Context, runID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("close_run")
	if m.CloseRunErr != nil {
		return m.CloseRunErr
	}
	m.ClosedRuns = append(m.ClosedRuns, runID)
	return nil
}

func (m *MockTrackingClient) AddResultsForCases(ctx context.Context, runID int64, results []models.CaseResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("add_results_for_cases")
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.AddResultsErrs[runID]; err != nil {
		return err
	}
	m.Submissions = append(m.Submissions, Submission{
		RunID:   runID,
		Results: append([]models.CaseResult(nil), results...),
	})
	return nil
}

// Ensure MockTrackingClient implements services.TrackingClient.
var _ services.TrackingClient = (*MockTrackingClient)(nil)
