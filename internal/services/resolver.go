package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/kubev2v/testrail-reporter/internal/config"
	"github.com/kubev2v/testrail-reporter/internal/models"
	srvErrors "github.com/kubev2v/testrail-reporter/pkg/errors"
)

type PlanState string

const (
	PlanStateNoPlan   PlanState = "no_plan"
	PlanStateAttached PlanState = "attached"
	PlanStateCreating PlanState = "creating"
	PlanStateCreated  PlanState = "created"
)

// PlanResolver creates or attaches the TestRail plan and finds the run of
// each configuration label inside it.
type PlanResolver struct {
	client  TrackingClient
	cfg     *config.Configuration
	syncID  uuid.UUID
	now     func() time.Time
	state   PlanState
	plan    *models.Plan
	project *models.Project
	// configs maps lower cased labels to their TestRail configuration.
	configs map[string]models.Config
}

func NewPlanResolver(client TrackingClient, cfg *config.Configuration, syncID uuid.UUID) *PlanResolver {
	return &PlanResolver{
		client: client,
		cfg:    cfg,
		syncID: syncID,
		now:    time.Now,
		state:  PlanStateNoPlan,
	}
}

// WithClock replaces the clock used to name generated plans.
func (r *PlanResolver) WithClock(now func() time.Time) *PlanResolver {
	r.now = now
	return r
}

func (r *PlanResolver) State() PlanState {
	return r.state
}

func (r *PlanResolver) Plan() *models.Plan {
	return r.plan
}

// Validate runs the begin phase checks: the project must exist, the suite
// layout must match and, when a plan id is configured, the plan is fetched.
// Every failure is a ValidationError.
func (r *PlanResolver) Validate(ctx context.Context, labels []string) error {
	log := zap.S().Named("plan_resolver")

	project, err := r.client.GetProject(ctx, r.cfg.TestRail.ProjectID)
	if err != nil {
		return srvErrors.NewValidationErrorWithCause(fmt.Sprintf("project %d is not accessible", r.cfg.TestRail.ProjectID), err)
	}
	r.project = project
	log.Infow("current TestRail project", "project_id", project.ID, "name", project.Name)

	if r.cfg.TestRail.SingleSuite {
		suites, err := r.client.GetSuites(ctx, project.ID)
		if err != nil {
			return srvErrors.NewValidationErrorWithCause("failed to list suites", err)
		}
		if len(suites) > 1 {
			return srvErrors.NewValidationError(fmt.Sprintf("project %d is not configured as a single repository: found %d suites", project.ID, len(suites)))
		}
		log.Debug("TestRail project is a single repository")
	}

	if r.cfg.Plan.Mode == config.PlanModeRun {
		return nil
	}

	if r.cfg.Plan.ID > 0 {
		if err := r.attach(ctx); err != nil {
			return srvErrors.NewValidationErrorWithCause(fmt.Sprintf("plan %d is not accessible", r.cfg.Plan.ID), err)
		}
		return nil
	}

	if err := r.loadConfigs(ctx, labels); err != nil {
		return err
	}
	if len(labels) > 0 && len(r.configs) == 0 {
		return srvErrors.NewValidationError(fmt.Sprintf("none of the configurations %v exist in the %q config group", labels, r.cfg.TestRail.ConfigGroup))
	}
	return nil
}

// Resolve returns the plan results are submitted to: the attached plan when a
// plan id is configured, otherwise a new plan with one run per label.
func (r *PlanResolver) Resolve(ctx context.Context, buffer *ResultBuffer, labels []string) (*models.Plan, error) {
	switch r.state {
	case PlanStateAttached, PlanStateCreated:
		return r.plan, nil
	}

	if r.cfg.Plan.ID > 0 {
		if err := r.attach(ctx); err != nil {
			return nil, srvErrors.NewSubmissionError(fmt.Sprintf("fetch plan %d", r.cfg.Plan.ID), 0, err)
		}
		return r.plan, nil
	}

	return r.create(ctx, buffer, labels)
}

// CreateRun creates the standalone run used in run mode. It is scoped to the
// case ids recorded in the buffer.
func (r *PlanResolver) CreateRun(ctx context.Context, buffer *ResultBuffer) (*models.Run, error) {
	suiteID, err := r.ResolveSuiteID(ctx)
	if err != nil {
		return nil, err
	}

	req := models.RunRequest{
		SuiteID:     suiteID,
		Name:        r.planName(),
		Description: r.planDescription(),
		IncludeAll:  false,
		CaseIDs:     sets.List(buffer.DistinctCaseIDs()),
	}
	run, err := r.client.AddRun(ctx, r.cfg.TestRail.ProjectID, req)
	if err != nil {
		return nil, srvErrors.NewSubmissionError("create run", 0, err)
	}
	zap.S().Named("plan_resolver").Infow("created TestRail run", "run_id", run.ID, "cases", len(req.CaseIDs))
	return run, nil
}

// ResolveSuiteID looks the configured suite up by name and falls back to the
// default suite id when no suite matches.
func (r *PlanResolver) ResolveSuiteID(ctx context.Context) (int64, error) {
	log := zap.S().Named("plan_resolver")

	suites, err := r.client.GetSuites(ctx, r.cfg.TestRail.ProjectID)
	if err != nil {
		return 0, srvErrors.NewSubmissionError("list suites", 0, err)
	}
	for _, s := range suites {
		if strings.EqualFold(s.Name, r.cfg.TestRail.SuiteName) {
			log.Infow("resolved suite", "suite_id", s.ID, "name", s.Name)
			return s.ID, nil
		}
	}

	log.Warnw("suite not found, using default suite id",
		"suite_name", r.cfg.TestRail.SuiteName,
		"default_suite_id", r.cfg.TestRail.DefaultSuiteID)
	return r.cfg.TestRail.DefaultSuiteID, nil
}

// RunFor returns the first run of plan whose configuration matches label,
// ignoring case.
func RunFor(plan *models.Plan, label string) (*models.Run, error) {
	for _, entry := range plan.Entries {
		for i := range entry.Runs {
			if strings.EqualFold(entry.Runs[i].Config, label) {
				run := entry.Runs[i]
				return &run, nil
			}
		}
	}
	return nil, srvErrors.NewResolutionError(label, plan.ID)
}

func (r *PlanResolver) attach(ctx context.Context) error {
	plan, err := r.client.GetPlan(ctx, r.cfg.Plan.ID)
	if err != nil {
		return err
	}
	r.plan = plan
	r.state = PlanStateAttached
	zap.S().Named("plan_resolver").Infow("using existing TestRail plan", "plan_id", plan.ID, "name", plan.Name)
	return nil
}

func (r *PlanResolver) create(ctx context.Context, buffer *ResultBuffer, labels []string) (*models.Plan, error) {
	log := zap.S().Named("plan_resolver")
	r.state = PlanStateCreating

	if r.missingConfigs(labels) {
		if err := r.loadConfigs(ctx, labels); err != nil {
			return nil, err
		}
	}

	suiteID, err := r.ResolveSuiteID(ctx)
	if err != nil {
		return nil, err
	}

	entry := models.PlanEntryRequest{
		SuiteID:    suiteID,
		IncludeAll: r.cfg.Plan.IncludeAll,
	}
	for _, label := range labels {
		c, ok := r.configs[strings.ToLower(label)]
		if !ok {
			log.Warnw("no TestRail configuration for label, no run will be created for it", "label", label)
			continue
		}
		run := models.RunRequest{
			IncludeAll: r.cfg.Plan.IncludeAll,
			ConfigIDs:  []int64{c.ID},
		}
		if !r.cfg.Plan.IncludeAll {
			run.CaseIDs = sets.List(buffer.DistinctCaseIDsFor(label))
		}
		entry.ConfigIDs = append(entry.ConfigIDs, c.ID)
		entry.Runs = append(entry.Runs, run)
	}
	if len(entry.Runs) == 0 {
		return nil, srvErrors.NewSubmissionError("create plan", 0, fmt.Errorf("no configuration label matches the %q config group", r.cfg.TestRail.ConfigGroup))
	}

	req := models.PlanRequest{
		Name:        r.planName(),
		Description: r.planDescription(),
		Entries:     []models.PlanEntryRequest{entry},
	}
	plan, err := r.client.AddPlan(ctx, r.cfg.TestRail.ProjectID, req)
	if err != nil {
		return nil, srvErrors.NewSubmissionError("create plan", 0, err)
	}

	r.plan = plan
	r.state = PlanStateCreated
	log.Infow("created TestRail plan", "plan_id", plan.ID, "runs", len(entry.Runs), "url", plan.URL)
	return plan, nil
}

// loadConfigs maps every label to the configuration of the same name in the
// configured config group.
func (r *PlanResolver) loadConfigs(ctx context.Context, labels []string) error {
	log := zap.S().Named("plan_resolver")

	groups, err := r.client.GetConfigs(ctx, r.cfg.TestRail.ProjectID)
	if err != nil {
		return srvErrors.NewValidationErrorWithCause("failed to list configurations", err)
	}

	var group *models.ConfigGroup
	for i := range groups {
		if strings.Contains(strings.ToLower(groups[i].Name), strings.ToLower(r.cfg.TestRail.ConfigGroup)) {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		return srvErrors.NewValidationError(fmt.Sprintf("config group %q not found in project %d", r.cfg.TestRail.ConfigGroup, r.cfg.TestRail.ProjectID))
	}

	r.configs = make(map[string]models.Config)
	for _, label := range labels {
		found := false
		for _, c := range group.Configs {
			if strings.EqualFold(c.Name, label) {
				r.configs[strings.ToLower(label)] = c
				found = true
				break
			}
		}
		if !found {
			log.Warnw("configuration label not found in config group", "label", label, "group", group.Name)
		}
	}
	return nil
}

func (r *PlanResolver) missingConfigs(labels []string) bool {
	if r.configs == nil {
		return true
	}
	for _, label := range labels {
		if _, ok := r.configs[strings.ToLower(label)]; !ok {
			return true
		}
	}
	return false
}

func (r *PlanResolver) planName() string {
	if r.cfg.Plan.Name != "" {
		return r.cfg.Plan.Name
	}
	name := "Generated on " + r.now().Format("2006-01-02 15:04:05")
	if r.cfg.Plan.Tests != "" {
		name += fmt.Sprintf(" for %s tests", r.cfg.Plan.Tests)
	}
	if r.cfg.Plan.Environment != "" {
		name += fmt.Sprintf(" with %s backend", r.cfg.Plan.Environment)
	}
	return name
}

func (r *PlanResolver) planDescription() string {
	var lines []string
	if r.cfg.Plan.Description != "" {
		lines = append(lines, r.cfg.Plan.Description)
	}
	if r.cfg.Plan.Branch != "" {
		lines = append(lines, "Branch: "+r.cfg.Plan.Branch)
	}
	lines = append(lines, "Sync: "+r.syncID.String())
	return strings.Join(lines, "\n")
}
