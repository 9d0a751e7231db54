package v2

import (
	"github.com/kubev2v/testrail-reporter/internal/models"
)

func (p Project) ToModel() models.Project {
	return models.Project{ID: p.ID, Name: p.Name, SuiteMode: p.SuiteMode}
}

func (s Suite) ToModel() models.Suite {
	return models.Suite{ID: s.ID, Name: s.Name}
}

func (g ConfigGroup) ToModel() models.ConfigGroup {
	m := models.ConfigGroup{ID: g.ID, Name: g.Name}
	for _, c := range g.Configs {
		m.Configs = append(m.Configs, models.Config{ID: c.ID, Name: c.Name})
	}
	return m
}

func (r Run) ToModel() models.Run {
	return models.Run{
		ID:          r.ID,
		PlanID:      r.PlanID,
		SuiteID:     r.SuiteID,
		Name:        r.Name,
		Config:      r.Config,
		ConfigIDs:   r.ConfigIDs,
		IncludeAll:  r.IncludeAll,
		URL:         r.URL,
		IsCompleted: r.IsCompleted,
	}
}

func (p Plan) ToModel() models.Plan {
	m := models.Plan{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		URL:         p.URL,
		IsCompleted: p.IsCompleted,
	}
	for _, e := range p.Entries {
		entry := models.PlanEntry{ID: e.ID, SuiteID: e.SuiteID, Name: e.Name}
		for _, r := range e.Runs {
			entry.Runs = append(entry.Runs, r.ToModel())
		}
		m.Entries = append(m.Entries, entry)
	}
	return m
}

// NewAddPlanFromModel converts a plan request to the add_plan body.
func NewAddPlanFromModel(req models.PlanRequest) AddPlan {
	body := AddPlan{
		Name:        req.Name,
		Description: req.Description,
		Entries:     make([]AddPlanEntry, 0, len(req.Entries)),
	}
	for _, e := range req.Entries {
		entry := AddPlanEntry{
			SuiteID:    e.SuiteID,
			Name:       e.Name,
			IncludeAll: e.IncludeAll,
			ConfigIDs:  e.ConfigIDs,
		}
		for _, r := range e.Runs {
			entry.Runs = append(entry.Runs, NewAddRunFromModel(r))
		}
		body.Entries = append(body.Entries, entry)
	}
	return body
}

func NewAddRunFromModel(req models.RunRequest) AddRun {
	return AddRun{
		SuiteID:     req.SuiteID,
		Name:        req.Name,
		Description: req.Description,
		IncludeAll:  req.IncludeAll,
		CaseIDs:     req.CaseIDs,
		ConfigIDs:   req.ConfigIDs,
	}
}

// NewAddResultsForCasesFromModel converts a batch of case results to the
// add_results_for_cases body.
func NewAddResultsForCasesFromModel(results []models.CaseResult) AddResultsForCases {
	body := AddResultsForCases{Results: make([]CaseResult, 0, len(results))}
	for _, r := range results {
		body.Results = append(body.Results, CaseResult{
			CaseID:   r.CaseID,
			StatusID: int(r.StatusID),
			Comment:  r.Comment,
		})
	}
	return body
}
