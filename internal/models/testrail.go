package models

// Project is a TestRail project.
type Project struct {
	ID        int64
	Name      string
	SuiteMode int
}

const (
	SuiteModeSingle         = 1
	SuiteModeSingleBaseline = 2
	SuiteModeMultiple       = 3
)

// Suite is a TestRail test suite, the repository of cases a run references.
type Suite struct {
	ID   int64
	Name string
}

// ConfigGroup groups the configurations (e.g. browsers) of a project.
type ConfigGroup struct {
	ID      int64
	Name    string
	Configs []Config
}

type Config struct {
	ID   int64
	Name string
}

// Plan is a named container of runs, one per execution configuration.
type Plan struct {
	ID          int64
	Name        string
	Description string
	URL         string
	IsCompleted bool
	Entries     []PlanEntry
}

// Runs returns the runs of every entry in entry order.
func (p *Plan) Runs() []Run {
	var runs []Run
	for _, e := range p.Entries {
		runs = append(runs, e.Runs...)
	}
	return runs
}

type PlanEntry struct {
	ID      string
	SuiteID int64
	Name    string
	Runs    []Run
}

// Run receives results for the cases it scopes.
type Run struct {
	ID          int64
	PlanID      int64
	SuiteID     int64
	Name        string
	Config      string
	ConfigIDs   []int64
	IncludeAll  bool
	CaseIDs     []int64
	URL         string
	IsCompleted bool
}

// PlanRequest describes a plan to create.
type PlanRequest struct {
	Name        string
	Description string
	Entries     []PlanEntryRequest
}

type PlanEntryRequest struct {
	SuiteID    int64
	Name       string
	IncludeAll bool
	ConfigIDs  []int64
	Runs       []RunRequest
}

// RunRequest describes a run to create, standalone or inside a plan entry.
type RunRequest struct {
	SuiteID     int64
	Name        string
	Description string
	IncludeAll  bool
	CaseIDs     []int64
	ConfigIDs   []int64
}
