// Package v2 holds the TestRail API v2 wire types and their conversion to and
// from the reporter models.
package v2

type Project struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SuiteMode int    `json:"suite_mode"`
}

type Suite struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Suites is the paginated form returned by newer TestRail versions.
type Suites struct {
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
	Size   int     `json:"size"`
	Suites []Suite `json:"suites"`
}

type ConfigGroup struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Configs []Config `json:"configs"`
}

type Config struct {
	ID      int64  `json:"id"`
	GroupID int64  `json:"group_id"`
	Name    string `json:"name"`
}

type Plan struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	URL         string      `json:"url,omitempty"`
	IsCompleted bool        `json:"is_completed"`
	Entries     []PlanEntry `json:"entries"`
}

type PlanEntry struct {
	ID      string `json:"id"`
	SuiteID int64  `json:"suite_id"`
	Name    string `json:"name"`
	Runs    []Run  `json:"runs"`
}

type Run struct {
	ID          int64   `json:"id"`
	PlanID      int64   `json:"plan_id,omitempty"`
	SuiteID     int64   `json:"suite_id"`
	Name        string  `json:"name"`
	Config      string  `json:"config,omitempty"`
	ConfigIDs   []int64 `json:"config_ids,omitempty"`
	IncludeAll  bool    `json:"include_all"`
	URL         string  `json:"url,omitempty"`
	IsCompleted bool    `json:"is_completed"`
}

type AddPlan struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Entries     []AddPlanEntry `json:"entries"`
}

type AddPlanEntry struct {
	SuiteID    int64    `json:"suite_id"`
	Name       string   `json:"name,omitempty"`
	IncludeAll bool     `json:"include_all"`
	ConfigIDs  []int64  `json:"config_ids,omitempty"`
	Runs       []AddRun `json:"runs,omitempty"`
}

type AddRun struct {
	SuiteID     int64   `json:"suite_id,omitempty"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	IncludeAll  bool    `json:"include_all"`
	CaseIDs     []int64 `json:"case_ids,omitempty"`
	ConfigIDs   []int64 `json:"config_ids,omitempty"`
}

type AddResultsForCases struct {
	Results []CaseResult `json:"results"`
}

type CaseResult struct {
	CaseID   int64  `json:"case_id"`
	StatusID int    `json:"status_id"`
	Comment  string `json:"comment,omitempty"`
}

// Error is the body TestRail returns with non 2xx responses.
type Error struct {
	Error string `json:"error"`
}
