package fakerail

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v2 "github.com/kubev2v/testrail-reporter/api/v2"
)

const apiPrefix = "/api/v2/"

// Call is one API call received by the fake.
type Call struct {
	Method string
	ID     int64
}

// Server is an in-memory TestRail API v2 answering on /index.php?/api/v2/...
// It is safe for concurrent use.
type Server struct {
	engine *gin.Engine

	mu      sync.Mutex
	nextID  int64
	project v2.Project
	suites  []v2.Suite
	groups  []v2.ConfigGroup
	plans   map[int64]*v2.Plan
	runs    map[int64]*v2.Run
	results map[int64][]v2.CaseResult
	calls   []Call
	// failures maps an API method to the status code it answers with.
	failures  map[string]int
	paginated bool
}

// New returns a fake with project 59, the "Regression suite" suite (id 900)
// and a "Web Browsers" config group holding Chrome (21), Edge (22) and
// Firefox (23). Requests must authenticate as username/password.
func New(username, password string) *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		nextID:  1000,
		project: v2.Project{ID: 59, Name: "E2E", SuiteMode: 3},
		suites: []v2.Suite{
			{ID: 657, Name: "Smoke suite"},
			{ID: 900, Name: "Regression suite"},
		},
		groups: []v2.ConfigGroup{
			{ID: 1, Name: "Operating Systems", Configs: []v2.Config{{ID: 11, GroupID: 1, Name: "Linux"}}},
			{ID: 2, Name: "Web Browsers", Configs: []v2.Config{
				{ID: 21, GroupID: 2, Name: "Chrome"},
				{ID: 22, GroupID: 2, Name: "Edge"},
				{ID: 23, GroupID: 2, Name: "Firefox"},
			}},
		},
		plans:    make(map[int64]*v2.Plan),
		runs:     make(map[int64]*v2.Run),
		results:  make(map[int64][]v2.CaseResult),
		failures: make(map[string]int),
	}

	engine := gin.New()
	engine.Use(ginzap.Ginzap(zap.L().Named("fakerail"), time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(zap.L().Named("fakerail"), true))
	engine.Any("/index.php", gin.BasicAuth(gin.Accounts{username: password}), s.dispatch)
	s.engine = engine
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Fail makes every call of method answer with status.
func (s *Server) Fail(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = status
}

// SetPaginated makes get_suites answer with the paginated object form.
func (s *Server) SetPaginated(paginated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paginated = paginated
}

// AddPlan stores a plan with one run per configuration name and returns its id.
func (s *Server) AddPlan(name string, configs ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan := &v2.Plan{ID: s.id(), Name: name}
	entry := v2.PlanEntry{ID: strconv.FormatInt(s.id(), 10), SuiteID: 900}
	for _, c := range configs {
		run := v2.Run{ID: s.id(), PlanID: plan.ID, SuiteID: 900, Name: name, Config: c, IncludeAll: true}
		s.runs[run.ID] = &run
		entry.Runs = append(entry.Runs, run)
	}
	plan.Entries = []v2.PlanEntry{entry}
	plan.URL = fmt.Sprintf("/index.php?/plans/view/%d", plan.ID)
	s.plans[plan.ID] = plan
	return plan.ID
}

// Calls returns the calls received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how many times method was called.
func (s *Server) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Results returns the results submitted to a run in submission order.
func (s *Server) Results(runID int64) []v2.CaseResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]v2.CaseResult(nil), s.results[runID]...)
}

// Plan returns a copy of a stored plan.
func (s *Server) Plan(planID int64) (v2.Plan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return v2.Plan{}, false
	}
	return *p, true
}

// Plans returns the ids of every stored plan.
func (s *Server) Plans() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.plans))
	for id := range s.plans {
		ids = append(ids, id)
	}
	return ids
}

// Run returns a copy of a stored run.
func (s *Server) Run(runID int64) (v2.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return v2.Run{}, false
	}
	return *r, true
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

// dispatch routes on the query string: TestRail puts the API path after "?".
func (s *Server) dispatch(c *gin.Context) {
	path, _, _ := strings.Cut(c.Request.URL.RawQuery, "&")
	if !strings.HasPrefix(path, apiPrefix) {
		c.JSON(http.StatusNotFound, v2.Error{Error: "Unknown API path " + path})
		return
	}
	method, rawID, _ := strings.Cut(strings.TrimPrefix(path, apiPrefix), "/")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, v2.Error{Error: "Field :id is not a valid ID."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Method: method, ID: id})
	if status, ok := s.failures[method]; ok {
		c.JSON(status, v2.Error{Error: fmt.Sprintf("%s failed", method)})
		return
	}

	switch method {
	case "get_project":
		s.getProject(c, id)
	case "get_suites":
		s.getSuites(c, id)
	case "get_configs":
		s.getConfigs(c, id)
	case "add_plan":
		s.addPlan(c, id)
	case "get_plan":
		s.getPlan(c, id)
	case "close_plan":
		s.closePlan(c, id)
	case "add_run":
		s.addRun(c, id)
	case "close_run":
		s.closeRun(c, id)
	case "add_results_for_cases":
		s.addResultsForCases(c, id)
	default:
		c.JSON(http.StatusNotFound, v2.Error{Error: "Unknown method " + method})
	}
}

func (s *Server) checkProject(c *gin.Context, id int64) bool {
	if id != s.project.ID {
		c.JSON(http.StatusBadRequest, v2.Error{Error: "Field :project_id is not a valid or accessible project."})
		return false
	}
	return true
}

func (s *Server) getProject(c *gin.Context, id int64) {
	if id != s.project.ID {
		c.JSON(http.StatusNotFound, v2.Error{Error: "Field :project_id is not a valid or accessible project."})
		return
	}
	c.JSON(http.StatusOK, s.project)
}

func (s *Server) getSuites(c *gin.Context, id int64) {
	if !s.checkProject(c, id) {
		return
	}
	if s.paginated {
		c.JSON(http.StatusOK, v2.Suites{Offset: 0, Limit: 250, Size: len(s.suites), Suites: s.suites})
		return
	}
	c.JSON(http.StatusOK, s.suites)
}

func (s *Server) getConfigs(c *gin.Context, id int64) {
	if !s.checkProject(c, id) {
		return
	}
	c.JSON(http.StatusOK, s.groups)
}

func (s *Server) addPlan(c *gin.Context, id int64) {
	if !s.checkProject(c, id) {
		return
	}
	var req v2.AddPlan
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v2.Error{Error: err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, v2.Error{Error: "Field :name is a required field."})
		return
	}

	plan := &v2.Plan{ID: s.id(), Name: req.Name, Description: req.Description}
	plan.URL = fmt.Sprintf("/index.php?/plans/view/%d", plan.ID)
	for _, e := range req.Entries {
		entry := v2.PlanEntry{ID: strconv.FormatInt(s.id(), 10), SuiteID: e.SuiteID, Name: e.Name}
		for _, r := range e.Runs {
			run := v2.Run{
				ID:         s.id(),
				PlanID:     plan.ID,
				SuiteID:    e.SuiteID,
				Name:       req.Name,
				Config:     s.configName(r.ConfigIDs),
				ConfigIDs:  r.ConfigIDs,
				IncludeAll: r.IncludeAll,
			}
			s.runs[run.ID] = &run
			entry.Runs = append(entry.Runs, run)
		}
		plan.Entries = append(plan.Entries, entry)
	}
	s.plans[plan.ID] = plan
	c.JSON(http.StatusOK, plan)
}

func (s *Server) getPlan(c *gin.Context, id int64) {
	plan, ok := s.plans[id]
	if !ok {
		c.JSON(http.StatusBadRequest, v2.Error{Error: "Field :plan_id is not a valid test plan."})
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) closePlan(c *gin.Context, id int64) {
	plan, ok := s.plans[id]
	if !ok {
		c.JSON(http.StatusBadRequest, v2.Error{Error: "Field :plan_id is not a valid test plan."})
		return
	}
	plan.IsCompleted = true
	for i := range plan.Entries {
		for j := range plan.Entries[i].Runs {
			plan.Entries[i].Runs[j].IsCompleted = true
			s.runs[plan.Entries[i].Runs[j].ID].IsCompleted = true
		}
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) addRun(c *gin.Context, id int64) {
	if !s.checkProject(c, id) {
		return
	}
	var req v2.AddRun
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v2.Error{Error: err.Error()})
		return
	}
	run := &v2.Run{
		ID:         s.id(),
		SuiteID:    req.SuiteID,
		Name:       req.Name,
		IncludeAll: req.IncludeAll,
	}
	run.URL = fmt.Sprintf("/index.php?/runs/view/%d", run.ID)
	s.runs[run.ID] = run
	c.JSON(http.StatusOK, run)
}

func (s *Server) closeRun(c *gin.Context, id int64) {
	run, ok := s.runs[id]
	if !ok {
		c.JSON(http.StatusBadRequest, v2.Error{Error: "Field :run_id is not a valid test run."})
		return
	}
	if run.PlanID > 0 {
		c.JSON(http.StatusBadRequest, v2.Error{Error: "Field :run_id is part of a test plan and cannot be closed individually."})
		return
	}
	run.IsCompleted = true
	c.JSON(http.StatusOK, run)
}

func (s *Server) addResultsForCases(c *gin.Context, id int64) {
	run, ok := s.runs[id]
	if !ok {
		c.JSON(http.StatusBadRequest, v2.Error{Error: "Field :run_id is not a valid test run."})
		return
	}
	if run.IsCompleted {
		c.JSON(http.StatusBadRequest, v2.Error{Error: "Field :run_id refers to a closed test run."})
		return
	}
	var req v2.AddResultsForCases
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v2.Error{Error: err.Error()})
		return
	}
	for _, r := range req.Results {
		if r.CaseID <= 0 || r.StatusID < 1 || r.StatusID > 5 {
			c.JSON(http.StatusBadRequest, v2.Error{Error: "Field :results contains an invalid result."})
			return
		}
	}
	s.results[id] = append(s.results[id], req.Results...)
	c.JSON(http.StatusOK, req.Results)
}

func (s *Server) configName(ids []int64) string {
	var names []string
	for _, id := range ids {
		for _, g := range s.groups {
			for _, cfg := range g.Configs {
				if cfg.ID == id {
					names = append(names, cfg.Name)
				}
			}
		}
	}
	return strings.Join(names, ", ")
}
