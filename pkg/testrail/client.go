package testrail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	v2 "github.com/kubev2v/testrail-reporter/api/v2"
	"github.com/kubev2v/testrail-reporter/internal/models"
	srvErrors "github.com/kubev2v/testrail-reporter/pkg/errors"
)

const apiPrefix = "/index.php?/api/v2/"

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestEditorFn mutates every request before it is sent.
type RequestEditorFn func(ctx context.Context, req *http.Request) error

type ClientOption func(*Client)

func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

func WithRequestEditorFn(fn RequestEditorFn) ClientOption {
	return func(c *Client) {
		c.editors = append(c.editors, fn)
	}
}

type Client struct {
	baseURL    string
	httpClient HTTPDoer
	editors    []RequestEditorFn
}

func NewClient(host, username, password string, opts ...ClientOption) (*Client, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return nil, fmt.Errorf("failed to initialize testrail client: empty host")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	c := &Client{
		baseURL:    host,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	c.editors = append(c.editors, func(ctx context.Context, req *http.Request) error {
		req.SetBasicAuth(username, password)
		return nil
	})
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetProject
// GET index.php?/api/v2/get_project/{project_id}
func (c *Client) GetProject(ctx context.Context, projectID int64) (*models.Project, error) {
	var project v2.Project
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("get_project/%d", projectID), nil, &project); err != nil {
		return nil, err
	}
	m := project.ToModel()
	return &m, nil
}

// GetSuites
// GET index.php?/api/v2/get_suites/{project_id}
func (c *Client) GetSuites(ctx context.Context, projectID int64) ([]models.Suite, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("get_suites/%d", projectID), nil, &raw); err != nil {
		return nil, err
	}

	var suites []v2.Suite
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var page v2.Suites
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, fmt.Errorf("failed to decode suites: %w", err)
		}
		suites = page.Suites
	} else if err := json.Unmarshal(trimmed, &suites); err != nil {
		return nil, fmt.Errorf("failed to decode suites: %w", err)
	}

	result := make([]models.Suite, 0, len(suites))
	for _, s := range suites {
		result = append(result, s.ToModel())
	}
	return result, nil
}

// GetConfigs
// GET index.php?/api/v2/get_configs/{project_id}
func (c *Client) GetConfigs(ctx context.Context, projectID int64) ([]models.ConfigGroup, error) {
	var groups []v2.ConfigGroup
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("get_configs/%d", projectID), nil, &groups); err != nil {
		return nil, err
	}
	result := make([]models.ConfigGroup, 0, len(groups))
	for _, g := range groups {
		result = append(result, g.ToModel())
	}
	return result, nil
}

// AddPlan
// POST index.php?/api/v2/add_plan/{project_id}
func (c *Client) AddPlan(ctx context.Context, projectID int64, req models.PlanRequest) (*models.Plan, error) {
	var plan v2.Plan
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("add_plan/%d", projectID), v2.NewAddPlanFromModel(req), &plan); err != nil {
		return nil, err
	}
	m := plan.ToModel()
	return &m, nil
}

// GetPlan
// GET index.php?/api/v2/get_plan/{plan_id}
func (c *Client) GetPlan(ctx context.Context, planID int64) (*models.Plan, error) {
	var plan v2.Plan
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("get_plan/%d", planID), nil, &plan); err != nil {
		return nil, err
	}
	m := plan.ToModel()
	return &m, nil
}

// ClosePlan
// POST index.php?/api/v2/close_plan/{plan_id}
func (c *Client) ClosePlan(ctx context.Context, planID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("close_plan/%d", planID), struct{}{}, nil)
}

// AddRun
// POST index.php?/api/v2/add_run/{project_id}
func (c *Client) AddRun(ctx context.Context, projectID int64, req models.RunRequest) (*models.Run, error) {
	var run v2.Run
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("add_run/%d", projectID), v2.NewAddRunFromModel(req), &run); err != nil {
		return nil, err
	}
	m := run.ToModel()
	m.CaseIDs = req.CaseIDs
	return &m, nil
}

// CloseRun
// POST index.php?/api/v2/close_run/{run_id}
func (c *Client) CloseRun(ctx context.Context, runID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("close_run/%d", runID), struct{}{}, nil)
}

// AddResultsForCases
// POST index.php?/api/v2/add_results_for_cases/{run_id}
func (c *Client) AddResultsForCases(ctx context.Context, runID int64, results []models.CaseResult) error {
	body := v2.NewAddResultsForCasesFromModel(results)
	zap.S().Named("testrail_client").Debugw("add results for cases", "run_id", runID, "count", len(body.Results))
	return c.do(ctx, http.MethodPost, fmt.Sprintf("add_results_for_cases/%d", runID), body, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", apiMethod(endpoint), err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", apiMethod(endpoint), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for _, edit := range c.editors {
		if err := edit(ctx, req); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", apiMethod(endpoint), err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return srvErrors.NewResourceNotFoundError(apiMethod(endpoint), errorMessage(resp.Body))
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return srvErrors.NewUnauthorizedError(resp.StatusCode, apiMethod(endpoint), errorMessage(resp.Body))
	default:
		return srvErrors.NewAPIError(resp.StatusCode, apiMethod(endpoint), errorMessage(resp.Body))
	}
}

func apiMethod(endpoint string) string {
	method, _, _ := strings.Cut(endpoint, "/")
	return method
}

func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil || len(data) == 0 {
		return ""
	}
	var e v2.Error
	if err := json.Unmarshal(data, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}
