package config

import (
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	srvErrors "github.com/kubev2v/testrail-reporter/pkg/errors"
)

type PlanMode string

const (
	// PlanModePlan creates or reuses a plan with one run per configuration.
	PlanModePlan PlanMode = "plan"
	// PlanModeRun creates a single standalone run receiving every result.
	PlanModeRun PlanMode = "run"
)

type ExtractMode string

const (
	ExtractModeAuto       ExtractMode = "auto"
	ExtractModeAnnotation ExtractMode = "annotation"
	ExtractModeTitle      ExtractMode = "title"
)

type Configuration struct {
	// Enabled toggles the integration. When false the reporter is not invoked.
	Enabled    bool       `default:"false" debugmap:"visible"`
	TestRail   TestRail   `debugmap:"visible"`
	Plan       Plan       `debugmap:"visible"`
	Submission Submission `debugmap:"visible"`
	// Configurations are the execution configuration labels (browsers, projects).
	Configurations []string `debugmap:"visible"`
	LogFormat      string   `default:"console" debugmap:"visible"`
	LogLevel       string   `default:"info" debugmap:"visible"`
}

type TestRail struct {
	Host           string        `debugmap:"visible"`
	Username       string        `debugmap:"visible"`
	Password       string        `debugmap:"hidden"`
	ProjectID      int64         `default:"59" debugmap:"visible"`
	SuiteName      string        `default:"Regression suite" debugmap:"visible"`
	DefaultSuiteID int64         `default:"849" debugmap:"visible"`
	ConfigGroup    string        `default:"web browsers" debugmap:"visible"`
	SingleSuite    bool          `default:"false" debugmap:"visible"`
	Timeout        time.Duration `default:"30s" debugmap:"visible"`
}

type Plan struct {
	Mode PlanMode `default:"plan" debugmap:"visible"`
	// ID of an existing plan. When set the plan is reused instead of created.
	ID          int64  `debugmap:"visible"`
	Name        string `debugmap:"visible"`
	Description string `debugmap:"visible"`
	Branch      string `debugmap:"visible"`
	Environment string `debugmap:"visible"`
	Tests       string `debugmap:"visible"`
	// IncludeAll scopes new runs to every case of the suite instead of the recorded ones.
	IncludeAll  bool        `default:"true" debugmap:"visible"`
	ExtractMode ExtractMode `default:"auto" debugmap:"visible"`
}

type Submission struct {
	Workers int  `default:"1" debugmap:"visible"`
	Close   bool `default:"false" debugmap:"visible"`
}

// envBindings maps configuration keys to the environment variables they are read from.
var envBindings = map[string]string{
	"enabled":                 "TESTRAIL_REPORT",
	"testrail.host":           "TESTRAIL_HOST",
	"testrail.username":       "TESTRAIL_USERNAME",
	"testrail.password":       "TESTRAIL_PASSWORD",
	"testrail.projectid":      "TESTRAIL_PROJECT_ID",
	"testrail.suitename":      "TESTRAIL_SUITE_NAME",
	"testrail.defaultsuiteid": "TESTRAIL_DEFAULT_SUITE_ID",
	"testrail.configgroup":    "TESTRAIL_CONFIG_GROUP",
	"testrail.singlesuite":    "TESTRAIL_SINGLE_SUITE",
	"testrail.timeout":        "TESTRAIL_TIMEOUT",
	"plan.mode":               "TESTRAIL_PLAN_MODE",
	"plan.id":                 "TESTRAIL_PLAN_ID",
	"plan.name":               "TESTRAIL_PLAN_NAME",
	"plan.description":        "TESTRAIL_PLAN_DESCRIPTION",
	"plan.branch":             "BRANCH_NAME",
	"plan.environment":        "FL_ENV",
	"plan.tests":              "E2E_TESTS",
	"plan.includeall":         "TESTRAIL_INCLUDE_ALL",
	"plan.extractmode":        "TESTRAIL_EXTRACT_MODE",
	"submission.workers":      "TESTRAIL_WORKERS",
	"submission.close":        "TESTRAIL_CLOSE",
	"configurations":          "TESTRAIL_CONFIGURATIONS",
	"logformat":               "LOG_FORMAT",
	"loglevel":                "LOG_LEVEL",
}

// EnvVar returns the environment variable bound to a configuration key.
func EnvVar(key string) string {
	return envBindings[key]
}

// NewViper returns a viper instance bound to the reporter environment variables.
// When dotenv is not empty the file is loaded first; a missing file is not an error.
func NewViper(dotenv string) *viper.Viper {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err == nil {
			zap.S().Named("config").Debugw("loaded dotenv file", "path", dotenv)
		}
	}

	v := viper.New()
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load builds the configuration from defaults and the values known to v.
// Required TestRail values are checked only when the integration is enabled.
func Load(v *viper.Viper) (*Configuration, error) {
	cfg := new(Configuration)
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, srvErrors.NewInvalidConfigurationError("configuration", err.Error())
	}
	cfg.Configurations = splitLabels(cfg.Configurations)

	if !cfg.Enabled {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values needed to talk to TestRail.
func (c *Configuration) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"testrail.host", c.TestRail.Host},
		{"testrail.username", c.TestRail.Username},
		{"testrail.password", c.TestRail.Password},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return srvErrors.NewMissingConfigurationError(r.key, EnvVar(r.key))
		}
	}

	if c.TestRail.ProjectID <= 0 {
		return srvErrors.NewInvalidConfigurationError("testrail.projectid", "must be a positive project id")
	}
	if c.Plan.ID < 0 {
		return srvErrors.NewInvalidConfigurationError("plan.id", "must not be negative")
	}
	switch c.Plan.Mode {
	case PlanModePlan, PlanModeRun:
	default:
		return srvErrors.NewInvalidConfigurationError("plan.mode", `must be "plan" or "run"`)
	}
	switch c.Plan.ExtractMode {
	case ExtractModeAuto, ExtractModeAnnotation, ExtractModeTitle:
	default:
		return srvErrors.NewInvalidConfigurationError("plan.extractmode", `must be "auto", "annotation" or "title"`)
	}
	if c.Submission.Workers < 1 {
		return srvErrors.NewInvalidConfigurationError("submission.workers", "must be at least 1")
	}
	return nil
}

// DebugMap returns the configuration for logging with hidden fields masked.
func (c *Configuration) DebugMap() map[string]any {
	password := ""
	if c.TestRail.Password != "" {
		password = "(sensitive)"
	}
	return map[string]any{
		"enabled": c.Enabled,
		"testrail": map[string]any{
			"host":           c.TestRail.Host,
			"username":       c.TestRail.Username,
			"password":       password,
			"projectId":      c.TestRail.ProjectID,
			"suiteName":      c.TestRail.SuiteName,
			"defaultSuiteId": c.TestRail.DefaultSuiteID,
			"configGroup":    c.TestRail.ConfigGroup,
			"singleSuite":    c.TestRail.SingleSuite,
			"timeout":        c.TestRail.Timeout.String(),
		},
		"plan": map[string]any{
			"mode":        c.Plan.Mode,
			"id":          c.Plan.ID,
			"name":        c.Plan.Name,
			"branch":      c.Plan.Branch,
			"environment": c.Plan.Environment,
			"tests":       c.Plan.Tests,
			"includeAll":  c.Plan.IncludeAll,
			"extractMode": c.Plan.ExtractMode,
		},
		"submission": map[string]any{
			"workers": c.Submission.Workers,
			"close":   c.Submission.Close,
		},
		"configurations": c.Configurations,
		"logFormat":      c.LogFormat,
		"logLevel":       c.LogLevel,
	}
}

// splitLabels accepts labels given as a list or as one comma separated value.
func splitLabels(in []string) []string {
	var out []string
	for _, item := range in {
		for _, label := range strings.Split(item, ",") {
			if label = strings.TrimSpace(label); label != "" {
				out = append(out, label)
			}
		}
	}
	return out
}
