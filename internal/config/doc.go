// Package config defines the configuration of the TestRail reporter.
//
// Configuration is loaded once, at startup, and passed by pointer to every
// component that needs it. Nothing reads the environment after Load returns.
//
// # Sources
//
// Values are layered, lowest precedence first:
//
//  1. struct tag defaults (creasty/defaults)
//  2. the YAML configuration file given with --config
//  3. environment variables, including a .env file loaded with godotenv
//  4. command line flags that were explicitly set
//
// # Configuration Structure
//
//	Configuration
//	├── Enabled         - TESTRAIL_REPORT, the integration is skipped when false
//	├── TestRail        - server connection and project lookup
//	├── Plan            - plan creation or reuse
//	├── Submission      - result upload behavior
//	├── Configurations  - execution configuration labels (browsers)
//	├── LogFormat       - "console" or "json"
//	└── LogLevel        - zap level
//
// # TestRail Configuration
//
//	┌────────────────┬───────────────────────────┬──────────────────┬────────────────────────────────────┐
//	│ Field          │ Env                       │ Default          │ Description                        │
//	├────────────────┼───────────────────────────┼──────────────────┼────────────────────────────────────┤
//	│ Host           │ TESTRAIL_HOST             │ (required)       │ TestRail base URL                  │
//	│ Username       │ TESTRAIL_USERNAME         │ (required)       │ API user                           │
//	│ Password       │ TESTRAIL_PASSWORD         │ (required)       │ Password or API key                │
//	│ ProjectID      │ TESTRAIL_PROJECT_ID       │ 59               │ Project receiving the results      │
//	│ SuiteName      │ TESTRAIL_SUITE_NAME       │ Regression suite │ Suite referenced by new plans      │
//	│ DefaultSuiteID │ TESTRAIL_DEFAULT_SUITE_ID │ 849              │ Used when SuiteName is not found   │
//	│ ConfigGroup    │ TESTRAIL_CONFIG_GROUP     │ "web browsers"   │ Config group holding the browsers  │
//	│ SingleSuite    │ TESTRAIL_SINGLE_SUITE     │ false            │ Reject projects with many suites   │
//	│ Timeout        │ TESTRAIL_TIMEOUT          │ 30s              │ HTTP timeout per request           │
//	└────────────────┴───────────────────────────┴──────────────────┴────────────────────────────────────┘
//
// # Plan Configuration
//
//	┌─────────────┬───────────────────────┬─────────┬──────────────────────────────────────────┐
//	│ Field       │ Env                   │ Default │ Description                              │
//	├─────────────┼───────────────────────┼─────────┼──────────────────────────────────────────┤
//	│ Mode        │ TESTRAIL_PLAN_MODE    │ "plan"  │ "plan" or standalone "run"               │
//	│ ID          │ TESTRAIL_PLAN_ID      │ 0       │ Existing plan to attach to               │
//	│ Name        │ TESTRAIL_PLAN_NAME    │ ""      │ Overrides the generated plan name        │
//	│ Branch      │ BRANCH_NAME           │ ""      │ Embedded in the plan description         │
//	│ Environment │ FL_ENV                │ ""      │ Embedded in the plan name                │
//	│ Tests       │ E2E_TESTS             │ ""      │ Embedded in the plan name                │
//	│ IncludeAll  │ TESTRAIL_INCLUDE_ALL  │ true    │ New runs include every case of the suite │
//	│ ExtractMode │ TESTRAIL_EXTRACT_MODE │ "auto"  │ "auto", "annotation" or "title"          │
//	└─────────────┴───────────────────────┴─────────┴──────────────────────────────────────────┘
//
// # Submission Configuration
//
//	┌─────────┬──────────────────┬─────────┬─────────────────────────────────────────┐
//	│ Field   │ Env              │ Default │ Description                             │
//	├─────────┼──────────────────┼─────────┼─────────────────────────────────────────┤
//	│ Workers │ TESTRAIL_WORKERS │ 1       │ Runs submitted concurrently             │
//	│ Close   │ TESTRAIL_CLOSE   │ false   │ Close the plan or run after submission  │
//	└─────────┴──────────────────┴─────────┴─────────────────────────────────────────┘
//
// # Errors
//
// A missing host, username or password is a ConfigurationError naming the key
// and its environment variable. It is returned by Load, never later.
//
// # Debug Logging
//
// DebugMap returns the configuration with the password masked:
//
//	zap.S().Infow("configuration loaded", "config", cfg.DebugMap())
package config
